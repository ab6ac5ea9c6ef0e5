package server

import (
	"net/http"
	"strings"

	"github.com/rbhatta/kosha/internal/models"
)

// handleInvestments handles /api/investments (GET list, POST create).
func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		invs, err := s.app.InvestmentService.List(r.Context(), userID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if invs == nil {
			invs = []*models.Investment{}
		}
		WriteJSON(w, http.StatusOK, invs)

	case http.MethodPost:
		var inv models.Investment
		if !DecodeJSON(w, r, &inv) {
			return
		}
		inv.UserID = userID
		if err := s.app.InvestmentService.Create(r.Context(), &inv); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, inv)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeInvestments handles /api/investments/{id} (PUT, DELETE).
func (s *Server) routeInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	investmentID := PathParam(r, "/api/investments/", "")
	if investmentID == "" || strings.Contains(investmentID, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var inv models.Investment
		if !DecodeJSON(w, r, &inv) {
			return
		}
		inv.ID = investmentID
		inv.UserID = userID
		if err := s.app.InvestmentService.Update(r.Context(), &inv); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, inv)

	case http.MethodDelete:
		if err := s.app.InvestmentService.Delete(r.Context(), userID, investmentID); err != nil {
			WriteError(w, http.StatusNotFound, "Investment not found")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleInvestmentRefresh handles POST /api/investments/refresh: an
// on-demand price sweep outside the weekday schedule.
func (s *Server) handleInvestmentRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}

	updated, err := s.app.InvestmentService.RefreshPrices(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"updated": updated})
}
