package server

import (
	"net/http"
	"strings"

	"github.com/rbhatta/kosha/internal/models"
)

// handleAccounts handles /api/accounts (GET list, POST create).
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		accounts, err := s.app.LedgerService.ListAccounts(r.Context(), userID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if accounts == nil {
			accounts = []*models.Account{}
		}
		WriteJSON(w, http.StatusOK, accounts)

	case http.MethodPost:
		var account models.Account
		if !DecodeJSON(w, r, &account) {
			return
		}
		account.UserID = userID
		if err := s.app.LedgerService.CreateAccount(r.Context(), &account); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, account)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeAccounts handles /api/accounts/{id} (GET, PUT, DELETE).
func (s *Server) routeAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	accountID := PathParam(r, "/api/accounts/", "")
	if accountID == "" || strings.Contains(accountID, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		account, err := s.app.LedgerService.GetAccount(r.Context(), userID, accountID)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Account not found")
			return
		}
		WriteJSON(w, http.StatusOK, account)

	case http.MethodPut:
		var account models.Account
		if !DecodeJSON(w, r, &account) {
			return
		}
		account.ID = accountID
		account.UserID = userID
		if err := s.app.LedgerService.UpdateAccount(r.Context(), &account); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, account)

	case http.MethodDelete:
		if err := s.app.LedgerService.DeleteAccount(r.Context(), userID, accountID); err != nil {
			WriteError(w, http.StatusNotFound, "Account not found")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handleAlerts handles GET /api/alerts: budget and credit utilization alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	budgetAlerts, creditAlerts, err := s.app.LedgerService.Alerts(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if budgetAlerts == nil {
		budgetAlerts = []models.BudgetAlert{}
	}
	if creditAlerts == nil {
		creditAlerts = []models.CreditAlert{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"budget_alerts": budgetAlerts,
		"credit_alerts": creditAlerts,
	})
}
