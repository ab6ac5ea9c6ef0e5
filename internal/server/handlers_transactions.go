package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

// handleTransactions handles /api/transactions (GET list, POST create).
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		q := interfaces.TransactionQuery{
			AccountID: r.URL.Query().Get("account_id"),
			OrderBy:   r.URL.Query().Get("order"),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				q.Limit = n
			}
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				q.Offset = n
			}
		}

		txs, err := s.app.LedgerService.ListTransactions(r.Context(), userID, q)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if txs == nil {
			txs = []*models.Transaction{}
		}
		WriteJSON(w, http.StatusOK, txs)

	case http.MethodPost:
		var tx models.Transaction
		if !DecodeJSON(w, r, &tx) {
			return
		}
		tx.UserID = userID
		tx.Source = models.SourceManual
		tx.EmailID = ""
		if tx.Date.IsZero() {
			tx.Date = time.Now().UTC()
		}
		if err := s.app.LedgerService.RecordTransaction(r.Context(), &tx); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, tx)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeTransactions handles /api/transactions/{id} (PUT amend, DELETE remove).
func (s *Server) routeTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	txID := PathParam(r, "/api/transactions/", "")
	if txID == "" || strings.Contains(txID, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var tx models.Transaction
		if !DecodeJSON(w, r, &tx) {
			return
		}
		tx.ID = txID
		tx.UserID = userID
		if err := s.app.LedgerService.AmendTransaction(r.Context(), &tx); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, tx)

	case http.MethodDelete:
		if err := s.app.LedgerService.RemoveTransaction(r.Context(), userID, txID); err != nil {
			WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleSpendingReport handles GET /api/reports/spending?month=2026-03.
func (s *Server) handleSpendingReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	month := time.Now().UTC()
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := time.Parse("2006-01", v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = parsed
	}

	rows, err := s.app.LedgerService.SpendingByCategory(r.Context(), userID, month)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []models.CategorySpend{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"month":      month.Format("2006-01"),
		"categories": rows,
	})
}
