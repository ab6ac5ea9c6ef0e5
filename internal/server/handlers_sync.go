package server

import (
	"net/http"
	"time"

	"github.com/rbhatta/kosha/internal/models"
)

// handleSync handles POST /api/sync: creates the user's sync trigger.
// The background watcher picks it up and runs the ingestion pipeline;
// repeated requests before pickup collapse into a single trigger.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	// Don't re-request while a run is already claimed.
	if existing, err := s.app.Storage.TriggerStore().Get(r.Context(), userID); err == nil {
		WriteJSON(w, http.StatusAccepted, map[string]any{
			"status":       existing.Status,
			"requested_at": existing.RequestedAt,
		})
		return
	}

	trigger := &models.SyncTrigger{
		UserID:      userID,
		Status:      models.TriggerPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.app.Storage.TriggerStore().Put(r.Context(), trigger); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to request sync")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]any{
		"status":       trigger.Status,
		"requested_at": trigger.RequestedAt,
	})
}

// handleSyncStatus handles GET /api/sync/status.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	trigger, err := s.app.Storage.TriggerStore().Get(r.Context(), userID)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "idle"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":       trigger.Status,
		"requested_at": trigger.RequestedAt,
	})
}

// handleGmailToken handles PUT and DELETE /api/sync/gmail-token: stores or
// removes the user's mailbox OAuth tokens.
func (s *Server) handleGmailToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	store := s.app.Storage.InternalStore()

	switch r.Method {
	case http.MethodPut:
		var req struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.AccessToken == "" {
			WriteError(w, http.StatusBadRequest, "access_token is required")
			return
		}
		if err := store.SetUserKV(r.Context(), userID, models.KVGmailAccessToken, req.AccessToken); err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to store token")
			return
		}
		if req.RefreshToken != "" {
			if err := store.SetUserKV(r.Context(), userID, models.KVGmailRefreshToken, req.RefreshToken); err != nil {
				WriteError(w, http.StatusInternalServerError, "Failed to store token")
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "stored"})

	case http.MethodDelete:
		if err := store.DeleteUserKV(r.Context(), userID, models.KVGmailAccessToken); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to delete access token")
		}
		if err := store.DeleteUserKV(r.Context(), userID, models.KVGmailRefreshToken); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to delete refresh token")
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}
