package maintenance

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/expense"
	"fintrack/internal/observability"
)

// RunHandler is the daily job endpoint, invoked by the platform scheduler
// with a bearer cron secret. It materializes recurring expenses due today and
// prunes stale login bookkeeping rows.
type RunHandler struct {
	expenses              *expense.Repository
	authRepo              *auth.Repository
	logger                *observability.Logger
	cronSecret            string
	loginAttemptRetention time.Duration
	batchSize             int
}

func NewRunHandler(
	expenses *expense.Repository,
	authRepo *auth.Repository,
	logger *observability.Logger,
	cronSecret string,
	loginAttemptRetention time.Duration,
	batchSize int,
) *RunHandler {
	return &RunHandler{
		expenses:              expenses,
		authRepo:              authRepo,
		logger:                logger,
		cronSecret:            strings.TrimSpace(cronSecret),
		loginAttemptRetention: loginAttemptRetention,
		batchSize:             batchSize,
	}
}

func (h *RunHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}

	materialized, err := h.expenses.MaterializeDue(r.Context(), time.Now().UTC(), h.batchSize)
	if err != nil {
		h.logger.Error("recurring_materialize_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "maintenance failed"})
		return
	}

	cleanup, err := h.authRepo.CleanupStaleAuthData(r.Context(), h.loginAttemptRetention, h.batchSize)
	if err != nil {
		h.logger.Error("auth_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "maintenance failed"})
		return
	}

	h.logger.Info("maintenance_completed", map[string]any{
		"materialized_expenses":  materialized,
		"deleted_login_attempts": cleanup.DeletedLoginAttempts,
		"deleted_ip_limits":      cleanup.DeletedIPLimits,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": map[string]any{
			"materialized_expenses": materialized,
			"cleanup":               cleanup,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
