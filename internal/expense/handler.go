package expense

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"fintrack/internal/auth"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	expenses, err := h.repo.List(r.Context(), auth.UserID(r.Context()), filter)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, incurredOn, ok := parseExpenseInput(w, r)
	if !ok {
		return
	}

	e, err := h.repo.Create(r.Context(), auth.UserID(r.Context()), input, incurredOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "category not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create expense")
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	input, incurredOn, ok := parseExpenseInput(w, r)
	if !ok {
		return
	}

	e, err := h.repo.Update(r.Context(), auth.UserID(r.Context()), id, input, incurredOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update expense")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := h.repo.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Summary reports per-category totals for one month; defaults to the current
// month when ?month= is absent.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	month := time.Now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be formatted as YYYY-MM")
			return
		}
		month = parsed
	}

	summary, err := h.repo.Summary(r.Context(), auth.UserID(r.Context()), month)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	recurring, err := h.repo.ListRecurring(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list recurring expenses")
		return
	}

	writeJSON(w, http.StatusOK, recurring)
}

func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	input, ok := parseRecurringInput(w, r)
	if !ok {
		return
	}

	re, err := h.repo.CreateRecurring(r.Context(), auth.UserID(r.Context()), input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "category not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create recurring expense")
		return
	}

	writeJSON(w, http.StatusCreated, re)
}

func (h *Handler) UpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	input, ok := parseRecurringInput(w, r)
	if !ok {
		return
	}

	re, err := h.repo.UpdateRecurring(r.Context(), auth.UserID(r.Context()), id, input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "recurring expense not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update recurring expense")
		return
	}

	writeJSON(w, http.StatusOK, re)
}

func (h *Handler) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	if err := h.repo.DeleteRecurring(r.Context(), auth.UserID(r.Context()), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "recurring expense not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete recurring expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseFilter(w http.ResponseWriter, r *http.Request) (ListFilter, bool) {
	var filter ListFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be formatted as YYYY-MM")
			return ListFilter{}, false
		}
		filter.Month = &parsed
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		if _, err := uuid.Parse(raw); err != nil {
			writeError(w, http.StatusBadRequest, "category must be a valid id")
			return ListFilter{}, false
		}
		filter.CategoryID = raw
	}

	return filter, true
}

func parseExpenseInput(w http.ResponseWriter, r *http.Request) (ExpenseInput, time.Time, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input ExpenseInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return ExpenseInput{}, time.Time{}, false
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	input.IncurredOn = strings.TrimSpace(input.IncurredOn)

	if _, err := uuid.Parse(input.CategoryID); err != nil {
		writeError(w, http.StatusBadRequest, "categoryId is invalid")
		return ExpenseInput{}, time.Time{}, false
	}
	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return ExpenseInput{}, time.Time{}, false
	}
	if !utf8.ValidString(input.Title) || len(input.Title) > 150 {
		writeError(w, http.StatusBadRequest, "title is invalid")
		return ExpenseInput{}, time.Time{}, false
	}
	if input.AmountCents < 0 {
		writeError(w, http.StatusBadRequest, "amountCents must be >= 0")
		return ExpenseInput{}, time.Time{}, false
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}
	if !currencyRegex.MatchString(input.Currency) {
		writeError(w, http.StatusBadRequest, "currency must be a 3-letter code")
		return ExpenseInput{}, time.Time{}, false
	}

	incurredOn, err := time.Parse("2006-01-02", input.IncurredOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "incurredOn must be formatted as YYYY-MM-DD")
		return ExpenseInput{}, time.Time{}, false
	}

	return input, incurredOn, true
}

func parseRecurringInput(w http.ResponseWriter, r *http.Request) (RecurringInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input RecurringInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return RecurringInput{}, false
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))

	if _, err := uuid.Parse(input.CategoryID); err != nil {
		writeError(w, http.StatusBadRequest, "categoryId is invalid")
		return RecurringInput{}, false
	}
	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return RecurringInput{}, false
	}
	if !utf8.ValidString(input.Title) || len(input.Title) > 150 {
		writeError(w, http.StatusBadRequest, "title is invalid")
		return RecurringInput{}, false
	}
	if input.AmountCents < 0 {
		writeError(w, http.StatusBadRequest, "amountCents must be >= 0")
		return RecurringInput{}, false
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}
	if !currencyRegex.MatchString(input.Currency) {
		writeError(w, http.StatusBadRequest, "currency must be a 3-letter code")
		return RecurringInput{}, false
	}
	if input.DayOfMonth < 1 || input.DayOfMonth > 31 {
		writeError(w, http.StatusBadRequest, "dayOfMonth must be between 1 and 31")
		return RecurringInput{}, false
	}

	return input, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
