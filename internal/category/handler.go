package category

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"fintrack/internal/auth"
)

var colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Create(r.Context(), auth.UserID(r.Context()), input)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			writeError(w, http.StatusBadRequest, "category already exists")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Update(r.Context(), auth.UserID(r.Context()), id, input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.repo.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseInput(w http.ResponseWriter, r *http.Request) (CategoryInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input CategoryInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return CategoryInput{}, false
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Color = strings.TrimSpace(input.Color)

	if input.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return CategoryInput{}, false
	}
	if !utf8.ValidString(input.Name) || len(input.Name) > 64 {
		writeError(w, http.StatusBadRequest, "name is invalid")
		return CategoryInput{}, false
	}
	if input.Color != "" && !colorRegex.MatchString(input.Color) {
		writeError(w, http.StatusBadRequest, "color must be a hex value like #aabbcc")
		return CategoryInput{}, false
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
