package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"fintrack/internal/observability"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
	cookies *CookieWriter
	logger  *observability.Logger
}

func NewHandler(service *Service, cookies *CookieWriter, logger *observability.Logger) *Handler {
	return &Handler{service: service, cookies: cookies, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body registerRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	body.Password = strings.TrimSpace(body.Password)
	if !emailRegex.MatchString(body.Email) || len(body.Email) > 254 {
		writeError(w, http.StatusBadRequest, "email format is invalid")
		return
	}
	if len(body.Password) < 8 || len(body.Password) > 200 {
		writeError(w, http.StatusBadRequest, "password format is invalid")
		return
	}
	if len(body.Name) > 100 || len(body.Surname) > 100 {
		writeError(w, http.StatusBadRequest, "name format is invalid")
		return
	}

	pair, err := h.service.Register(r.Context(), body.Email, body.Password, body.Name, body.Surname)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	h.cookies.Set(w, pair)
	writeJSON(w, http.StatusCreated, map[string]any{"data": pair})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	body.Password = strings.TrimSpace(body.Password)
	if !emailRegex.MatchString(body.Email) {
		writeError(w, http.StatusBadRequest, "email format is invalid")
		return
	}
	if len(body.Password) < 8 || len(body.Password) > 200 {
		writeError(w, http.StatusBadRequest, "password format is invalid")
		return
	}

	pair, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		var lockedErr ErrLoginLocked
		if errors.As(err, &lockedErr) {
			retryAfter := int(time.Until(lockedErr.Until).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "login temporarily locked")
			return
		}

		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	h.cookies.Set(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{"data": pair})
}

// Refresh accepts the refresh token either in the JSON body or as the
// refreshToken cookie. Success rotates the whole pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body refreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	}

	refreshToken := strings.TrimSpace(body.RefreshToken)
	if refreshToken == "" {
		if cookie, err := r.Cookie(RefreshCookieName); err == nil {
			refreshToken = strings.TrimSpace(cookie.Value)
		}
	}
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	pair, err := h.service.Refresh(refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	h.cookies.Set(w, pair)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

// Validate answers whether the accessToken cookie currently verifies.
// Missing and invalid tokens both map to 401 with the same body, but are
// logged as distinct events.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(AccessCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		h.logger.Info("auth_missing_token", map[string]any{"path": r.URL.Path})
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if _, err := h.service.ValidateAccess(strings.TrimSpace(cookie.Value)); err != nil {
		h.logger.Info("auth_invalid_token", map[string]any{"path": r.URL.Path})
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

// Logout clears the cookie pair. Tokens themselves stay verifiable until
// expiry; the session ends because the client no longer holds them.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
