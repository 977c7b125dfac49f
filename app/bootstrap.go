package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/auth"
	"fintrack/internal/category"
	"fintrack/internal/db"
	"fintrack/internal/expense"
	"fintrack/internal/maintenance"
	"fintrack/internal/observability"
	"fintrack/internal/refdata"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	// Token lifetimes are security configuration: a malformed value aborts
	// startup instead of silently falling back.
	accessTTL, err := envDurationOrDefault("JWT_ACCESS_EXPIRES_IN", envOrDefault("JWT_EXPIRES_IN", ""), time.Hour)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := envDurationOrDefault("JWT_REFRESH_EXPIRES_IN", "", 720*time.Hour)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:     jwtSecret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	})
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), envOrDefault("APP_ENV", "development")); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	authRepo := auth.NewRepository(database)
	authService := auth.NewService(authRepo, tokens)
	authService.WithLockoutConfig(
		envIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		envMinutesOrDefault("LOGIN_LOCK_MINUTES", 15),
	)
	cookies := auth.NewCookieWriter(tokens.AccessTTL(), tokens.RefreshTTL())
	authHandler := auth.NewHandler(authService, cookies, logger)

	loginLimiter := auth.NewLoginRateLimiter(
		authRepo,
		envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
	)

	categoryRepo := category.NewRepository(database)
	categoryHandler := category.NewHandler(categoryRepo)

	expenseRepo := expense.NewRepository(database)
	expenseHandler := expense.NewHandler(expenseRepo)

	refdataRepo := refdata.NewRepository(database)
	refdataHandler := refdata.NewHandler(refdataRepo)

	maintenanceHandler := maintenance.NewRunHandler(
		expenseRepo,
		authRepo,
		logger,
		os.Getenv("CRON_SECRET"),
		envDaysOrDefault("AUTH_LOGIN_ATTEMPT_RETENTION_DAYS", 30),
		envIntOrDefault("MAINTENANCE_BATCH_SIZE", 500),
	)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(tokens, logger, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/register", loginLimiter.Middleware(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/refresh-token", authHandler.Refresh)
	mux.HandleFunc("GET /api/validate-token", authHandler.Validate)
	mux.HandleFunc("POST /api/logout", authHandler.Logout)

	mux.Handle("GET /api/categories", protected(categoryHandler.List))
	mux.Handle("POST /api/categories", protected(categoryHandler.Create))
	mux.Handle("PUT /api/categories/{id}", protected(categoryHandler.Update))
	mux.Handle("DELETE /api/categories/{id}", protected(categoryHandler.Delete))

	mux.Handle("GET /api/expenses", protected(expenseHandler.List))
	mux.Handle("POST /api/expenses", protected(expenseHandler.Create))
	mux.Handle("GET /api/expenses/summary", protected(expenseHandler.Summary))
	mux.Handle("PUT /api/expenses/{id}", protected(expenseHandler.Update))
	mux.Handle("DELETE /api/expenses/{id}", protected(expenseHandler.Delete))

	mux.Handle("GET /api/recurring-expenses", protected(expenseHandler.ListRecurring))
	mux.Handle("POST /api/recurring-expenses", protected(expenseHandler.CreateRecurring))
	mux.Handle("PUT /api/recurring-expenses/{id}", protected(expenseHandler.UpdateRecurring))
	mux.Handle("DELETE /api/recurring-expenses/{id}", protected(expenseHandler.DeleteRecurring))

	mux.HandleFunc("GET /api/currencies", refdataHandler.ListCurrencies)
	mux.HandleFunc("GET /api/countries", refdataHandler.ListCountries)

	mux.HandleFunc("GET /internal/maintenance/run", maintenanceHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/run", maintenanceHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

// envDurationOrDefault reads a Go duration string (e.g. "1h", "720h") from
// name, falling back to the alias value and then the default. Malformed
// input is an error, not a default.
func envDurationOrDefault(name, alias string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		value = strings.TrimSpace(alias)
	}
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid duration for %s: %q", name, value)
	}
	return parsed, nil
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
