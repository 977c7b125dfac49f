package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

type CleanupResult struct {
	DeletedLoginAttempts int64 `json:"deleted_login_attempts"`
	DeletedIPLimits      int64 `json:"deleted_ip_limits"`
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var ErrEmailTaken = errors.New("email already registered")

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, surname, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Surname, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by email: %w", err)
	}

	return user, nil
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, name, surname string) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	user := User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Surname:      surname,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, surname, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.Email, user.PasswordHash, user.Name, user.Surname, now)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return User{}, fmt.Errorf("insert user rows affected: %w", err)
	}
	if affected == 0 {
		return User{}, ErrEmailTaken
	}

	return user, nil
}

func (r *Repository) GetLoginAttempt(ctx context.Context, email string) (LoginAttempt, error) {
	var attempt LoginAttempt
	attempt.Email = email

	var lockedUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT failed_attempts, locked_until
		FROM login_attempts
		WHERE email = $1
	`, email).Scan(&attempt.FailedAttempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attempt, nil
		}
		return LoginAttempt{}, fmt.Errorf("query login attempt: %w", err)
	}
	if lockedUntil.Valid {
		value := lockedUntil.Time.UTC()
		attempt.LockedUntil = &value
	}

	return attempt, nil
}

func (r *Repository) RegisterFailedAttempt(ctx context.Context, email string, maxAttempts int, lockDuration time.Duration, now time.Time) (*time.Time, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin login attempt tx: %w", err)
	}
	defer tx.Rollback()

	var failed int
	var lockedUntil sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT failed_attempts, locked_until
		FROM login_attempts
		WHERE email = $1
		FOR UPDATE
	`, email).Scan(&failed, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			failed = 0
			lockedUntil = sql.NullTime{}
		} else {
			return nil, fmt.Errorf("lock login attempt row: %w", err)
		}
	}

	if lockedUntil.Valid && now.Before(lockedUntil.Time) {
		until := lockedUntil.Time.UTC()
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit existing lock tx: %w", err)
		}
		return &until, nil
	}

	failed++
	var nextLock *time.Time
	var nextLockValue any = nil
	if failed >= maxAttempts {
		until := now.UTC().Add(lockDuration)
		nextLock = &until
		nextLockValue = until
		failed = 0
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO login_attempts (email, failed_attempts, locked_until, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email)
		DO UPDATE SET
			failed_attempts = EXCLUDED.failed_attempts,
			locked_until = EXCLUDED.locked_until,
			updated_at = EXCLUDED.updated_at
	`, email, failed, nextLockValue, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert failed login attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit login attempt tx: %w", err)
	}

	return nextLock, nil
}

func (r *Repository) ResetLoginAttempt(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM login_attempts
		WHERE email = $1
	`, email)
	if err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}

	return nil
}

func (r *Repository) AllowLoginIP(ctx context.Context, ip string, maxHits int, window time.Duration, now time.Time) (bool, time.Duration, error) {
	threshold := now.UTC().Add(-window)

	var hits int
	var windowStartedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		WITH upsert AS (
			INSERT INTO login_ip_limits (ip, window_started_at, hits, updated_at)
			VALUES ($1, $2, 1, $2)
			ON CONFLICT (ip) DO UPDATE
			SET
				hits = CASE
					WHEN login_ip_limits.window_started_at <= $3 THEN 1
					ELSE login_ip_limits.hits + 1
				END,
				window_started_at = CASE
					WHEN login_ip_limits.window_started_at <= $3 THEN $2
					ELSE login_ip_limits.window_started_at
				END,
				updated_at = $2
			RETURNING hits, window_started_at
		)
		SELECT hits, window_started_at FROM upsert
	`, ip, now.UTC(), threshold).Scan(&hits, &windowStartedAt)
	if err != nil {
		return false, 0, fmt.Errorf("upsert login ip rate limit: %w", err)
	}

	if hits <= maxHits {
		return true, 0, nil
	}

	retryAfter := windowStartedAt.Add(window).Sub(now.UTC())
	if retryAfter < time.Second {
		retryAfter = time.Second
	}

	return false, retryAfter, nil
}

func (r *Repository) CleanupStaleAuthData(ctx context.Context, loginAttemptRetention time.Duration, batchSize int) (CleanupResult, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	if loginAttemptRetention <= 0 {
		loginAttemptRetention = 30 * 24 * time.Hour
	}

	cutoff := time.Now().UTC().Add(-loginAttemptRetention)

	deletedLoginAttempts, err := r.deleteStaleLoginAttempts(ctx, cutoff, batchSize)
	if err != nil {
		return CleanupResult{}, err
	}

	deletedIPLimits, err := r.deleteStaleIPLimits(ctx, cutoff, batchSize)
	if err != nil {
		return CleanupResult{}, err
	}

	return CleanupResult{
		DeletedLoginAttempts: deletedLoginAttempts,
		DeletedIPLimits:      deletedIPLimits,
	}, nil
}

func (r *Repository) deleteStaleLoginAttempts(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT email
			FROM login_attempts
			WHERE updated_at < $1
			  AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY updated_at ASC
			LIMIT $2
		)
		DELETE FROM login_attempts t
		USING stale
		WHERE t.email = stale.email
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete stale login attempts: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale login attempts rows affected: %w", err)
	}

	return affected, nil
}

func (r *Repository) deleteStaleIPLimits(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT ip
			FROM login_ip_limits
			WHERE updated_at < $1
			ORDER BY updated_at ASC
			LIMIT $2
		)
		DELETE FROM login_ip_limits t
		USING stale
		WHERE t.ip = stale.ip
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete stale login ip limits: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale login ip limits rows affected: %w", err)
	}

	return affected, nil
}
