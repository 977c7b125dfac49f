package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultLockWindow  = 15 * time.Minute
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type ErrLoginLocked struct {
	Until time.Time
}

func (e ErrLoginLocked) Error() string {
	return "login temporarily locked"
}

type Service struct {
	repo         *Repository
	tokens       *TokenManager
	maxAttempts  int
	lockDuration time.Duration
}

func NewService(repo *Repository, tokens *TokenManager) *Service {
	return &Service{
		repo:         repo,
		tokens:       tokens,
		maxAttempts:  defaultMaxAttempts,
		lockDuration: defaultLockWindow,
	}
}

func (s *Service) WithLockoutConfig(maxAttempts int, lockDuration time.Duration) {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if lockDuration > 0 {
		s.lockDuration = lockDuration
	}
}

func (s *Service) Tokens() *TokenManager { return s.tokens }

// Register creates the user and issues the initial token pair. A taken email
// surfaces as ErrEmailTaken so the handler can answer 400.
func (s *Service) Register(ctx context.Context, email, password, name, surname string) (TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	hash, err := HashPassword(password)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.repo.CreateUser(ctx, email, hash, strings.TrimSpace(name), strings.TrimSpace(surname))
	if err != nil {
		return TokenPair{}, err
	}

	return s.tokens.IssuePair(user.ID)
}

// Login verifies credentials and issues a token pair. Unknown email and wrong
// password both count as a failed attempt against the lockout window and both
// collapse into ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	attempt, err := s.repo.GetLoginAttempt(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if attempt.LockedUntil != nil && now.Before(*attempt.LockedUntil) {
		return TokenPair{}, ErrLoginLocked{Until: *attempt.LockedUntil}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, s.failAttempt(ctx, email, now)
		}
		return TokenPair{}, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return TokenPair{}, s.failAttempt(ctx, email, now)
	}

	if err := s.repo.ResetLoginAttempt(ctx, email); err != nil {
		return TokenPair{}, err
	}

	return s.tokens.IssuePair(user.ID)
}

func (s *Service) failAttempt(ctx context.Context, email string, now time.Time) error {
	lockedUntil, err := s.repo.RegisterFailedAttempt(ctx, email, s.maxAttempts, s.lockDuration, now)
	if err != nil {
		return err
	}
	if lockedUntil != nil {
		return ErrLoginLocked{Until: *lockedUntil}
	}
	return ErrInvalidCredentials
}

// Refresh exchanges a valid refresh token for a brand-new pair. Full
// rotation: both tokens are reissued. There is no server-side revocation
// list, so an old refresh token stays usable until its own expiry.
func (s *Service) Refresh(refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidToken
	}

	claims, err := s.tokens.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	return s.tokens.IssuePair(claims.UserID)
}

// ValidateAccess verifies a presented access token and returns its claims.
func (s *Service) ValidateAccess(accessToken string) (Claims, error) {
	return s.tokens.Validate(accessToken, TokenTypeAccess)
}
