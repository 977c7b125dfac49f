package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken covers every verification failure: bad signature, expired,
// malformed, wrong token type. Callers translate it to a generic 401.
var ErrInvalidToken = errors.New("invalid or expired token")

type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues and verifies HS256-signed access and refresh tokens.
// Tokens are stateless: validity is purely signature plus embedded expiry,
// nothing is persisted server-side.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager fails fast on operator error: an empty secret or a
// misconfigured TTL must abort startup, never fall back to a default.
// The access TTL must be strictly shorter than the refresh TTL.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token manager: signing secret is not configured")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("token manager: access token ttl is not configured")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("token manager: refresh token ttl is not configured")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("token manager: access token ttl must be shorter than refresh token ttl")
	}

	return &TokenManager{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

type Claims struct {
	UserID    string
	Type      string
	ExpiresAt time.Time
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssuePair mints a fresh access+refresh pair for the user. Each call
// produces tokens distinct from any previous pair (jti claim), so refresh
// rotation is observable even within the same second.
func (m *TokenManager) IssuePair(userID string) (TokenPair, error) {
	access, err := m.issue(userID, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := m.issue(userID, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) issue(userID, tokenType string, ttl time.Duration) (string, error) {
	jti, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"typ": tokenType,
		"jti": jti.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}

	return encoded, nil
}

// Validate verifies signature and expiry and that the token is of the wanted
// kind. Every failure collapses into ErrInvalidToken.
func (m *TokenManager) Validate(tokenStr, wantType string) (Claims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	tokenType, _ := claims["typ"].(string)
	if tokenType != wantType {
		return Claims{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{UserID: sub, Type: tokenType, ExpiresAt: exp.Time.UTC()}, nil
}

// TimeUntilExpiry reads the embedded expiry without verifying the signature.
// It is a pure function of (token, now) so clients can decide locally whether
// a still-valid token is close enough to expiry to warrant a proactive
// refresh. Negative result means the token is already expired.
func TimeUntilExpiry(tokenStr string, now time.Time) (time.Duration, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return 0, fmt.Errorf("decode token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, ErrInvalidToken
	}

	return exp.Time.Sub(now), nil
}
