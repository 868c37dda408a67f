package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 60 * time.Minute

// TokenService mints and validates signed session tokens. Tokens are
// stateless: everything needed to reconstruct the session lives in the signed
// payload, so nothing is persisted.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance. A zero ttl falls back
// to DefaultTokenTTL. The signing key is process-wide configuration; the
// server entrypoint refuses to start without one.
func NewTokenService(signingKey []byte, ttl time.Duration, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source, useful for tests.
func (ts *TokenService) WithClock(clock func() time.Time) *TokenService {
	if clock != nil {
		ts.now = clock
	}
	return ts
}

// TTL exposes the configured token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Generate mints a signed bearer token binding the subject email to the
// user's identity reference, expiring ttl from now.
func (ts *TokenService) Generate(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UserID: user.ID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning its claims. Expired
// tokens map to ErrTokenExpired; any signature or payload problem maps to
// ErrTokenMalformed.
func (ts *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(goerrors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		ts.logger.Error("TokenService validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
