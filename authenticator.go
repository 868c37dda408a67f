package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Authenticator handles password login against confirmed identities.
type Authenticator struct {
	repo   RepositoryManager
	tokens *TokenService
	logger Logger
}

// NewAuthenticator returns a new Authenticator.
func NewAuthenticator(repo RepositoryManager, tokens *TokenService) *Authenticator {
	return &Authenticator{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the authenticator logger.
func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Login verifies the password for the given email and issues a session token.
// Unknown email, password-less (federation only) account, and wrong password
// all collapse into the same uniform credentials error so a caller cannot
// probe which emails exist.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*VerifiedSession, error) {
	user, err := a.repo.Users().GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for login")
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		a.logger.Debug("login rejected, password mismatch", "email", user.Email)
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrUnverifiedAccount
	}

	if !user.Active {
		return nil, ErrInactiveAccount
	}

	token, err := a.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	a.logger.Info("login successful", "email", user.Email)

	return &VerifiedSession{Token: token, User: user}, nil
}
