package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const (
	// OTPExpiry is the validity window of an issued passcode.
	OTPExpiry = 10 * time.Minute
	// MaxOTPAttempts is the failed-attempt budget before lockout.
	MaxOTPAttempts = 5
)

// SignupInput carries the validated profile fields for a new registration.
// The HTTP layer owns request-shape validation; by the time a SignupInput
// reaches the flow the profile is well formed.
type SignupInput struct {
	FullName         string
	Email            string
	DateOfBirth      time.Time
	OrganizationType OrganizationType
	OrganizationName string
	Password         string
}

// SignupReceipt is what signup and resend hand back to the caller.
type SignupReceipt struct {
	Email            string `json:"email"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// VerifiedSession is the terminal result of a successful verification or
// login: a confirmed identity plus a freshly issued session token.
type VerifiedSession struct {
	Token string
	User  *User
}

// RegistrationFlow drives the signup lifecycle. Per email the states are
// none -> pending -> (verified | expired | locked); expired and locked are
// derived from the stored record on each verification attempt rather than
// persisted as flags.
type RegistrationFlow struct {
	repo   RepositoryManager
	tokens *TokenService
	mailer Mailer
	logger Logger
	now    func() time.Time
}

// RegistrationFlowOption customizes flow construction.
type RegistrationFlowOption func(*RegistrationFlow)

// WithRegistrationLogger overrides the flow logger.
func WithRegistrationLogger(logger Logger) RegistrationFlowOption {
	return func(f *RegistrationFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRegistrationClock injects a custom time source (useful for tests).
func WithRegistrationClock(clock func() time.Time) RegistrationFlowOption {
	return func(f *RegistrationFlow) {
		if clock != nil {
			f.now = clock
		}
	}
}

// NewRegistrationFlow wires the signup state machine over its collaborators.
func NewRegistrationFlow(repo RepositoryManager, tokens *TokenService, mailer Mailer, opts ...RegistrationFlowOption) *RegistrationFlow {
	f := &RegistrationFlow{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Signup stages a registration and dispatches the passcode. Repeating signup
// for a still-unconfirmed email is always legal: the staged record is
// overwritten, the attempt counter resets, and the expiry clock restarts.
// A delivery failure is logged but does not fail the signup; the user can
// still request a resend.
func (f *RegistrationFlow) Signup(ctx context.Context, input SignupInput) (*SignupReceipt, error) {
	email := NormalizeEmail(input.Email)

	if _, err := f.repo.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing account")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}

	rec := &PendingRegistration{
		Email:            email,
		FullName:         input.FullName,
		DateOfBirth:      input.DateOfBirth,
		OrganizationType: input.OrganizationType,
		OrganizationName: input.OrganizationName,
		PasswordHash:     hash,
		OTPCode:          code,
		OTPIssuedAt:      f.now(),
		OTPAttempts:      0,
	}

	if _, err := f.repo.PendingRegistrations().Upsert(ctx, rec); err != nil {
		return nil, err
	}

	if err := f.mailer.SendOTP(ctx, email, input.FullName, code); err != nil {
		f.logger.Warn("failed to deliver verification code, user can resend",
			"email", email, "error", err)
	}

	return &SignupReceipt{
		Email:            email,
		ExpiresInMinutes: int(OTPExpiry.Minutes()),
	}, nil
}

// Resend regenerates the passcode for an existing pending registration,
// resetting the attempt counter and restarting the expiry clock. Unlike
// signup, a delivery failure here surfaces to the caller: there is no other
// way for the code to reach the user.
func (f *RegistrationFlow) Resend(ctx context.Context, email string) (*SignupReceipt, error) {
	email = NormalizeEmail(email)

	rec, err := f.repo.PendingRegistrations().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}

	rec.OTPCode = code
	rec.OTPIssuedAt = f.now()
	rec.OTPAttempts = 0

	if err := f.repo.PendingRegistrations().Update(ctx, rec); err != nil {
		return nil, err
	}

	if err := f.mailer.SendOTP(ctx, rec.Email, rec.FullName, code); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "Failed to send OTP email. Please try again.").
			WithTextCode("OTP_DELIVERY_FAILED").
			WithCode(goerrors.CodeInternal)
	}

	return &SignupReceipt{
		Email:            rec.Email,
		ExpiresInMinutes: int(OTPExpiry.Minutes()),
	}, nil
}

// VerifyOTP validates a submitted code against the staged registration and,
// on a match, promotes it to a confirmed identity and issues a session token.
// Ordering matters and is deliberate: expiry first (record deleted, caller
// restarts from signup), then lockout (checked before the code is compared,
// so a correct code after lockout is still rejected), then the comparison.
func (f *RegistrationFlow) VerifyOTP(ctx context.Context, email, code string) (*VerifiedSession, error) {
	email = NormalizeEmail(email)

	rec, err := f.repo.PendingRegistrations().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	if rec.Expired(f.now()) {
		if err := f.repo.PendingRegistrations().Delete(ctx, email); err != nil {
			f.logger.Error("failed to remove expired registration", "email", email, "error", err)
		}
		return nil, ErrOTPExpired
	}

	if rec.Locked() {
		return nil, ErrTooManyAttempts
	}

	if rec.OTPCode != code {
		rec.OTPAttempts++
		if err := f.repo.PendingRegistrations().Update(ctx, rec); err != nil {
			return nil, err
		}
		return nil, InvalidOTPError(rec.RemainingAttempts())
	}

	user := rec.Promote()

	// Promotion is atomic: if the identity insert loses a race the pending
	// record survives the rollback and the conflict surfaces to the caller.
	err = f.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if user, err = f.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}
		return f.repo.PendingRegistrations().DeleteTx(ctx, tx, email)
	})
	if err != nil {
		// A lost promotion race is indistinguishable from a plain re-signup
		// to the caller; the store-level conflict stays internal.
		if goerrors.Is(err, ErrDuplicateEmail) {
			return nil, ErrAlreadyRegistered
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to promote registration")
	}

	token, err := f.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	f.logger.Info("registration verified", "email", user.Email, "user_id", user.ID.String())

	return &VerifiedSession{Token: token, User: user}, nil
}
