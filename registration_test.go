package accounts_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	accounts "github.com/counselgpt/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// memoryRepo is an in-memory RepositoryManager for flow tests.
type memoryRepo struct {
	users   *memoryUsers
	pending *memoryPending
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:   &memoryUsers{records: map[string]*accounts.User{}},
		pending: &memoryPending{records: map[string]*accounts.PendingRegistration{}},
	}
}

func (m *memoryRepo) Users() accounts.Users                               { return m.users }
func (m *memoryRepo) PendingRegistrations() accounts.PendingRegistrations { return m.pending }
func (m *memoryRepo) Validate() error                                     { return nil }
func (m *memoryRepo) MustValidate()                                       {}

func (m *memoryRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

type memoryUsers struct {
	records map[string]*accounts.User
}

func notFoundErr(msg string) error {
	return goerrors.New(msg, goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	if u, ok := m.records[accounts.NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, notFoundErr("user not found")
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*accounts.User, error) {
	for _, u := range m.records {
		if u.ID.String() == id {
			return u, nil
		}
	}
	return nil, notFoundErr("user not found")
}

func (m *memoryUsers) Create(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	return m.CreateTx(ctx, nil, user)
}

func (m *memoryUsers) CreateTx(ctx context.Context, tx bun.IDB, user *accounts.User) (*accounts.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	email := accounts.NormalizeEmail(user.Email)
	if _, exists := m.records[email]; exists {
		return nil, accounts.ErrDuplicateEmail
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = email
	m.records[email] = user
	return user, nil
}

func (m *memoryUsers) Update(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	email := accounts.NormalizeEmail(user.Email)
	if _, ok := m.records[email]; !ok {
		return nil, notFoundErr("user not found")
	}
	m.records[email] = user
	return user, nil
}

func (m *memoryUsers) List(ctx context.Context) ([]*accounts.User, error) {
	out := make([]*accounts.User, 0, len(m.records))
	for _, u := range m.records {
		out = append(out, u)
	}
	return out, nil
}

type memoryPending struct {
	records map[string]*accounts.PendingRegistration
}

func (m *memoryPending) GetByEmail(ctx context.Context, email string) (*accounts.PendingRegistration, error) {
	if r, ok := m.records[accounts.NormalizeEmail(email)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, notFoundErr("pending registration not found")
}

func (m *memoryPending) Upsert(ctx context.Context, rec *accounts.PendingRegistration) (*accounts.PendingRegistration, error) {
	rec.Email = accounts.NormalizeEmail(rec.Email)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.records[rec.Email] = rec
	return rec, nil
}

func (m *memoryPending) Update(ctx context.Context, rec *accounts.PendingRegistration) error {
	if _, ok := m.records[rec.Email]; !ok {
		return notFoundErr("pending registration not found")
	}
	m.records[rec.Email] = rec
	return nil
}

func (m *memoryPending) Delete(ctx context.Context, email string) error {
	return m.DeleteTx(ctx, nil, email)
}

func (m *memoryPending) DeleteTx(ctx context.Context, tx bun.IDB, email string) error {
	delete(m.records, accounts.NormalizeEmail(email))
	return nil
}

// captureMailer records passcodes instead of sending them.
type captureMailer struct {
	sent []capturedMail
	err  error
}

type capturedMail struct {
	To   string
	Name string
	Code string
}

func (m *captureMailer) SendOTP(ctx context.Context, to, fullName, code string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, capturedMail{To: to, Name: fullName, Code: code})
	return nil
}

func (m *captureMailer) lastCode() string {
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Code
}

func signupInput(email string) accounts.SignupInput {
	return accounts.SignupInput{
		FullName:         "Ada X",
		Email:            email,
		DateOfBirth:      time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		OrganizationType: accounts.OrgLawFirm,
		OrganizationName: "X & Partners",
		Password:         "longpassword1",
	}
}

func newTestFlow(t *testing.T, repo *memoryRepo, mailer accounts.Mailer, clock func() time.Time) *accounts.RegistrationFlow {
	t.Helper()
	tokens := accounts.NewTokenService(testSigningKey, time.Hour, nil)
	opts := []accounts.RegistrationFlowOption{}
	if clock != nil {
		opts = append(opts, accounts.WithRegistrationClock(clock))
	}
	return accounts.NewRegistrationFlow(repo, tokens, mailer, opts...)
}

func TestSignupStagesRegistration(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}
	flow := newTestFlow(t, repo, mailer, nil)

	receipt, err := flow.Signup(context.Background(), signupInput("A@X.com"))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", receipt.Email)
	assert.Equal(t, 10, receipt.ExpiresInMinutes)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@x.com", mailer.sent[0].To)
	assert.Len(t, mailer.sent[0].Code, accounts.OTPLength)

	rec, err := repo.pending.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, mailer.sent[0].Code, rec.OTPCode)
	assert.NotEqual(t, "longpassword1", rec.PasswordHash)
	assert.Zero(t, rec.OTPAttempts)
}

func TestSignupRejectsExistingAccount(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.users.Create(context.Background(), &accounts.User{
		Email:        "a@x.com",
		FullName:     "Existing",
		PasswordHash: "h",
	})
	require.NoError(t, err)

	flow := newTestFlow(t, repo, &captureMailer{}, nil)
	_, err = flow.Signup(context.Background(), signupInput("a@x.com"))
	assert.True(t, goerrors.Is(err, accounts.ErrAlreadyRegistered))
}

func TestSignupResubmitResets(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}
	flow := newTestFlow(t, repo, mailer, nil)
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)
	firstCode := mailer.lastCode()

	// Burn some attempts.
	for i := 0; i < 3; i++ {
		_, err = flow.VerifyOTP(ctx, "a@x.com", wrongCode(firstCode))
		require.Error(t, err)
	}

	_, err = flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)

	rec, err := repo.pending.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, rec.OTPAttempts)
	assert.Equal(t, mailer.lastCode(), rec.OTPCode)
}

func TestSignupSwallowsMailFailure(t *testing.T) {
	repo := newMemoryRepo()
	flow := newTestFlow(t, repo, &captureMailer{err: assert.AnError}, nil)

	receipt, err := flow.Signup(context.Background(), signupInput("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", receipt.Email)

	// The staged record survives so the user can resend.
	_, err = repo.pending.GetByEmail(context.Background(), "a@x.com")
	assert.NoError(t, err)
}

func TestResendRotatesCode(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}
	flow := newTestFlow(t, repo, mailer, nil)
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)
	firstCode := mailer.lastCode()

	_, err = flow.VerifyOTP(ctx, "a@x.com", wrongCode(firstCode))
	require.Error(t, err)

	receipt, err := flow.Resend(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", receipt.Email)

	rec, err := repo.pending.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, rec.OTPAttempts)
	assert.Len(t, mailer.sent, 2)
	assert.Equal(t, mailer.lastCode(), rec.OTPCode)
}

func TestResendWithoutPending(t *testing.T) {
	flow := newTestFlow(t, newMemoryRepo(), &captureMailer{}, nil)
	_, err := flow.Resend(context.Background(), "nobody@x.com")
	assert.True(t, goerrors.Is(err, accounts.ErrRegistrationNotFound))
}

func TestResendSurfacesMailFailure(t *testing.T) {
	repo := newMemoryRepo()
	good := &captureMailer{}
	flow := newTestFlow(t, repo, good, nil)
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)

	// Unlike signup, resend has no fallback channel.
	failing := accounts.NewRegistrationFlow(repo,
		accounts.NewTokenService(testSigningKey, time.Hour, nil),
		&captureMailer{err: assert.AnError})
	_, err = failing.Resend(ctx, "a@x.com")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryOperation, richErr.Category)
}

func TestVerifyOTPPromotes(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}
	flow := newTestFlow(t, repo, mailer, nil)
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)

	session, err := flow.VerifyOTP(ctx, "a@x.com", mailer.lastCode())
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "a@x.com", session.User.Email)
	assert.True(t, session.User.EmailVerified)
	assert.True(t, session.User.Active)

	// Staged record is gone; a second verify restarts from signup.
	_, err = flow.VerifyOTP(ctx, "a@x.com", mailer.lastCode())
	assert.True(t, goerrors.Is(err, accounts.ErrRegistrationNotFound))

	// And the account is now login capable.
	_, err = repo.users.GetByEmail(ctx, "a@x.com")
	assert.NoError(t, err)
}

func TestVerifyOTPWrongCodeCountsDown(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}
	flow := newTestFlow(t, repo, mailer, nil)
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)
	code := mailer.lastCode()

	_, err = flow.VerifyOTP(ctx, "a@x.com", wrongCode(code))
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, accounts.MaxOTPAttempts-1, richErr.Metadata["remaining_attempts"])

	// The correct code still works before lockout.
	_, err = flow.VerifyOTP(ctx, "a@x.com", code)
	assert.NoError(t, err)
}

func TestVerifyOTPLockout(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}
	flow := newTestFlow(t, repo, mailer, nil)
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)
	code := mailer.lastCode()

	for i := 0; i < accounts.MaxOTPAttempts; i++ {
		_, err = flow.VerifyOTP(ctx, "a@x.com", wrongCode(code))
		require.Error(t, err)
	}

	// Even the correct code is rejected once the budget is spent.
	_, err = flow.VerifyOTP(ctx, "a@x.com", code)
	assert.True(t, goerrors.Is(err, accounts.ErrTooManyAttempts))
}

func TestVerifyOTPExpired(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}

	issued := time.Now()
	current := issued
	flow := newTestFlow(t, repo, mailer, func() time.Time { return current })
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)

	current = issued.Add(accounts.OTPExpiry + time.Minute)
	_, err = flow.VerifyOTP(ctx, "a@x.com", mailer.lastCode())
	assert.True(t, goerrors.Is(err, accounts.ErrOTPExpired))

	// Expiry removes the staged record entirely.
	_, err = flow.VerifyOTP(ctx, "a@x.com", mailer.lastCode())
	assert.True(t, goerrors.Is(err, accounts.ErrRegistrationNotFound))
}

func TestVerifyOTPLostPromotionRace(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &captureMailer{}
	flow := newTestFlow(t, repo, mailer, nil)
	ctx := context.Background()

	_, err := flow.Signup(ctx, signupInput("a@x.com"))
	require.NoError(t, err)

	// The email gets claimed while the code is in flight.
	_, err = repo.users.Create(ctx, &accounts.User{
		Email:        "a@x.com",
		FullName:     "Racer",
		PasswordHash: "h",
	})
	require.NoError(t, err)

	// The correct code must surface the same error as a duplicate signup,
	// not the store-level conflict.
	_, err = flow.VerifyOTP(ctx, "a@x.com", mailer.lastCode())
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, accounts.ErrAlreadyRegistered))
	assert.False(t, goerrors.Is(err, accounts.ErrDuplicateEmail))

	// The staged record survives the rollback.
	_, err = repo.pending.GetByEmail(ctx, "a@x.com")
	assert.NoError(t, err)
}

func TestVerifyOTPUnknownEmail(t *testing.T) {
	flow := newTestFlow(t, newMemoryRepo(), &captureMailer{}, nil)
	_, err := flow.VerifyOTP(context.Background(), "nobody@x.com", "123456")
	assert.True(t, goerrors.Is(err, accounts.ErrRegistrationNotFound))
}

// wrongCode returns a six digit code guaranteed to differ from the input.
func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
