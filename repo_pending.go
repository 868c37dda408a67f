package accounts

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PendingRegistrations is the staging store for unconfirmed signups. One
// record per email; Upsert implements the resubmit semantics (profile and
// passcode state overwritten in place, store-assigned id preserved).
// Concurrent signups for the same email may race; last write wins, which is
// acceptable because the passcode proves inbox possession, not ordering.
type PendingRegistrations interface {
	GetByEmail(ctx context.Context, email string) (*PendingRegistration, error)
	Upsert(ctx context.Context, rec *PendingRegistration) (*PendingRegistration, error)
	Update(ctx context.Context, rec *PendingRegistration) error
	Delete(ctx context.Context, email string) error
	DeleteTx(ctx context.Context, tx bun.IDB, email string) error
}

type pendingRegistrations struct {
	db *bun.DB
}

var _ PendingRegistrations = (*pendingRegistrations)(nil)

// NewPendingRegistrationsRepository creates the bun-backed staging store.
func NewPendingRegistrationsRepository(db *bun.DB) PendingRegistrations {
	return &pendingRegistrations{db: db}
}

func (r *pendingRegistrations) GetByEmail(ctx context.Context, email string) (*PendingRegistration, error) {
	record := &PendingRegistration{}
	err := r.db.NewSelect().
		Model(record).
		Where("email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("pending registration not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query pending registration")
	}
	return record, nil
}

func (r *pendingRegistrations) Upsert(ctx context.Context, rec *PendingRegistration) (*PendingRegistration, error) {
	rec.Email = NormalizeEmail(rec.Email)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = &now

	_, err := r.db.NewInsert().
		Model(rec).
		On("CONFLICT (email) DO UPDATE").
		Set("full_name = EXCLUDED.full_name").
		Set("date_of_birth = EXCLUDED.date_of_birth").
		Set("organization_type = EXCLUDED.organization_type").
		Set("organization_name = EXCLUDED.organization_name").
		Set("password_hash = EXCLUDED.password_hash").
		Set("otp_code = EXCLUDED.otp_code").
		Set("otp_issued_at = EXCLUDED.otp_issued_at").
		Set("otp_attempts = EXCLUDED.otp_attempts").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to upsert pending registration")
	}

	return rec, nil
}

func (r *pendingRegistrations) Update(ctx context.Context, rec *PendingRegistration) error {
	_, err := r.db.NewUpdate().
		Model(rec).
		Column("otp_code", "otp_issued_at", "otp_attempts").
		Where("email = ?", rec.Email).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update pending registration")
	}
	return nil
}

func (r *pendingRegistrations) Delete(ctx context.Context, email string) error {
	return r.DeleteTx(ctx, r.db, email)
}

func (r *pendingRegistrations) DeleteTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().
		Model((*PendingRegistration)(nil)).
		Where("email = ?", NormalizeEmail(email)).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete pending registration")
	}
	return nil
}
