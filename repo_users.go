package accounts

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the system of record for confirmed identities. Email uniqueness is
// a hard invariant enforced by the table's unique index; Create surfaces a
// violation as a conflict rather than papering over it.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the bun-backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user by email")
	}
	return record, nil
}

func (r *users) GetByID(ctx context.Context, id string) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user by id")
	}
	return record, nil
}

func (r *users) Create(ctx context.Context, user *User) (*User, error) {
	return r.CreateTx(ctx, r.db, user)
}

func (r *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	user.Email = NormalizeEmail(user.Email)
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}

	return user, nil
}

func (r *users) Update(ctx context.Context, user *User) (*User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	user.UpdatedAt = &now

	res, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}

	return user, nil
}

func (r *users) List(ctx context.Context) ([]*User, error) {
	var records []*User
	err := r.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}
	return records, nil
}

// isUniqueViolation detects a unique-key constraint failure across the
// drivers the service runs on: SQLState 23505 on postgres, constraint text
// on sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	type pgError interface{ SQLState() string }
	var pgErr pgError
	if goerrors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "unique")
}
