package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the transaction boundary
// the promotion step runs inside.
type RepositoryManager interface {
	Users() Users
	PendingRegistrations() PendingRegistrations
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db      *bun.DB
	users   Users
	pending PendingRegistrations
}

// NewRepositoryManager wires the bun-backed stores over a shared handle.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:      db,
		users:   NewUsersRepository(db),
		pending: NewPendingRegistrationsRepository(db),
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) PendingRegistrations() PendingRegistrations {
	return m.pending
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.pending == nil {
		return errors.New("repository pendingRegistrations should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}
