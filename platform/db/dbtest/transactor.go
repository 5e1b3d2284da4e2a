// Package dbtest provides an in-memory stand-in for db.Transactor so service
// tests can assert commit and rollback behaviour without Postgres.
package dbtest

import (
	"context"
	"sync"

	"pestcontrol_backend/platform/db"
)

// Snapshotter is implemented by in-memory stores that can roll back.
type Snapshotter interface {
	// Snapshot captures the current state and returns a function restoring it.
	Snapshot() (restore func())
}

// Transactor runs fn with a nil DBTX. When fn fails every registered store
// is restored to the state it had when the transaction began.
type Transactor struct {
	mu        sync.Mutex
	stores    []Snapshotter
	Commits   int
	Rollbacks int
	// FailCommit makes the next commit fail after fn succeeded.
	FailCommit error
}

// NewTransactor creates a Transactor guarding the given stores.
func NewTransactor(stores ...Snapshotter) *Transactor {
	return &Transactor{stores: stores}
}

// Track adds stores to roll back.
func (t *Transactor) Track(stores ...Snapshotter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stores = append(t.stores, stores...)
}

// WithinTx implements db.Transactor.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, q db.DBTX) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.Snapshot())
	}

	err := fn(ctx, nil)
	if err == nil && t.FailCommit != nil {
		err, t.FailCommit = t.FailCommit, nil
	}
	if err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		t.Rollbacks++
		return err
	}
	t.Commits++
	return nil
}

var _ db.Transactor = (*Transactor)(nil)
