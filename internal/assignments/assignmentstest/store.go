// Package assignmentstest provides an in-memory assignment store for tests
// of packages that drive the assignment manager.
package assignmentstest

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"pestcontrol_backend/internal/assignments/domain"
	"pestcontrol_backend/internal/assignments/repository"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

// Store mirrors repository.Repository, including the one-active-per-client
// unique index.
type Store struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Assignment
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{rows: make(map[uuid.UUID]domain.Assignment)}
}

// Snapshot implements dbtest.Snapshotter.
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	saved := maps.Clone(s.rows)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.rows = saved
		s.mu.Unlock()
	}
}

// Seed inserts a row directly.
func (s *Store) Seed(a domain.Assignment) domain.Assignment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	s.mu.Lock()
	s.rows[a.ID] = a
	s.mu.Unlock()
	return a
}

// Rows returns every row for a client, newest first.
func (s *Store) Rows(clientID uuid.UUID) []domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byClient(clientID)
}

// ActiveCount returns how many active rows exist for a client.
func (s *Store) ActiveCount(clientID uuid.UUID) int {
	n := 0
	for _, a := range s.Rows(clientID) {
		if a.IsActive() {
			n++
		}
	}
	return n
}

func (s *Store) byClient(clientID uuid.UUID) []domain.Assignment {
	out := make([]domain.Assignment, 0)
	for _, a := range s.rows {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Assignment) int { return b.AssignedAt.Compare(a.AssignedAt) })
	return out
}

func (s *Store) hasOtherActive(clientID, exceptID uuid.UUID) bool {
	for _, a := range s.rows {
		if a.ClientID == clientID && a.ID != exceptID && a.IsActive() {
			return true
		}
	}
	return false
}

func (s *Store) FindActive(_ context.Context, _ db.DBTX, clientID uuid.UUID) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if a.ClientID == clientID && a.IsActive() {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) FindLatest(_ context.Context, _ db.DBTX, clientID, pcoID uuid.UUID) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byClient(clientID) {
		if a.PcoID == pcoID {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) ListByClient(_ context.Context, _ db.DBTX, clientID uuid.UUID) ([]domain.Assignment, error) {
	return s.Rows(clientID), nil
}

func (s *Store) Insert(_ context.Context, _ db.DBTX, a domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.IsActive() && s.hasOtherActive(a.ClientID, a.ID) {
		return repository.ErrActiveExists
	}
	s.rows[a.ID] = a
	return nil
}

func (s *Store) Reactivate(_ context.Context, _ db.DBTX, id uuid.UUID, by *uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil
	}
	if s.hasOtherActive(a.ClientID, id) {
		return repository.ErrActiveExists
	}
	a.Status = domain.StatusActive
	a.AssignedAt = at
	if by != nil {
		a.AssignedBy = by
	}
	a.UnassignedAt = nil
	a.UnassignedBy = nil
	s.rows[id] = a
	return nil
}

func (s *Store) Deactivate(_ context.Context, _ db.DBTX, clientID, pcoID uuid.UUID, by *uuid.UUID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.rows {
		if a.ClientID == clientID && a.PcoID == pcoID && a.IsActive() {
			a.Status = domain.StatusInactive
			a.UnassignedAt = &at
			a.UnassignedBy = by
			s.rows[id] = a
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteInactive(_ context.Context, _ db.DBTX, clientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.rows {
		if a.ClientID == clientID && !a.IsActive() {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *Store) DeletePair(_ context.Context, _ db.DBTX, clientID, pcoID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.rows {
		if a.ClientID == clientID && a.PcoID == pcoID {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAll(_ context.Context, _ db.DBTX, clientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.rows {
		if a.ClientID == clientID {
			delete(s.rows, id)
		}
	}
	return nil
}
