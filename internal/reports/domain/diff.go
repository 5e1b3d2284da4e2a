package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownID is returned when an incoming item references a row the report
// does not own.
var ErrUnknownID = errors.New("unknown id")

// DiffPlan partitions an incoming collection against the stored one.
type DiffPlan[T any] struct {
	Update []T
	Insert []T
	Delete []uuid.UUID
}

// PlanDiff compares stored ids with incoming items: items with a stored id
// are updates, items without an id are inserts, and stored ids absent from
// the payload are deleted. Incoming ids that are not stored, or repeat, are
// rejected.
func PlanDiff[T any](existing []uuid.UUID, incoming []T, idOf func(T) *uuid.UUID) (DiffPlan[T], error) {
	stored := make(map[uuid.UUID]bool, len(existing))
	for _, id := range existing {
		stored[id] = false
	}

	var plan DiffPlan[T]
	for _, item := range incoming {
		id := idOf(item)
		if id == nil || *id == uuid.Nil {
			plan.Insert = append(plan.Insert, item)
			continue
		}
		seen, ok := stored[*id]
		if !ok {
			return DiffPlan[T]{}, fmt.Errorf("%w: %s", ErrUnknownID, id)
		}
		if seen {
			return DiffPlan[T]{}, fmt.Errorf("duplicate id: %s", id)
		}
		stored[*id] = true
		plan.Update = append(plan.Update, item)
	}

	for _, id := range existing {
		if !stored[id] {
			plan.Delete = append(plan.Delete, id)
		}
	}
	return plan, nil
}
