package service

import (
	"context"
	"testing"
	"time"

	"pestcontrol_backend/internal/assignments/assignmentstest"
	"pestcontrol_backend/internal/assignments/domain"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var _ Store = (*assignmentstest.Store)(nil)

func newManager(t *testing.T) (*Manager, *assignmentstest.Store, *dbtest.Transactor) {
	t.Helper()
	store := assignmentstest.NewStore()
	tx := dbtest.NewTransactor(store)
	m := New(store, tx, nil, nil)
	clock := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return m, store, tx
}

func TestOnSubmitReleasesActiveAndDropsStaleRows(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1, t0 := uuid.New(), uuid.New(), uuid.New()

	store.Seed(domain.Assignment{ClientID: client, PcoID: t0, Status: domain.StatusInactive, AssignedAt: time.Now().Add(-48 * time.Hour)})
	store.Seed(domain.Assignment{ClientID: client, PcoID: t1, Status: domain.StatusActive})

	require.NoError(t, m.OnSubmit(ctx, nil, client, t1))

	rows := store.Rows(client)
	require.Len(t, rows, 1)
	require.Equal(t, t1, rows[0].PcoID)
	require.Equal(t, domain.StatusInactive, rows[0].Status)
	require.NotNil(t, rows[0].UnassignedAt)
	require.Equal(t, 0, store.ActiveCount(client))
}

func TestOnDeclineReactivatesOriginalTechnician(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1, admin := uuid.New(), uuid.New(), uuid.New()

	seeded := store.Seed(domain.Assignment{ClientID: client, PcoID: t1, Status: domain.StatusActive})
	require.NoError(t, m.OnSubmit(ctx, nil, client, t1))

	outcome, err := m.OnDecline(ctx, nil, client, t1, admin)
	require.NoError(t, err)

	restored, ok := outcome.(domain.DeclineRestored)
	require.True(t, ok, "expected restored outcome, got %T", outcome)
	require.Equal(t, domain.RestoreReactivated, restored.Action)
	require.Equal(t, seeded.ID, restored.Assignment.ID, "row must be reactivated, not replaced")

	rows := store.Rows(client)
	require.Len(t, rows, 1)
	require.True(t, rows[0].IsActive())
}

func TestOnDeclineConflictsWhenClientReassigned(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1, t2, admin := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	store.Seed(domain.Assignment{ClientID: client, PcoID: t1, Status: domain.StatusActive})
	require.NoError(t, m.OnSubmit(ctx, nil, client, t1))
	_, err := m.Assign(ctx, client, t2, admin)
	require.NoError(t, err)

	outcome, err := m.OnDecline(ctx, nil, client, t1, admin)
	require.NoError(t, err)

	conflict, ok := outcome.(domain.DeclineConflict)
	require.True(t, ok, "expected conflict, got %T", outcome)
	require.Equal(t, t2, conflict.CurrentPcoID)
	require.Equal(t, t1, conflict.OriginalPcoID)

	active, err := m.ActivePco(ctx, nil, client)
	require.NoError(t, err)
	require.Equal(t, t2, *active)
}

func TestOnDeclineCreatesWhenNoRowExists(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1, admin := uuid.New(), uuid.New(), uuid.New()

	outcome, err := m.OnDecline(ctx, nil, client, t1, admin)
	require.NoError(t, err)

	restored, ok := outcome.(domain.DeclineRestored)
	require.True(t, ok)
	require.Equal(t, domain.RestoreCreated, restored.Action)
	require.Equal(t, 1, store.ActiveCount(client))
}

func TestOnDeclineKeepsExistingActiveForSameTechnician(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1, admin := uuid.New(), uuid.New(), uuid.New()
	store.Seed(domain.Assignment{ClientID: client, PcoID: t1, Status: domain.StatusActive})

	outcome, err := m.OnDecline(ctx, nil, client, t1, admin)
	require.NoError(t, err)
	require.Equal(t, domain.RestoreKept, outcome.(domain.DeclineRestored).Action)
	require.Equal(t, 1, store.ActiveCount(client))
}

func TestOnForceDeclineOverridesOtherTechnician(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1, t2, admin := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	store.Seed(domain.Assignment{ClientID: client, PcoID: t2, Status: domain.StatusActive})
	store.Seed(domain.Assignment{ClientID: client, PcoID: t1, Status: domain.StatusInactive})

	a, err := m.OnForceDecline(ctx, nil, client, t1, admin)
	require.NoError(t, err)
	require.Equal(t, t1, a.PcoID)

	rows := store.Rows(client)
	require.Len(t, rows, 1)
	require.Equal(t, t1, rows[0].PcoID)
	require.True(t, rows[0].IsActive())
}

func TestOnCloseDeletesPair(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1 := uuid.New(), uuid.New()
	store.Seed(domain.Assignment{ClientID: client, PcoID: t1, Status: domain.StatusInactive})

	require.NoError(t, m.OnClose(ctx, nil, client, t1))
	require.Empty(t, store.Rows(client))
}

func TestRequireActive(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	client, t1, t2 := uuid.New(), uuid.New(), uuid.New()
	store.Seed(domain.Assignment{ClientID: client, PcoID: t1, Status: domain.StatusActive})

	require.NoError(t, m.RequireActive(ctx, nil, client, t1))
	err := m.RequireActive(ctx, nil, client, t2)
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestAssignNeverLeavesTwoActiveRows(t *testing.T) {
	m, store, tx := newManager(t)
	ctx := context.Background()
	client, t1, t2, admin := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	_, err := m.Assign(ctx, client, t1, admin)
	require.NoError(t, err)
	_, err = m.Assign(ctx, client, t2, admin)
	require.NoError(t, err)
	again, err := m.Assign(ctx, client, t1, admin)
	require.NoError(t, err)

	require.Equal(t, t1, again.PcoID)
	require.Equal(t, 1, store.ActiveCount(client))
	require.Len(t, store.Rows(client), 2)
	require.Equal(t, 3, tx.Commits)
}

func TestUnassignWithoutActiveIsNotFound(t *testing.T) {
	m, _, tx := newManager(t)
	err := m.Unassign(context.Background(), uuid.New(), uuid.New())
	require.True(t, apperr.Is(err, apperr.KindNotFound))
	require.Equal(t, 1, tx.Rollbacks)
}
