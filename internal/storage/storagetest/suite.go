// Package storagetest holds the behaviour every event.Repository must share.
// Backends run it from their own tests.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
)

// RunRepositorySuite runs the shared repository tests against a fresh
// repository per subtest.
func RunRepositorySuite(t *testing.T, newRepo func(t *testing.T) event.Repository) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo event.Repository)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"RosterAndExclusions", testRosterAndExclusions},
		{"RollbackOnError", testRollbackOnError},
		{"RemoveParticipantDropsExclusions", testRemoveParticipant},
		{"StageCompareAndSwap", testStageCompareAndSwap},
		{"RevealBeforeAssignment", testRevealBeforeAssignment},
		{"RevealIsIdempotent", testRevealIsIdempotent},
		{"ConcurrentAssignCommitsOnce", testConcurrentAssign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

func newEvent(t *testing.T, repo event.Repository) *event.Event {
	t.Helper()
	e := event.NewEvent("Office exchange", "", "hash")
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

// seedRoster adds n participants and returns them in insertion order.
func seedRoster(t *testing.T, repo event.Repository, e *event.Event, n int) []*participant.Participant {
	t.Helper()
	ps := make([]*participant.Participant, n)
	err := repo.Transact(context.Background(), e.ID, func(tx event.Tx) error {
		for i := range ps {
			ps[i] = participant.NewParticipant(e.ID, string(rune('A'+i)), "")
			if err := tx.AddParticipant(ps[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return ps
}

// ring returns tickets where each participant gives to the next one.
func ring(ps []*participant.Participant) []draw.Ticket {
	tickets := make([]draw.Ticket, len(ps))
	for i, p := range ps {
		tickets[i] = draw.Ticket{Giver: p.Key(), Recipient: ps[(i+1)%len(ps)].Key()}
	}
	return tickets
}

func assign(t *testing.T, repo event.Repository, e *event.Event, tickets []draw.Ticket) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.Transact(context.Background(), e.ID, func(tx event.Tx) error {
		if err := tx.SetStage(event.StageOpen, event.StageLocked, now); err != nil {
			return err
		}
		if err := tx.SetStage(event.StageLocked, event.StageAssigned, now); err != nil {
			return err
		}
		return tx.SaveTickets(tickets)
	})
	require.NoError(t, err)
}

// AssignedEvent creates an assigned event of n participants drawn as a ring
// and returns it with its first giver.
func AssignedEvent(t *testing.T, repo event.Repository, n int) (eventID, giver uuid.UUID) {
	t.Helper()
	e := newEvent(t, repo)
	ps := seedRoster(t, repo, e, n)
	assign(t, repo, e, ring(ps))
	return e.ID, ps[0].ID
}

func testCreateAndGet(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, event.StageOpen, got.Stage)
	assert.Equal(t, "hash", got.OrganizerKeyHash)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, e.ID, all[0].ID)

	err = repo.Transact(ctx, uuid.New(), func(event.Tx) error { return nil })
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testRosterAndExclusions(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)
	ps := seedRoster(t, repo, e, 4)

	pair := exclusion.NewPair(ps[0].Key(), ps[1].Key())
	require.NoError(t, repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.ReplaceExclusions([]exclusion.Pair{pair})
	}))

	got, err := repo.ListParticipants(ctx, e.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, participant.Keys(ps), participant.Keys(got))

	pairs, err := repo.ListExclusions(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []exclusion.Pair{pair}, pairs)

	// replacing is total, not additive
	other := exclusion.NewPair(ps[2].Key(), ps[3].Key())
	require.NoError(t, repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.ReplaceExclusions([]exclusion.Pair{other})
	}))
	pairs, err = repo.ListExclusions(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []exclusion.Pair{other}, pairs)

	_, err = repo.ListParticipants(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testRollbackOnError(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)
	boom := errors.New("boom")

	err := repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		if err := tx.AddParticipant(participant.NewParticipant(e.ID, "Ana", "")); err != nil {
			return err
		}
		if err := tx.SetStage(event.StageOpen, event.StageLocked, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ps, err := repo.ListParticipants(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, ps)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageOpen, got.Stage)
}

func testRemoveParticipant(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)
	ps := seedRoster(t, repo, e, 3)

	require.NoError(t, repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.ReplaceExclusions([]exclusion.Pair{
			exclusion.NewPair(ps[0].Key(), ps[1].Key()),
			exclusion.NewPair(ps[1].Key(), ps[2].Key()),
		})
	}))
	require.NoError(t, repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.RemoveParticipant(ps[0].ID)
	}))

	pairs, err := repo.ListExclusions(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []exclusion.Pair{exclusion.NewPair(ps[1].Key(), ps[2].Key())}, pairs)

	got, err := repo.ListParticipants(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	err = repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.RemoveParticipant(uuid.New())
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testStageCompareAndSwap(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)
	now := time.Now().UTC()

	require.NoError(t, repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		if err := tx.SetStage(event.StageOpen, event.StageLocked, now); err != nil {
			return err
		}
		assert.Equal(t, event.StageLocked, tx.Event().Stage)
		return nil
	}))

	err := repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.SetStage(event.StageOpen, event.StageLocked, now)
	})
	assert.ErrorIs(t, err, common.ErrStageConflict)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageLocked, got.Stage)
	assert.NotNil(t, got.LockedAt)

	require.NoError(t, repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.SetStage(event.StageLocked, event.StageOpen, now)
	}))
	got, err = repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageOpen, got.Stage)
	assert.Nil(t, got.LockedAt)
}

func testRevealBeforeAssignment(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)
	ps := seedRoster(t, repo, e, 3)

	_, err := repo.Tickets(ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrNotReady)

	_, _, err = repo.RevealTicket(ctx, e.ID, ps[0].ID, time.Now())
	assert.ErrorIs(t, err, common.ErrNotReady)

	_, _, err = repo.RevealTicket(ctx, uuid.New(), ps[0].ID, time.Now())
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		_, err := tx.Tickets()
		return err
	})
	assert.ErrorIs(t, err, common.ErrNotReady)
}

func testRevealIsIdempotent(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)
	ps := seedRoster(t, repo, e, 3)
	assign(t, repo, e, ring(ps))

	first := time.Now().UTC()
	t1, isFirst, err := repo.RevealTicket(ctx, e.ID, ps[0].ID, first)
	require.NoError(t, err)
	assert.True(t, isFirst)
	assert.Equal(t, ps[1].Key(), t1.Recipient)
	assert.Equal(t, draw.Revealed, t1.State)

	t2, isFirst, err := repo.RevealTicket(ctx, e.ID, ps[0].ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, isFirst)
	assert.Equal(t, t1.Recipient, t2.Recipient)
	require.NotNil(t, t2.RevealedAt)
	assert.WithinDuration(t, first, *t2.RevealedAt, time.Second)

	_, _, err = repo.RevealTicket(ctx, e.ID, uuid.New(), first)
	assert.ErrorIs(t, err, common.ErrNotReady)

	tickets, err := repo.Tickets(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	revealed := 0
	for _, tk := range tickets {
		if tk.State == draw.Revealed {
			revealed++
		}
	}
	assert.Equal(t, 1, revealed)

	err = repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.SaveTickets(ring(ps))
	})
	assert.Error(t, err, "a second assignment must not be stored")
}

func testConcurrentAssign(t *testing.T, repo event.Repository) {
	ctx := context.Background()
	e := newEvent(t, repo)
	ps := seedRoster(t, repo, e, 4)
	require.NoError(t, repo.Transact(ctx, e.ID, func(tx event.Tx) error {
		return tx.SetStage(event.StageOpen, event.StageLocked, time.Now())
	}))

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Transact(ctx, e.ID, func(tx event.Tx) error {
				if err := tx.SetStage(event.StageLocked, event.StageAssigned, time.Now()); err != nil {
					return err
				}
				return tx.SaveTickets(ring(ps))
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, common.ErrStageConflict):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, conflict)

	tickets, err := repo.Tickets(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 4)
}
