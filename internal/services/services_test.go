package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/drawnames-api/internal/auth"
	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
	"github.com/gravadigital/drawnames-api/internal/metrics"
	"github.com/gravadigital/drawnames-api/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	repo   *memory.EventRepository
	events *EventService
	draws  *DrawService
	tokens *auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewEventRepository()
	tokens := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	return &fixture{
		repo:   repo,
		events: NewEventService(repo, auth.NewOrganizerKeys(bcrypt.MinCost), tokens),
		draws:  NewDrawService(repo, draw.NewGenerator(draw.DefaultOptions()), metrics.New(prometheus.NewRegistry())),
		tokens: tokens,
	}
}

// newEvent creates an event with the named participants and returns them by name.
func (f *fixture) newEvent(t *testing.T, names ...string) (*event.Event, map[string]*participant.Participant) {
	t.Helper()
	ctx := context.Background()
	created, err := f.events.CreateEvent(ctx, CreateEventRequest{Name: "Secret Santa"})
	require.NoError(t, err)

	byName := make(map[string]*participant.Participant, len(names))
	for _, name := range names {
		joined, err := f.events.AddParticipant(ctx, created.Event.ID, JoinRequest{Name: name})
		require.NoError(t, err)
		assert.NotEmpty(t, joined.Token)
		byName[name] = joined.Participant
	}
	return created.Event, byName
}

func exclude(a, b *participant.Participant) ExclusionEdit {
	return ExclusionEdit{Op: ExclusionAdd, A: a.ID, B: b.ID}
}

func TestLifecycle_PartnersScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, p := f.newEvent(t, "A", "B", "C", "D")

	feas, err := f.draws.ConfigureExclusions(ctx, e.ID, []ExclusionEdit{exclude(p["A"], p["B"])})
	require.NoError(t, err)
	assert.True(t, feas.Feasible)
	assert.Equal(t, 4, feas.Participants)

	locked, err := f.draws.Lock(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageLocked, locked.Stage)

	_, err = f.events.AddParticipant(ctx, e.ID, JoinRequest{Name: "Late"})
	assert.ErrorIs(t, err, common.ErrStageConflict)
	_, err = f.draws.ConfigureExclusions(ctx, e.ID, []ExclusionEdit{exclude(p["C"], p["D"])})
	assert.ErrorIs(t, err, common.ErrStageConflict)

	assigned, err := f.draws.Assign(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageAssigned, assigned.Event.Stage)
	assert.Equal(t, 4, assigned.Participants)

	allowed := []uuid.UUID{p["C"].ID, p["D"].ID}
	for _, name := range []string{"A", "B"} {
		rev, err := f.draws.Reveal(ctx, e.ID, p[name].ID)
		require.NoError(t, err)
		assert.Contains(t, allowed, rev.Recipient.ID)
		assert.True(t, rev.First)
	}

	again, err := f.draws.Reveal(ctx, e.ID, p["A"].ID)
	require.NoError(t, err)
	assert.False(t, again.First)
	want, _ := assigned.Assignment.Recipient(p["A"].Key())
	assert.Equal(t, want, again.Recipient.ID.String())

	progress, err := f.draws.Progress(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, &Progress{Stage: event.StageAssigned, Revealed: 2, Total: 4}, progress)
}

func TestLock_InfeasibleStaysOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, p := f.newEvent(t, "A", "B", "C")

	feas, err := f.draws.ConfigureExclusions(ctx, e.ID, []ExclusionEdit{
		exclude(p["A"], p["B"]),
		exclude(p["A"], p["C"]),
	})
	require.NoError(t, err)
	assert.False(t, feas.Feasible)
	require.Len(t, feas.Blocking, 1)
	assert.Equal(t, "A", feas.Blocking[0].Name)

	_, err = f.draws.Lock(ctx, e.ID)
	require.ErrorIs(t, err, common.ErrInfeasible)
	var infeasible *InfeasibleError
	require.True(t, errors.As(err, &infeasible))
	assert.Equal(t, []ParticipantRef{{ID: p["A"].ID, Name: "A"}}, infeasible.Blocking)
	assert.Contains(t, err.Error(), "A")

	got, err := f.events.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageOpen, got.Stage)
}

func TestLock_TooFewParticipants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, _ := f.newEvent(t, "A", "B")

	feas, err := f.draws.CheckFeasibility(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, feas.Feasible)
	assert.NotEmpty(t, feas.Message)

	_, err = f.draws.Lock(ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrTooFewParticipants)
}

func TestAssign_RequiresLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, p := f.newEvent(t, "A", "B", "C")

	_, err := f.draws.Assign(ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrStageConflict)

	_, err = f.draws.Reveal(ctx, e.ID, p["A"].ID)
	assert.ErrorIs(t, err, common.ErrNotReady)

	_, err = f.draws.Assign(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestConfigureExclusions_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, p := f.newEvent(t, "A", "B", "C", "D")

	stranger := participant.NewParticipant(e.ID, "Z", "")
	_, err := f.draws.ConfigureExclusions(ctx, e.ID, []ExclusionEdit{
		exclude(p["A"], p["B"]),
		exclude(p["C"], stranger),
	})
	require.ErrorIs(t, err, common.ErrInvalidParticipant)

	pairs, err := f.draws.ListExclusions(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	_, err = f.draws.ConfigureExclusions(ctx, e.ID, []ExclusionEdit{
		exclude(p["A"], p["B"]),
		exclude(p["C"], p["D"]),
		{Op: ExclusionRemove, A: p["D"].ID, B: p["C"].ID},
	})
	require.NoError(t, err)
	pairs, err = f.draws.ListExclusions(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []exclusion.Pair{exclusion.NewPair(p["A"].Key(), p["B"].Key())}, pairs)
}

func TestUnlock_AllowsEditsAndRelock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, p := f.newEvent(t, "A", "B", "C", "D")

	_, err := f.draws.Lock(ctx, e.ID)
	require.NoError(t, err)

	opened, err := f.draws.Unlock(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageOpen, opened.Stage)

	require.NoError(t, f.events.RemoveParticipant(ctx, e.ID, p["D"].ID))
	_, err = f.draws.Lock(ctx, e.ID)
	require.NoError(t, err)
	_, err = f.draws.Assign(ctx, e.ID)
	require.NoError(t, err)

	_, err = f.draws.Unlock(ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrStageConflict, "nothing leaves assigned")
}

func TestAuthorizeOrganizer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.events.CreateEvent(ctx, CreateEventRequest{Name: "Team"})
	require.NoError(t, err)

	assert.NoError(t, f.events.AuthorizeOrganizer(ctx, created.Event.ID, created.OrganizerKey))
	assert.ErrorIs(t, f.events.AuthorizeOrganizer(ctx, created.Event.ID, "guess"), common.ErrUnauthorized)
	assert.ErrorIs(t, f.events.AuthorizeOrganizer(ctx, uuid.New(), created.OrganizerKey), common.ErrNotFound)

	_, err = f.events.CreateEvent(ctx, CreateEventRequest{Name: "x"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestAssign_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, _ := f.newEvent(t, "A", "B", "C", "D", "E", "F")
	_, err := f.draws.Lock(ctx, e.ID)
	require.NoError(t, err)

	// a second service over the same store stands in for another process
	other := NewDrawService(f.repo, draw.NewGenerator(draw.DefaultOptions()), nil)

	const callers = 24
	results := make([]*Assigned, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc := f.draws
			if i%2 == 1 {
				svc = other
			}
			results[i], errs[i] = svc.Assign(ctx, e.ID)
		}(i)
	}
	wg.Wait()

	tickets, err := f.repo.Tickets(ctx, e.ID)
	require.NoError(t, err)
	committed, err := draw.AssignmentOf(tickets)
	require.NoError(t, err)

	for i := range callers {
		require.NoError(t, errs[i], "caller %d", i)
		assert.True(t, committed.Equal(results[i].Assignment), "caller %d saw a different assignment", i)
	}
}

func TestAssign_OutlivesCancelledCaller(t *testing.T) {
	f := newFixture(t)
	e, _ := f.newEvent(t, "A", "B", "C", "D")
	_, err := f.draws.Lock(context.Background(), e.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assigned, err := f.draws.Assign(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageAssigned, assigned.Event.Stage)

	got, err := f.events.GetEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageAssigned, got.Stage)
}
