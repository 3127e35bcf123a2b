package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"assembly/contexts/governance/agenda-voting/adapters/memory"
	"assembly/contexts/governance/agenda-voting/application/commands"
	"assembly/contexts/governance/agenda-voting/application/sessions"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	"assembly/internal/platform/idempotency"

	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store   *memory.Store
	cache   *idempotency.Cache
	clock   *manualClock
	agendas commands.AgendaUseCase
	votes   commands.VoteUseCase
}

func newFixture(t *testing.T, voterIDs ...string) *fixture {
	t.Helper()
	clock := &manualClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	for _, id := range voterIDs {
		store.SetUser(entities.Voter{UserID: id, Name: id})
	}
	cache := idempotency.New(idempotency.WithClock(clock.Now))
	return &fixture{
		store: store,
		cache: cache,
		clock: clock,
		agendas: commands.AgendaUseCase{
			Agendas:     store,
			UnitOfWork:  store,
			Sessions:    sessions.Tracker{Sessions: store, IDGen: store},
			Idempotency: cache,
			Clock:       clock,
			IDGen:       store,
		},
		votes: commands.VoteUseCase{
			UnitOfWork:  store,
			Users:       store,
			Idempotency: cache,
			Clock:       clock,
			IDGen:       store,
		},
	}
}

func (f *fixture) createAgenda(t *testing.T, title string) entities.Agenda {
	t.Helper()
	result, err := f.agendas.CreateAgenda(context.Background(), commands.CreateAgendaCommand{Title: title})
	require.NoError(t, err)
	return result.Agenda
}

func (f *fixture) openAgenda(t *testing.T, title string) entities.Agenda {
	t.Helper()
	agenda := f.createAgenda(t, title)
	result, err := f.agendas.OpenAgenda(context.Background(), agenda.AgendaID)
	require.NoError(t, err)
	return result.Agenda
}

func (f *fixture) startSession(t *testing.T, agendaID string, minutes int) commands.SessionResult {
	t.Helper()
	result, err := f.agendas.StartAgendaTimer(context.Background(), commands.StartAgendaTimerCommand{
		AgendaID:        agendaID,
		DurationMinutes: minutes,
	})
	require.NoError(t, err)
	return result
}
