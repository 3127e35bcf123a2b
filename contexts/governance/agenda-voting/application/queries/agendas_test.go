package queries_test

import (
	"context"
	"testing"
	"time"

	"assembly/contexts/governance/agenda-voting/adapters/memory"
	"assembly/contexts/governance/agenda-voting/application/queries"
	"assembly/contexts/governance/agenda-voting/application/sessions"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var queryNow = time.Date(2026, 7, 20, 18, 30, 0, 0, time.UTC)

func newQueries(store *memory.Store) queries.AgendaQueries {
	return queries.AgendaQueries{
		Agendas:  store,
		Votes:    store,
		Sessions: sessions.Tracker{Sessions: store, IDGen: store},
		Clock:    fixedClock(queryNow),
	}
}

func putAgenda(t *testing.T, store *memory.Store, id string, createdAt time.Time, status entities.AgendaStatus) {
	t.Helper()
	agenda := entities.NewAgenda(id, "agenda "+id, "", createdAt)
	agenda.Status = status
	require.NoError(t, store.CreateAgenda(context.Background(), agenda, ports.EventEnvelope{EventID: "evt-" + id}))
}

func TestListAgendasNewestFirstWithFilter(t *testing.T) {
	store := memory.NewStore()
	putAgenda(t, store, "a-1", queryNow.Add(-3*time.Hour), entities.AgendaStatusOpen)
	putAgenda(t, store, "a-2", queryNow.Add(-2*time.Hour), entities.AgendaStatusDraft)
	putAgenda(t, store, "a-3", queryNow.Add(-time.Hour), entities.AgendaStatusOpen)
	q := newQueries(store)

	all, err := q.ListAgendas(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-3", all[0].AgendaID)
	assert.Equal(t, "a-1", all[2].AgendaID)

	open, err := q.ListAgendas(context.Background(), entities.AgendaStatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "a-3", open[0].AgendaID)
}

func TestListVotesRequiresAgenda(t *testing.T) {
	q := newQueries(memory.NewStore())
	_, err := q.ListVotes(context.Background(), "missing")
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotFound)
	_, err = q.GetAgenda(context.Background(), " ")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestGetSessionStatus(t *testing.T) {
	store := memory.NewStore()
	putAgenda(t, store, "a-1", queryNow.Add(-time.Hour), entities.AgendaStatusInProgress)
	q := newQueries(store)

	_, err := q.GetSessionStatus(context.Background(), "a-1")
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

	previous, err := entities.NewSession("s-1", "a-1", queryNow.Add(-time.Hour), 20)
	require.NoError(t, err)
	current, err := entities.NewSession("s-2", "a-1", queryNow.Add(-5*time.Minute), 15)
	require.NoError(t, err)
	require.NoError(t, store.WithinAgenda(context.Background(), "a-1", func(ctx context.Context, tx ports.AgendaTx) error {
		if err := tx.SaveSession(ctx, current); err != nil {
			return err
		}
		return tx.SaveSession(ctx, previous)
	}))

	status, err := q.GetSessionStatus(context.Background(), "a-1")
	require.NoError(t, err)
	assert.True(t, status.Active)
	require.NotNil(t, status.Current)
	assert.Equal(t, "s-2", status.Current.SessionID)
	assert.Equal(t, 10*time.Minute, status.Remaining)
	require.Len(t, status.History, 2)
	assert.Equal(t, "s-1", status.History[0].SessionID)
}
