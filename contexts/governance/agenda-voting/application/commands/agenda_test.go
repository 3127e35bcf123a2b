package commands_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"assembly/contexts/governance/agenda-voting/application/commands"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
	contractsv1 "assembly/contracts/gen/events/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAgendaReplayCreatesSingleRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := commands.CreateAgendaCommand{Title: "Park renovation", Description: "phase one"}

	first, err := f.agendas.CreateAgenda(ctx, cmd)
	require.NoError(t, err)
	second, err := f.agendas.CreateAgenda(ctx, cmd)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Agenda, second.Agenda)

	agendas, err := f.store.ListAgendasByStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, agendas, 1)
}

func TestCreateAgendaRejectsDuplicateTitleWithDifferentArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.agendas.CreateAgenda(ctx, commands.CreateAgendaCommand{Title: "Park renovation"})
	require.NoError(t, err)

	_, err = f.agendas.CreateAgenda(ctx, commands.CreateAgendaCommand{Title: "Park renovation", Description: "other"})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateTitle)
}

func TestCreateAgendaRejectsBlankTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.agendas.CreateAgenda(context.Background(), commands.CreateAgendaCommand{Title: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestCreateAgendaRunsAgainAfterIdempotencyTTL(t *testing.T) {
	f := newFixture(t)
	f.agendas.IdempotencyTTL = time.Second
	ctx := context.Background()
	cmd := commands.CreateAgendaCommand{Title: "Street lights"}

	_, err := f.agendas.CreateAgenda(ctx, cmd)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Second)

	// The replay entry is gone, so the title check runs against stored state.
	_, err = f.agendas.CreateAgenda(ctx, cmd)
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateTitle)
}

func TestCreateAgendaEmitsCreatedEvent(t *testing.T) {
	f := newFixture(t)
	agenda := f.createAgenda(t, "Library hours")

	pending, err := f.store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, contractsv1.EventAgendaCreated, pending[0].EventType)
	assert.Equal(t, agenda.AgendaID, pending[0].PartitionKey)

	var envelope ports.EventEnvelope
	require.NoError(t, json.Unmarshal(pending[0].Payload, &envelope))
	assert.Equal(t, "agenda-voting", envelope.SourceService)
	assert.Equal(t, "agenda_id", envelope.PartitionKeyPath)
}

func TestStartAgendaTimerOpensSession(t *testing.T) {
	f := newFixture(t)
	agenda := f.openAgenda(t, "Bike lanes")

	result := f.startSession(t, agenda.AgendaID, 15)

	assert.Equal(t, entities.AgendaStatusInProgress, result.Agenda.Status)
	assert.Equal(t, f.clock.Now(), result.Session.StartTime)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), result.Session.EndTime)
	active, err := f.store.HasActiveSession(context.Background(), agenda.AgendaID, f.clock.Now())
	require.NoError(t, err)
	assert.True(t, active)
}

func TestStartAgendaTimerRejectsInvalidDurationBeforeAnyChange(t *testing.T) {
	f := newFixture(t)
	agenda := f.openAgenda(t, "Bike lanes")

	for _, minutes := range []int{0, -1, 1441} {
		_, err := f.agendas.StartAgendaTimer(context.Background(), commands.StartAgendaTimerCommand{
			AgendaID:        agenda.AgendaID,
			DurationMinutes: minutes,
		})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidDuration)
	}

	stored, err := f.store.GetAgenda(context.Background(), agenda.AgendaID)
	require.NoError(t, err)
	assert.Equal(t, entities.AgendaStatusOpen, stored.Status)
	history, err := f.store.ListSessionsByAgenda(context.Background(), agenda.AgendaID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStartAgendaTimerRejectsSecondActiveSession(t *testing.T) {
	f := newFixture(t)
	agenda := f.openAgenda(t, "Bike lanes")
	f.startSession(t, agenda.AgendaID, 10)

	_, err := f.agendas.StartAgendaTimer(context.Background(), commands.StartAgendaTimerCommand{
		AgendaID:        agenda.AgendaID,
		DurationMinutes: 5,
	})
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
}

func TestStartAgendaTimerAllowsNewWindowAfterPreviousElapsed(t *testing.T) {
	f := newFixture(t)
	agenda := f.openAgenda(t, "Bike lanes")
	f.startSession(t, agenda.AgendaID, 1)
	f.clock.Advance(2 * time.Minute)

	second := f.startSession(t, agenda.AgendaID, 5)
	assert.Equal(t, entities.AgendaStatusInProgress, second.Agenda.Status)

	history, err := f.store.ListSessionsByAgenda(context.Background(), agenda.AgendaID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStartAgendaTimerUnknownAgenda(t *testing.T) {
	f := newFixture(t)
	_, err := f.agendas.StartAgendaTimer(context.Background(), commands.StartAgendaTimerCommand{
		AgendaID:        "missing",
		DurationMinutes: 5,
	})
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotFound)
}

func TestFinalizeAgendaComputesResult(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()
	agenda := f.openAgenda(t, "Night market")
	f.startSession(t, agenda.AgendaID, 30)
	for _, vote := range []struct {
		user string
		kind entities.VoteType
	}{{"u1", entities.VoteTypeNo}, {"u2", entities.VoteTypeNo}, {"u3", entities.VoteTypeYes}} {
		_, err := f.votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agenda.AgendaID, UserID: vote.user, VoteType: vote.kind})
		require.NoError(t, err)
	}

	result, err := f.agendas.FinalizeAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.Equal(t, entities.AgendaStatusFinished, result.Agenda.Status)
	assert.Equal(t, entities.AgendaResultRejected, result.Agenda.Result)
	require.NotNil(t, result.Agenda.FinishedAt)

	// The running window is closed with the agenda.
	active, err := f.store.HasActiveSession(ctx, agenda.AgendaID, f.clock.Now())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestFinalizeAgendaRequiresInProgress(t *testing.T) {
	f := newFixture(t)
	agenda := f.openAgenda(t, "Night market")

	_, err := f.agendas.FinalizeAgenda(context.Background(), agenda.AgendaID)
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
}

func TestTerminalAgendaRejectsEveryMutation(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	agenda := f.openAgenda(t, "Dog park")
	_, err := f.agendas.CancelAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	before, err := f.store.GetAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)

	_, err = f.votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agenda.AgendaID, UserID: "u1", VoteType: entities.VoteTypeYes})
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotOpen)
	_, err = f.agendas.StartAgendaTimer(ctx, commands.StartAgendaTimerCommand{AgendaID: agenda.AgendaID, DurationMinutes: 5})
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
	_, err = f.agendas.FinalizeAgenda(ctx, agenda.AgendaID)
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
	_, err = f.agendas.UpdateAgendaVotes(ctx, commands.UpdateAgendaVotesCommand{
		AgendaID: agenda.AgendaID, VoteType: entities.VoteTypeYes, RequestID: "r-1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotOpen)

	// A retried cancel replays the terminal snapshot and writes nothing.
	retry, err := f.agendas.CancelAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, entities.AgendaStatusCancelled, retry.Agenda.Status)

	after, err := f.store.GetAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRetriesAfterFinalizeAreRefused(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	agenda := f.openAgenda(t, "Harbor dredging")
	started := f.startSession(t, agenda.AgendaID, 10)
	_, err := f.votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agenda.AgendaID, UserID: "u1", VoteType: entities.VoteTypeYes})
	require.NoError(t, err)
	_, err = f.agendas.UpdateAgendaVotes(ctx, commands.UpdateAgendaVotesCommand{
		AgendaID: agenda.AgendaID, VoteType: entities.VoteTypeNo, RequestID: "nudge-1",
	})
	require.NoError(t, err)
	finished, err := f.agendas.FinalizeAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)

	_, err = f.agendas.StartAgendaTimer(ctx, commands.StartAgendaTimerCommand{AgendaID: agenda.AgendaID, DurationMinutes: 10})
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
	_, err = f.votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agenda.AgendaID, UserID: "u1", VoteType: entities.VoteTypeYes})
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotOpen)
	_, err = f.agendas.UpdateAgendaVotes(ctx, commands.UpdateAgendaVotesCommand{
		AgendaID: agenda.AgendaID, VoteType: entities.VoteTypeNo, RequestID: "nudge-1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotOpen)
	_, err = f.agendas.OpenAgenda(ctx, agenda.AgendaID)
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)

	again, err := f.agendas.FinalizeAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.True(t, again.Replayed)

	stored, err := f.store.GetAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.Equal(t, entities.AgendaStatusFinished, stored.Status)
	assert.Equal(t, finished.Agenda.Result, stored.Result)
	assert.Equal(t, 2, stored.TotalVotes)
	assert.Equal(t, finished.Agenda.UpdatedAt, stored.UpdatedAt)
	history, err := f.store.ListSessionsByAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, started.Session.SessionID, history[0].SessionID)
}

func TestRetriesAfterSweepFinalizeAreRefused(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	agenda := f.openAgenda(t, "Harbor dredging")
	started := f.startSession(t, agenda.AgendaID, 1)
	_, err := f.votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agenda.AgendaID, UserID: "u1", VoteType: entities.VoteTypeNo})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)

	finalized, err := f.agendas.ReconcileExpiredSession(ctx, started.Session)
	require.NoError(t, err)
	require.True(t, finalized)

	_, err = f.agendas.StartAgendaTimer(ctx, commands.StartAgendaTimerCommand{AgendaID: agenda.AgendaID, DurationMinutes: 1})
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
	_, err = f.votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agenda.AgendaID, UserID: "u1", VoteType: entities.VoteTypeNo})
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotOpen)

	stored, err := f.store.GetAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.Equal(t, entities.AgendaStatusFinished, stored.Status)
	assert.Equal(t, entities.AgendaResultRejected, stored.Result)
	assert.Equal(t, 1, stored.TotalVotes)
}

func TestStartAgendaTimerRetryReplaysRunningSession(t *testing.T) {
	f := newFixture(t)
	agenda := f.openAgenda(t, "Bus shelters")
	first := f.startSession(t, agenda.AgendaID, 5)
	f.clock.Advance(time.Minute)

	retry := f.startSession(t, agenda.AgendaID, 5)
	assert.True(t, retry.Replayed)
	assert.Equal(t, first.Session, retry.Session)

	history, err := f.store.ListSessionsByAgenda(context.Background(), agenda.AgendaID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStartAgendaTimerSameDurationAfterWindowElapsedOpensNewSession(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	agenda := f.openAgenda(t, "Bus shelters")
	first := f.startSession(t, agenda.AgendaID, 5)
	f.clock.Advance(6 * time.Minute)

	second := f.startSession(t, agenda.AgendaID, 5)
	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.Session.SessionID, second.Session.SessionID)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), second.Session.EndTime)

	history, err := f.store.ListSessionsByAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	active, err := f.store.HasActiveSession(ctx, agenda.AgendaID, f.clock.Now())
	require.NoError(t, err)
	assert.True(t, active)

	_, err = f.votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agenda.AgendaID, UserID: "u1", VoteType: entities.VoteTypeYes})
	assert.NoError(t, err)
}

func TestOpenReplayIsDroppedOnceAgendaIsCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agenda := f.openAgenda(t, "Dog park")
	_, err := f.agendas.CancelAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)

	_, err = f.agendas.OpenAgenda(ctx, agenda.AgendaID)
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
}

func TestUpdateAgendaVotesIsIdempotentByRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agenda := f.openAgenda(t, "Snow removal")
	cmd := commands.UpdateAgendaVotesCommand{AgendaID: agenda.AgendaID, VoteType: entities.VoteTypeYes, RequestID: "req-1"}

	first, err := f.agendas.UpdateAgendaVotes(ctx, cmd)
	require.NoError(t, err)
	second, err := f.agendas.UpdateAgendaVotes(ctx, cmd)
	require.NoError(t, err)
	cmd.RequestID = "req-2"
	third, err := f.agendas.UpdateAgendaVotes(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Agenda.YesVotes)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1, second.Agenda.TotalVotes)
	assert.Equal(t, 2, third.Agenda.YesVotes)
	assert.Equal(t, 2, third.Agenda.TotalVotes)
}

func TestUpdateAgendaVotesValidatesInput(t *testing.T) {
	f := newFixture(t)
	agenda := f.openAgenda(t, "Snow removal")

	_, err := f.agendas.UpdateAgendaVotes(context.Background(), commands.UpdateAgendaVotesCommand{
		AgendaID: agenda.AgendaID, VoteType: "MAYBE", RequestID: "r",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	_, err = f.agendas.UpdateAgendaVotes(context.Background(), commands.UpdateAgendaVotesCommand{
		AgendaID: agenda.AgendaID, VoteType: entities.VoteTypeNo,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestReconcileExpiredSessionSkipsWhileNewerWindowRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agenda := f.openAgenda(t, "Farmers market")
	first := f.startSession(t, agenda.AgendaID, 1)
	f.clock.Advance(2 * time.Minute)
	f.startSession(t, agenda.AgendaID, 10)

	finalized, err := f.agendas.ReconcileExpiredSession(ctx, first.Session)
	require.NoError(t, err)
	assert.False(t, finalized)

	stored, err := f.store.GetAgenda(ctx, agenda.AgendaID)
	require.NoError(t, err)
	assert.Equal(t, entities.AgendaStatusInProgress, stored.Status)
}

func TestIdempotencyKeyIsDeterministicAndOrderSensitive(t *testing.T) {
	a := commands.IdempotencyKey("castVote", "agenda-1", "user-1", "YES")
	b := commands.IdempotencyKey("castVote", "agenda-1", "user-1", "YES")
	swapped := commands.IdempotencyKey("castVote", "user-1", "agenda-1", "YES")
	otherOp := commands.IdempotencyKey("updateAgendaVotes", "agenda-1", "user-1", "YES")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, swapped)
	assert.NotEqual(t, a, otherOp)
	assert.Equal(t, commands.IdempotencyKey("createAgenda", " t "), commands.IdempotencyKey("createAgenda", "t"))
}
