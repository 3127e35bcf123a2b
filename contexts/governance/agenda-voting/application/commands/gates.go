package commands

import (
	"context"
	"errors"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
)

// ensureAcceptingVotes gates every tally change. OPEN agendas take votes
// without a window; IN_PROGRESS agendas only while their session runs.
func ensureAcceptingVotes(ctx context.Context, tx ports.AgendaTx, agenda entities.Agenda, now time.Time) error {
	if !agenda.IsActive() {
		return domainerrors.ErrAgendaNotOpen
	}
	if agenda.Status != entities.AgendaStatusInProgress {
		return nil
	}
	_, active, err := tx.GetActiveSession(ctx, agenda.AgendaID, now)
	if err != nil {
		return err
	}
	if !active {
		return domainerrors.ErrAgendaNotOpen.WithMessage("voting session has ended")
	}
	return nil
}

// closeActiveSession retires a still-running window once its agenda reaches a
// terminal status, so the expiry sweep has nothing left to reconcile.
func closeActiveSession(ctx context.Context, tx ports.AgendaTx, agendaID string, now time.Time) error {
	session, active, err := tx.GetActiveSession(ctx, agendaID, now)
	if err != nil || !active {
		return err
	}
	session.MarkReconciled(now)
	return tx.SaveSession(ctx, session)
}

// inspectAgenda reads the agenda inside its serialization boundary without
// writing anything.
func inspectAgenda(
	ctx context.Context,
	uow ports.UnitOfWork,
	agendaID string,
	inspect func(ctx context.Context, tx ports.AgendaTx, agenda entities.Agenda) (bool, error),
) (bool, error) {
	ok := false
	err := uow.WithinAgenda(ctx, agendaID, func(ctx context.Context, tx ports.AgendaTx) error {
		agenda, err := tx.GetAgenda(ctx, agendaID)
		if err != nil {
			return err
		}
		ok, err = inspect(ctx, tx, agenda)
		return err
	})
	return ok, err
}

// statusUnchanged keeps a cached transition while the agenda still has the
// status that transition produced.
func statusUnchanged(uow ports.UnitOfWork) replayCheck[entities.Agenda] {
	return func(ctx context.Context, cached entities.Agenda) (bool, error) {
		return inspectAgenda(ctx, uow, cached.AgendaID, func(_ context.Context, _ ports.AgendaTx, agenda entities.Agenda) (bool, error) {
			return agenda.Status == cached.Status, nil
		})
	}
}

// sessionStillRunning keeps a cached session start only while that session
// is the agenda's running window.
func sessionStillRunning(uow ports.UnitOfWork, now func() time.Time) replayCheck[sessionOutcome] {
	return func(ctx context.Context, cached sessionOutcome) (bool, error) {
		return inspectAgenda(ctx, uow, cached.Agenda.AgendaID, func(ctx context.Context, tx ports.AgendaTx, agenda entities.Agenda) (bool, error) {
			if agenda.Status != entities.AgendaStatusInProgress {
				return false, nil
			}
			session, active, err := tx.GetActiveSession(ctx, agenda.AgendaID, now())
			if err != nil {
				return false, err
			}
			return active && session.SessionID == cached.Session.SessionID, nil
		})
	}
}

// stillAcceptingVotes keeps a cached tally change only while the agenda
// would accept the same change now.
func stillAcceptingVotes[T any](uow ports.UnitOfWork, agendaID string, now func() time.Time) replayCheck[T] {
	return func(ctx context.Context, _ T) (bool, error) {
		return inspectAgenda(ctx, uow, agendaID, func(ctx context.Context, tx ports.AgendaTx, agenda entities.Agenda) (bool, error) {
			err := ensureAcceptingVotes(ctx, tx, agenda, now())
			if errors.Is(err, domainerrors.ErrAgendaNotOpen) {
				return false, nil
			}
			return err == nil, err
		})
	}
}
