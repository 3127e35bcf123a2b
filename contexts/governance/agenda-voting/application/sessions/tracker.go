package sessions

import (
	"context"
	"strings"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
)

const defaultExpiredBatch = 100

// Tracker records the voting windows bound to agendas and answers whether a
// window is active or has elapsed.
type Tracker struct {
	Sessions ports.SessionRepository
	IDGen    ports.IDGenerator
}

// Open starts a new window inside the caller's agenda unit of work, so the
// "no active session" check and the insert cannot interleave with another
// Open on the same agenda.
func (t Tracker) Open(
	ctx context.Context,
	tx ports.AgendaTx,
	agendaID string,
	durationMinutes int,
	now time.Time,
) (entities.Session, error) {
	if durationMinutes < entities.MinSessionMinutes || durationMinutes > entities.MaxSessionMinutes {
		return entities.Session{}, domainerrors.ErrInvalidDuration
	}
	agendaID = strings.TrimSpace(agendaID)
	if _, active, err := tx.GetActiveSession(ctx, agendaID, now); err != nil {
		return entities.Session{}, err
	} else if active {
		return entities.Session{}, domainerrors.ErrOperationNotAllowed.WithMessage("agenda already has an active session")
	}

	sessionID, err := t.IDGen.NewID(ctx)
	if err != nil {
		return entities.Session{}, err
	}
	session, err := entities.NewSession(sessionID, agendaID, now, durationMinutes)
	if err != nil {
		return entities.Session{}, err
	}
	if err := tx.SaveSession(ctx, session); err != nil {
		return entities.Session{}, err
	}
	return session, nil
}

func (t Tracker) IsActive(ctx context.Context, agendaID string, now time.Time) (bool, error) {
	return t.Sessions.HasActiveSession(ctx, strings.TrimSpace(agendaID), now.UTC())
}

// Current returns the active window, if any.
func (t Tracker) Current(ctx context.Context, agendaID string, now time.Time) (entities.Session, bool, error) {
	return t.Sessions.GetActiveSession(ctx, strings.TrimSpace(agendaID), now.UTC())
}

// FindExpired lists elapsed windows the sweep has not reconciled yet.
func (t Tracker) FindExpired(ctx context.Context, now time.Time, limit int) ([]entities.Session, error) {
	if limit <= 0 {
		limit = defaultExpiredBatch
	}
	return t.Sessions.ListExpiredSessions(ctx, now.UTC(), limit)
}

func (t Tracker) History(ctx context.Context, agendaID string) ([]entities.Session, error) {
	return t.Sessions.ListSessionsByAgenda(ctx, strings.TrimSpace(agendaID))
}
