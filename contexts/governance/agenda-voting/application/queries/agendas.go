package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"assembly/contexts/governance/agenda-voting/application/sessions"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
)

// SessionStatus is the read view of an agenda's voting window.
type SessionStatus struct {
	AgendaID  string
	Active    bool
	Current   *entities.Session
	Remaining time.Duration
	History   []entities.Session
}

type AgendaQueries struct {
	Agendas  ports.AgendaRepository
	Votes    ports.VoteRepository
	Sessions sessions.Tracker
	Clock    ports.Clock
}

func (q AgendaQueries) GetAgenda(ctx context.Context, agendaID string) (entities.Agenda, error) {
	agendaID = strings.TrimSpace(agendaID)
	if agendaID == "" {
		return entities.Agenda{}, domainerrors.ErrInvalidInput.WithMessage("agenda_id is required")
	}
	agenda, err := q.Agendas.GetAgenda(ctx, agendaID)
	return agenda, domainerrors.Normalize(err)
}

// ListAgendas returns agendas whose status is in statuses, newest first. No
// statuses means all agendas.
func (q AgendaQueries) ListAgendas(ctx context.Context, statuses ...entities.AgendaStatus) ([]entities.Agenda, error) {
	agendas, err := q.Agendas.ListAgendasByStatus(ctx, statuses...)
	if err != nil {
		return nil, domainerrors.Normalize(err)
	}
	sort.SliceStable(agendas, func(i, j int) bool {
		if agendas[i].CreatedAt.Equal(agendas[j].CreatedAt) {
			return agendas[i].AgendaID < agendas[j].AgendaID
		}
		return agendas[i].CreatedAt.After(agendas[j].CreatedAt)
	})
	return agendas, nil
}

func (q AgendaQueries) ListVotes(ctx context.Context, agendaID string) ([]entities.Vote, error) {
	agenda, err := q.GetAgenda(ctx, agendaID)
	if err != nil {
		return nil, err
	}
	votes, err := q.Votes.ListVotesByAgenda(ctx, agenda.AgendaID)
	if err != nil {
		return nil, domainerrors.Normalize(err)
	}
	sort.SliceStable(votes, func(i, j int) bool {
		return votes[i].CreatedAt.Before(votes[j].CreatedAt)
	})
	return votes, nil
}

// GetSessionStatus reports the active window, if any, along with every past
// window of the agenda.
func (q AgendaQueries) GetSessionStatus(ctx context.Context, agendaID string) (SessionStatus, error) {
	agenda, err := q.GetAgenda(ctx, agendaID)
	if err != nil {
		return SessionStatus{}, err
	}
	history, err := q.Sessions.History(ctx, agenda.AgendaID)
	if err != nil {
		return SessionStatus{}, domainerrors.Normalize(err)
	}
	if len(history) == 0 {
		return SessionStatus{}, domainerrors.ErrSessionNotFound
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].StartTime.Before(history[j].StartTime)
	})

	status := SessionStatus{AgendaID: agenda.AgendaID, History: history}
	now := q.now()
	current, active, err := q.Sessions.Current(ctx, agenda.AgendaID, now)
	if err != nil {
		return SessionStatus{}, domainerrors.Normalize(err)
	}
	if active {
		status.Active = true
		status.Current = &current
		status.Remaining = current.Remaining(now)
	}
	return status, nil
}

func (q AgendaQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}
