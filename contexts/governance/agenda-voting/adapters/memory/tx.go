package memory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
)

type stagedEvent struct {
	envelope ports.EventEnvelope
	payload  []byte
}

// stagedTx reads through to the store and buffers writes until commit.
// It is only used by the goroutine holding the agenda lock.
type stagedTx struct {
	store    *Store
	agendas  map[string]entities.Agenda
	votes    []entities.Vote
	sessions map[string]entities.Session
	outbox   []stagedEvent
}

func newStagedTx(store *Store) *stagedTx {
	return &stagedTx{
		store:    store,
		agendas:  make(map[string]entities.Agenda),
		sessions: make(map[string]entities.Session),
	}
}

func (t *stagedTx) GetAgenda(ctx context.Context, agendaID string) (entities.Agenda, error) {
	if agenda, ok := t.agendas[strings.TrimSpace(agendaID)]; ok {
		return agenda, nil
	}
	return t.store.GetAgenda(ctx, agendaID)
}

func (t *stagedTx) SaveAgenda(_ context.Context, agenda entities.Agenda) error {
	if !agenda.CountersConsistent() {
		return domainerrors.ErrInternal.WithMessage("agenda counters are inconsistent")
	}
	t.agendas[agenda.AgendaID] = agenda
	return nil
}

func (t *stagedTx) HasVoted(_ context.Context, agendaID string, userID string) (bool, error) {
	agendaID = strings.TrimSpace(agendaID)
	userID = strings.TrimSpace(userID)
	for _, vote := range t.votes {
		if vote.AgendaID == agendaID && vote.UserID == userID {
			return true, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.voteIndex[voteKey(agendaID, userID)]
	return ok, nil
}

func (t *stagedTx) SaveVote(ctx context.Context, vote entities.Vote) error {
	voted, err := t.HasVoted(ctx, vote.AgendaID, vote.UserID)
	if err != nil {
		return err
	}
	if voted {
		return domainerrors.ErrUserAlreadyVoted
	}
	t.votes = append(t.votes, vote)
	return nil
}

func (t *stagedTx) GetActiveSession(_ context.Context, agendaID string, now time.Time) (entities.Session, bool, error) {
	agendaID = strings.TrimSpace(agendaID)
	t.store.mu.RLock()
	committed, found := t.store.activeSessionLocked(agendaID, now)
	t.store.mu.RUnlock()
	if found {
		if staged, ok := t.sessions[committed.SessionID]; ok {
			committed = staged
			found = staged.IsActive(now)
		}
	}
	for _, session := range t.sessions {
		if session.AgendaID != agendaID || !session.IsActive(now) {
			continue
		}
		if !found || session.StartTime.After(committed.StartTime) {
			committed = session
			found = true
		}
	}
	if !found {
		return entities.Session{}, false, nil
	}
	return committed, true, nil
}

func (t *stagedTx) SaveSession(_ context.Context, session entities.Session) error {
	if !session.StartTime.Before(session.EndTime) {
		return domainerrors.ErrInvalidTimeRange
	}
	t.sessions[session.SessionID] = session
	return nil
}

func (t *stagedTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	t.outbox = append(t.outbox, stagedEvent{envelope: envelope, payload: payload})
	return nil
}
