package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq       int64
	message   ports.OutboxMessage
	published bool
}

// Store keeps the whole module state in process. Mutations of one agenda are
// serialized by a per-agenda mutex and applied from a staged buffer, so a
// failed unit of work leaves nothing behind.
type Store struct {
	mu sync.RWMutex

	agendas   map[string]entities.Agenda
	titles    map[string]string
	sessions  map[string]entities.Session
	votes     map[string]entities.Vote
	voteIndex map[string]string
	users     map[string]entities.Voter
	outbox    map[string]outboxRecord
	outboxSeq int64

	agendaLocks sync.Map
}

func NewStore() *Store {
	return &Store{
		agendas:   make(map[string]entities.Agenda),
		titles:    make(map[string]string),
		sessions:  make(map[string]entities.Session),
		votes:     make(map[string]entities.Vote),
		voteIndex: make(map[string]string),
		users:     make(map[string]entities.Voter),
		outbox:    make(map[string]outboxRecord),
	}
}

// SetUser registers a voter in the directory projection.
func (s *Store) SetUser(user entities.Voter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := strings.TrimSpace(user.UserID)
	s.users[userID] = entities.Voter{UserID: userID, Name: strings.TrimSpace(user.Name)}
}

func (s *Store) UserExists(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[strings.TrimSpace(userID)]
	return ok, nil
}

func (s *Store) GetAgenda(_ context.Context, agendaID string) (entities.Agenda, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agenda, ok := s.agendas[strings.TrimSpace(agendaID)]
	if !ok {
		return entities.Agenda{}, domainerrors.ErrAgendaNotFound
	}
	return agenda, nil
}

func (s *Store) ExistsByTitle(_ context.Context, title string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.titles[strings.TrimSpace(title)]
	return ok, nil
}

func (s *Store) ListAgendasByStatus(_ context.Context, statuses ...entities.AgendaStatus) ([]entities.Agenda, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[entities.AgendaStatus]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}
	items := make([]entities.Agenda, 0, len(s.agendas))
	for _, agenda := range s.agendas {
		if len(wanted) > 0 {
			if _, ok := wanted[agenda.Status]; !ok {
				continue
			}
		}
		items = append(items, agenda)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CreateAgenda(_ context.Context, agenda entities.Agenda, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titles[agenda.Title]; ok {
		return domainerrors.ErrDuplicateTitle
	}
	s.agendas[agenda.AgendaID] = agenda
	s.titles[agenda.Title] = agenda.AgendaID
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) GetActiveSession(_ context.Context, agendaID string, now time.Time) (entities.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.activeSessionLocked(strings.TrimSpace(agendaID), now)
	return session, ok, nil
}

func (s *Store) HasActiveSession(ctx context.Context, agendaID string, now time.Time) (bool, error) {
	_, ok, err := s.GetActiveSession(ctx, agendaID, now)
	return ok, err
}

func (s *Store) ListExpiredSessions(_ context.Context, now time.Time, limit int) ([]entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Session, 0)
	for _, session := range s.sessions {
		if session.Reconciled || session.EndTime.After(now.UTC()) {
			continue
		}
		items = append(items, session)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].EndTime.Equal(items[j].EndTime) {
			return items[i].SessionID < items[j].SessionID
		}
		return items[i].EndTime.Before(items[j].EndTime)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListSessionsByAgenda(_ context.Context, agendaID string) ([]entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agendaID = strings.TrimSpace(agendaID)
	items := make([]entities.Session, 0)
	for _, session := range s.sessions {
		if session.AgendaID == agendaID {
			items = append(items, session)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].StartTime.Before(items[j].StartTime)
	})
	return items, nil
}

func (s *Store) GetVote(_ context.Context, voteID string) (entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[strings.TrimSpace(voteID)]
	if !ok {
		return entities.Vote{}, domainerrors.ErrVoteNotFound
	}
	return vote, nil
}

func (s *Store) ListVotesByAgenda(_ context.Context, agendaID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agendaID = strings.TrimSpace(agendaID)
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.AgendaID == agendaID {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// WithinAgenda runs fn while holding the agenda's mutex. Writes made through
// tx are staged and applied in one step only when fn returns nil.
func (s *Store) WithinAgenda(
	ctx context.Context,
	agendaID string,
	fn func(ctx context.Context, tx ports.AgendaTx) error,
) error {
	agendaID = strings.TrimSpace(agendaID)
	unlock := s.lockAgenda(agendaID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.GetAgenda(ctx, agendaID); err != nil {
		return err
	}
	tx := newStagedTx(s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) lockAgenda(agendaID string) func() {
	value, _ := s.agendaLocks.LoadOrStore(agendaID, &sync.Mutex{})
	lock := value.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

func (s *Store) commit(tx *stagedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check uniqueness against committed state before touching anything.
	for _, vote := range tx.votes {
		if _, ok := s.voteIndex[voteKey(vote.AgendaID, vote.UserID)]; ok {
			return domainerrors.ErrUserAlreadyVoted
		}
	}
	for _, agenda := range tx.agendas {
		if _, ok := s.agendas[agenda.AgendaID]; !ok {
			return domainerrors.ErrAgendaNotFound
		}
	}

	for _, agenda := range tx.agendas {
		s.agendas[agenda.AgendaID] = agenda
	}
	for _, vote := range tx.votes {
		s.votes[vote.VoteID] = vote
		s.voteIndex[voteKey(vote.AgendaID, vote.UserID)] = vote.VoteID
	}
	for _, session := range tx.sessions {
		s.sessions[session.SessionID] = session
	}
	for _, staged := range tx.outbox {
		s.appendOutboxLocked(staged.envelope, staged.payload)
	}
	return nil
}

func (s *Store) activeSessionLocked(agendaID string, now time.Time) (entities.Session, bool) {
	var (
		latest entities.Session
		found  bool
	)
	for _, session := range s.sessions {
		if session.AgendaID != agendaID || !session.IsActive(now) {
			continue
		}
		if !found || session.StartTime.After(latest.StartTime) {
			latest = session
			found = true
		}
	}
	return latest, found
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope, payload []byte) {
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, ok := s.outbox[outboxID]; ok {
		return
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		seq: s.outboxSeq,
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outboxID = strings.TrimSpace(outboxID)
	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrInternal.WithMessage("outbox row not found: " + outboxID)
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func voteKey(agendaID string, userID string) string {
	return agendaID + "\x00" + userID
}
