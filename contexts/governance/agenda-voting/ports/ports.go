package ports

import (
	"context"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	contractsv1 "assembly/contracts/gen/events/v1"
)

// AgendaRepository covers agenda reads and the creation write. Every later
// mutation goes through UnitOfWork.
type AgendaRepository interface {
	GetAgenda(ctx context.Context, agendaID string) (entities.Agenda, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	// ListAgendasByStatus returns every agenda when statuses is empty.
	ListAgendasByStatus(ctx context.Context, statuses ...entities.AgendaStatus) ([]entities.Agenda, error)
	// CreateAgenda must atomically persist the agenda and its outbox event and
	// report domainerrors.ErrDuplicateTitle on a title collision.
	CreateAgenda(ctx context.Context, agenda entities.Agenda, event EventEnvelope) error
}

// SessionRepository exposes the time-bounded session queries.
type SessionRepository interface {
	GetActiveSession(ctx context.Context, agendaID string, now time.Time) (entities.Session, bool, error)
	HasActiveSession(ctx context.Context, agendaID string, now time.Time) (bool, error)
	// ListExpiredSessions returns unreconciled sessions with EndTime <= now,
	// oldest first.
	ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]entities.Session, error)
	ListSessionsByAgenda(ctx context.Context, agendaID string) ([]entities.Session, error)
}

type VoteRepository interface {
	GetVote(ctx context.Context, voteID string) (entities.Vote, error)
	ListVotesByAgenda(ctx context.Context, agendaID string) ([]entities.Vote, error)
}

// UserDirectory answers voter existence; identity itself is owned elsewhere.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// AgendaTx is the write surface available inside one agenda's serialization
// boundary. Writes become visible together when the callback returns nil and
// are discarded otherwise.
type AgendaTx interface {
	GetAgenda(ctx context.Context, agendaID string) (entities.Agenda, error)
	SaveAgenda(ctx context.Context, agenda entities.Agenda) error
	HasVoted(ctx context.Context, agendaID string, userID string) (bool, error)
	SaveVote(ctx context.Context, vote entities.Vote) error
	GetActiveSession(ctx context.Context, agendaID string, now time.Time) (entities.Session, bool, error)
	SaveSession(ctx context.Context, session entities.Session) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// UnitOfWork serializes every mutation of a single agenda. Implementations
// return domainerrors.ErrAgendaNotFound when the agenda does not exist.
type UnitOfWork interface {
	WithinAgenda(ctx context.Context, agendaID string, fn func(ctx context.Context, tx AgendaTx) error) error
}

// IdempotencyCache replays prior outcomes of mutating operations.
type IdempotencyCache interface {
	// Execute returns the stored value for key when present and unexpired
	// (replayed=true); otherwise it runs fn, stores a successful result for
	// ttl and returns it. Failed executions are not stored.
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn func(ctx context.Context) (any, error),
	) (value any, replayed bool, err error)
	Invalidate(key string)
	Sweep() int
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
