package agendavoting

import (
	"log/slog"
	"time"

	httpadapter "assembly/contexts/governance/agenda-voting/adapters/http"
	"assembly/contexts/governance/agenda-voting/adapters/memory"
	"assembly/contexts/governance/agenda-voting/application/commands"
	"assembly/contexts/governance/agenda-voting/application/queries"
	"assembly/contexts/governance/agenda-voting/application/sessions"
	"assembly/contexts/governance/agenda-voting/application/workers"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	"assembly/contexts/governance/agenda-voting/ports"
	"assembly/internal/platform/idempotency"
)

type Module struct {
	Handler httpadapter.Handler
	Agendas commands.AgendaUseCase
	Votes   commands.VoteUseCase
	Queries queries.AgendaQueries
	Workers Workers
	Store   *memory.Store
	Replays *idempotency.Cache
}

// Workers are the periodic jobs of the module. Each exposes RunOnce.
type Workers struct {
	ExpirySweeper      workers.ExpirySweeper
	IdempotencySweeper workers.IdempotencySweeper
	OutboxRelay        workers.OutboxRelay
}

type Dependencies struct {
	Agendas        ports.AgendaRepository
	Sessions       ports.SessionRepository
	Votes          ports.VoteRepository
	Users          ports.UserDirectory
	UnitOfWork     ports.UnitOfWork
	Outbox         ports.OutboxRepository
	Publisher      ports.EventPublisher
	Idempotency    ports.IdempotencyCache
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	SweepBatchSize int
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tracker := sessions.Tracker{
		Sessions: deps.Sessions,
		IDGen:    deps.IDGen,
	}
	agendaUseCase := commands.AgendaUseCase{
		Agendas:        deps.Agendas,
		UnitOfWork:     deps.UnitOfWork,
		Sessions:       tracker,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		UnitOfWork:     deps.UnitOfWork,
		Users:          deps.Users,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	agendaQueries := queries.AgendaQueries{
		Agendas:  deps.Agendas,
		Votes:    deps.Votes,
		Sessions: tracker,
		Clock:    deps.Clock,
	}
	sweeper := workers.ExpirySweeper{
		Sessions:   tracker,
		Reconciler: agendaUseCase,
		Clock:      deps.Clock,
		BatchSize:  deps.SweepBatchSize,
		Logger:     deps.Logger,
	}

	module := Module{
		Handler: httpadapter.Handler{
			Agendas: agendaUseCase,
			Votes:   voteUseCase,
			Queries: agendaQueries,
			Sweeper: sweeper,
			Logger:  deps.Logger,
		},
		Agendas: agendaUseCase,
		Votes:   voteUseCase,
		Queries: agendaQueries,
		Workers: Workers{ExpirySweeper: sweeper},
	}
	if deps.Idempotency != nil {
		module.Workers.IdempotencySweeper = workers.IdempotencySweeper{
			Cache:  deps.Idempotency,
			Logger: deps.Logger,
		}
	}
	if deps.Outbox != nil && deps.Publisher != nil {
		module.Workers.OutboxRelay = workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.SweepBatchSize,
			Logger:    deps.Logger,
		}
	}
	return module
}

// NewInMemoryModule wires the module on the in-process store. Voters are
// seeded into the directory projection.
func NewInMemoryModule(voters []entities.Voter, publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	for _, voter := range voters {
		store.SetUser(voter)
	}
	replays := idempotency.New()
	module := NewModule(Dependencies{
		Agendas:        store,
		Sessions:       store,
		Votes:          store,
		Users:          store,
		UnitOfWork:     store,
		Outbox:         store,
		Publisher:      publisher,
		Idempotency:    replays,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Replays = replays
	return module
}
