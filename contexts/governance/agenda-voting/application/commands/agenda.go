package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "assembly/contexts/governance/agenda-voting/application"
	"assembly/contexts/governance/agenda-voting/application/sessions"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
	contractsv1 "assembly/contracts/gen/events/v1"
)

const maxTitleLength = 200

type CreateAgendaCommand struct {
	Title       string
	Description string
}

type StartAgendaTimerCommand struct {
	AgendaID        string
	DurationMinutes int
}

// UpdateAgendaVotesCommand applies a single tally increment. RequestID makes
// the increment replay-safe: the same request never counts twice.
type UpdateAgendaVotesCommand struct {
	AgendaID  string
	VoteType  entities.VoteType
	RequestID string
}

// AgendaResult is the agenda state after a mutation. Replayed is set when the
// value came from the idempotency cache instead of a fresh execution.
type AgendaResult struct {
	Agenda   entities.Agenda
	Replayed bool
}

type SessionResult struct {
	Agenda   entities.Agenda
	Session  entities.Session
	Replayed bool
}

type sessionOutcome struct {
	Agenda  entities.Agenda
	Session entities.Session
}

// AgendaUseCase owns the agenda lifecycle: creation, opening, timed sessions,
// tally updates and the terminal transitions.
type AgendaUseCase struct {
	Agendas        ports.AgendaRepository
	UnitOfWork     ports.UnitOfWork
	Sessions       sessions.Tracker
	Idempotency    ports.IdempotencyCache
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CreateAgenda registers a new DRAFT agenda. Titles are unique.
func (uc AgendaUseCase) CreateAgenda(ctx context.Context, cmd CreateAgendaCommand) (AgendaResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	description := strings.TrimSpace(cmd.Description)
	if title == "" || len(title) > maxTitleLength {
		logger.Warn("agenda create validation failed",
			"event", "agenda_create_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"title_length", len(title),
		)
		return AgendaResult{}, domainerrors.ErrInvalidInput.WithMessage("title is required and must be at most 200 characters")
	}

	key := IdempotencyKey("createAgenda", title, description)
	agenda, replayed, err := runIdempotent(ctx, uc.Idempotency, key, uc.IdempotencyTTL,
		func(ctx context.Context) (entities.Agenda, error) {
			return uc.createAgenda(ctx, title, description)
		},
		nil,
	)
	if err != nil {
		logger.Warn("agenda create failed",
			"event", "agenda_create_failed",
			"module", application.ModuleName,
			"layer", "application",
			"title", title,
			"error", domainerrors.Describe(err),
		)
		return AgendaResult{}, err
	}
	logger.Info("agenda created",
		"event", "agenda_created",
		"module", application.ModuleName,
		"layer", "application",
		"agenda_id", agenda.AgendaID,
		"replayed", replayed,
	)
	return AgendaResult{Agenda: agenda, Replayed: replayed}, nil
}

func (uc AgendaUseCase) createAgenda(ctx context.Context, title string, description string) (entities.Agenda, error) {
	exists, err := uc.Agendas.ExistsByTitle(ctx, title)
	if err != nil {
		return entities.Agenda{}, err
	}
	if exists {
		return entities.Agenda{}, domainerrors.ErrDuplicateTitle
	}
	agendaID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Agenda{}, err
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Agenda{}, err
	}
	now := uc.now()
	agenda := entities.NewAgenda(agendaID, title, description, now)
	envelope, err := newAgendaEnvelope(eventID, contractsv1.EventAgendaCreated, agenda.AgendaID, now, agendaEventData(agenda, now, nil))
	if err != nil {
		return entities.Agenda{}, err
	}
	if err := uc.Agendas.CreateAgenda(ctx, agenda, envelope); err != nil {
		return entities.Agenda{}, err
	}
	return agenda, nil
}

// OpenAgenda moves a DRAFT agenda to OPEN.
func (uc AgendaUseCase) OpenAgenda(ctx context.Context, agendaID string) (AgendaResult, error) {
	agendaID = strings.TrimSpace(agendaID)
	if agendaID == "" {
		return AgendaResult{}, domainerrors.ErrInvalidInput.WithMessage("agenda_id is required")
	}
	return uc.transition(ctx, "openAgenda", agendaID, func(agenda *entities.Agenda, now time.Time) (string, map[string]any, error) {
		if err := agenda.Open(now); err != nil {
			return "", nil, err
		}
		return contractsv1.EventAgendaOpened, nil, nil
	})
}

// StartAgendaTimer opens a voting window of DurationMinutes and moves the
// agenda to IN_PROGRESS. A new window may follow an elapsed one.
func (uc AgendaUseCase) StartAgendaTimer(ctx context.Context, cmd StartAgendaTimerCommand) (SessionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	agendaID := strings.TrimSpace(cmd.AgendaID)
	if agendaID == "" {
		return SessionResult{}, domainerrors.ErrInvalidInput.WithMessage("agenda_id is required")
	}
	if cmd.DurationMinutes < entities.MinSessionMinutes || cmd.DurationMinutes > entities.MaxSessionMinutes {
		logger.Warn("agenda timer duration rejected",
			"event", "agenda_timer_duration_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"agenda_id", agendaID,
			"duration_minutes", cmd.DurationMinutes,
		)
		return SessionResult{}, domainerrors.ErrInvalidDuration
	}

	key := IdempotencyKey("startAgendaTimer", agendaID, cmd.DurationMinutes)
	outcome, replayed, err := runIdempotent(ctx, uc.Idempotency, key, uc.IdempotencyTTL,
		func(ctx context.Context) (sessionOutcome, error) {
			var outcome sessionOutcome
			err := uc.UnitOfWork.WithinAgenda(ctx, agendaID, func(ctx context.Context, tx ports.AgendaTx) error {
				agenda, err := tx.GetAgenda(ctx, agendaID)
				if err != nil {
					return err
				}
				if err := agenda.CanStartTimer(); err != nil {
					return err
				}
				now := uc.now()
				session, err := uc.Sessions.Open(ctx, tx, agendaID, cmd.DurationMinutes, now)
				if err != nil {
					return err
				}
				if err := agenda.StartTimer(now); err != nil {
					return err
				}
				if err := tx.SaveAgenda(ctx, agenda); err != nil {
					return err
				}
				if err := appendAgendaEvent(ctx, tx, uc.IDGen, contractsv1.EventAgendaSessionStarted, agenda, now, map[string]any{
					"session_id":       session.SessionID,
					"start_time":       session.StartTime.Format(time.RFC3339),
					"end_time":         session.EndTime.Format(time.RFC3339),
					"duration_minutes": cmd.DurationMinutes,
				}); err != nil {
					return err
				}
				outcome = sessionOutcome{Agenda: agenda, Session: session}
				return nil
			})
			return outcome, err
		},
		sessionStillRunning(uc.UnitOfWork, uc.now),
	)
	if err != nil {
		logger.Warn("agenda timer start failed",
			"event", "agenda_timer_start_failed",
			"module", application.ModuleName,
			"layer", "application",
			"agenda_id", agendaID,
			"error", domainerrors.Describe(err),
		)
		return SessionResult{}, err
	}
	logger.Info("agenda session started",
		"event", "agenda_session_started",
		"module", application.ModuleName,
		"layer", "application",
		"agenda_id", agendaID,
		"session_id", outcome.Session.SessionID,
		"end_time", outcome.Session.EndTime,
		"replayed", replayed,
	)
	return SessionResult{Agenda: outcome.Agenda, Session: outcome.Session, Replayed: replayed}, nil
}

// FinalizeAgenda closes an IN_PROGRESS agenda and computes its result.
func (uc AgendaUseCase) FinalizeAgenda(ctx context.Context, agendaID string) (AgendaResult, error) {
	agendaID = strings.TrimSpace(agendaID)
	if agendaID == "" {
		return AgendaResult{}, domainerrors.ErrInvalidInput.WithMessage("agenda_id is required")
	}
	return uc.transition(ctx, "finalizeAgenda", agendaID, func(agenda *entities.Agenda, now time.Time) (string, map[string]any, error) {
		if err := agenda.Finalize(now); err != nil {
			return "", nil, err
		}
		return contractsv1.EventAgendaFinished, map[string]any{"trigger": "client"}, nil
	})
}

// CancelAgenda withdraws any non-terminal agenda.
func (uc AgendaUseCase) CancelAgenda(ctx context.Context, agendaID string) (AgendaResult, error) {
	agendaID = strings.TrimSpace(agendaID)
	if agendaID == "" {
		return AgendaResult{}, domainerrors.ErrInvalidInput.WithMessage("agenda_id is required")
	}
	return uc.transition(ctx, "cancelAgenda", agendaID, func(agenda *entities.Agenda, now time.Time) (string, map[string]any, error) {
		if err := agenda.Cancel(now); err != nil {
			return "", nil, err
		}
		return contractsv1.EventAgendaCancelled, nil, nil
	})
}

// UpdateAgendaVotes increments one counter of an agenda accepting votes.
func (uc AgendaUseCase) UpdateAgendaVotes(ctx context.Context, cmd UpdateAgendaVotesCommand) (AgendaResult, error) {
	agendaID := strings.TrimSpace(cmd.AgendaID)
	requestID := strings.TrimSpace(cmd.RequestID)
	if agendaID == "" || requestID == "" {
		return AgendaResult{}, domainerrors.ErrInvalidInput.WithMessage("agenda_id and request_id are required")
	}
	voteType, ok := entities.ParseVoteType(string(cmd.VoteType))
	if !ok {
		return AgendaResult{}, domainerrors.ErrInvalidInput.WithMessage("vote type must be YES or NO")
	}

	logger := application.ResolveLogger(uc.Logger)
	key := IdempotencyKey("updateAgendaVotes", agendaID, string(voteType), requestID)
	agenda, replayed, err := runIdempotent(ctx, uc.Idempotency, key, uc.IdempotencyTTL,
		func(ctx context.Context) (entities.Agenda, error) {
			var updated entities.Agenda
			err := uc.UnitOfWork.WithinAgenda(ctx, agendaID, func(ctx context.Context, tx ports.AgendaTx) error {
				agenda, err := tx.GetAgenda(ctx, agendaID)
				if err != nil {
					return err
				}
				now := uc.now()
				if err := ensureAcceptingVotes(ctx, tx, agenda, now); err != nil {
					return err
				}
				if err := agenda.ApplyVote(voteType, now); err != nil {
					return err
				}
				if err := tx.SaveAgenda(ctx, agenda); err != nil {
					return err
				}
				if err := appendAgendaEvent(ctx, tx, uc.IDGen, contractsv1.EventAgendaTallyUpdated, agenda, now, map[string]any{
					"vote_type":  string(voteType),
					"request_id": requestID,
				}); err != nil {
					return err
				}
				updated = agenda
				return nil
			})
			return updated, err
		},
		stillAcceptingVotes[entities.Agenda](uc.UnitOfWork, agendaID, uc.now),
	)
	if err != nil {
		logger.Warn("agenda tally update failed",
			"event", "agenda_tally_update_failed",
			"module", application.ModuleName,
			"layer", "application",
			"agenda_id", agendaID,
			"request_id", requestID,
			"error", domainerrors.Describe(err),
		)
		return AgendaResult{}, err
	}
	return AgendaResult{Agenda: agenda, Replayed: replayed}, nil
}

// ReconcileExpiredSession is the sweep's per-session step. It marks the
// session reconciled and finalizes the agenda when the agenda is still
// IN_PROGRESS and no newer window is running. It reports whether the agenda
// was finalized.
func (uc AgendaUseCase) ReconcileExpiredSession(ctx context.Context, session entities.Session) (bool, error) {
	agendaID := strings.TrimSpace(session.AgendaID)
	finalized := false
	err := uc.UnitOfWork.WithinAgenda(ctx, agendaID, func(ctx context.Context, tx ports.AgendaTx) error {
		finalized = false
		agenda, err := tx.GetAgenda(ctx, agendaID)
		if err != nil {
			return err
		}
		now := uc.now()
		if session.IsActive(now) {
			return nil
		}
		session.MarkReconciled(now)
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		if agenda.Status != entities.AgendaStatusInProgress {
			return nil
		}
		if _, active, err := tx.GetActiveSession(ctx, agendaID, now); err != nil {
			return err
		} else if active {
			return nil
		}
		if err := agenda.Finalize(now); err != nil {
			return err
		}
		if err := tx.SaveAgenda(ctx, agenda); err != nil {
			return err
		}
		if err := appendAgendaEvent(ctx, tx, uc.IDGen, contractsv1.EventAgendaFinished, agenda, now, map[string]any{
			"trigger":    "session_expired",
			"session_id": session.SessionID,
		}); err != nil {
			return err
		}
		finalized = true
		return nil
	})
	if err != nil {
		return false, domainerrors.Normalize(err)
	}
	return finalized, nil
}

type transitionFunc func(agenda *entities.Agenda, now time.Time) (eventType string, extra map[string]any, err error)

func (uc AgendaUseCase) transition(
	ctx context.Context,
	operation string,
	agendaID string,
	apply transitionFunc,
) (AgendaResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	key := IdempotencyKey(operation, agendaID)
	agenda, replayed, err := runIdempotent(ctx, uc.Idempotency, key, uc.IdempotencyTTL,
		func(ctx context.Context) (entities.Agenda, error) {
			var updated entities.Agenda
			err := uc.UnitOfWork.WithinAgenda(ctx, agendaID, func(ctx context.Context, tx ports.AgendaTx) error {
				agenda, err := tx.GetAgenda(ctx, agendaID)
				if err != nil {
					return err
				}
				now := uc.now()
				eventType, extra, err := apply(&agenda, now)
				if err != nil {
					return err
				}
				if err := tx.SaveAgenda(ctx, agenda); err != nil {
					return err
				}
				if agenda.Status.IsTerminal() {
					if err := closeActiveSession(ctx, tx, agendaID, now); err != nil {
						return err
					}
				}
				if err := appendAgendaEvent(ctx, tx, uc.IDGen, eventType, agenda, now, extra); err != nil {
					return err
				}
				updated = agenda
				return nil
			})
			return updated, err
		},
		statusUnchanged(uc.UnitOfWork),
	)
	if err != nil {
		logger.Warn("agenda transition failed",
			"event", "agenda_transition_failed",
			"module", application.ModuleName,
			"layer", "application",
			"operation", operation,
			"agenda_id", agendaID,
			"error", domainerrors.Describe(err),
		)
		return AgendaResult{}, err
	}
	logger.Info("agenda transition applied",
		"event", "agenda_transition_applied",
		"module", application.ModuleName,
		"layer", "application",
		"operation", operation,
		"agenda_id", agendaID,
		"status", string(agenda.Status),
		"replayed", replayed,
	)
	return AgendaResult{Agenda: agenda, Replayed: replayed}, nil
}

func (uc AgendaUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
