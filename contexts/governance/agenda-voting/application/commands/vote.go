package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "assembly/contexts/governance/agenda-voting/application"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
	contractsv1 "assembly/contracts/gen/events/v1"
)

type CastVoteCommand struct {
	AgendaID string
	UserID   string
	VoteType entities.VoteType
}

// CastVoteResult carries the recorded vote and the agenda tally that includes
// it.
type CastVoteResult struct {
	Vote     entities.Vote
	Agenda   entities.Agenda
	Replayed bool
}

type castOutcome struct {
	Vote   entities.Vote
	Agenda entities.Agenda
}

// VoteUseCase records ballots. The vote row and the tally increment commit
// together inside the agenda's unit of work.
type VoteUseCase struct {
	UnitOfWork     ports.UnitOfWork
	Users          ports.UserDirectory
	Idempotency    ports.IdempotencyCache
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CastVote records one vote per (user, agenda). Checks run in order: agenda
// exists, agenda accepts votes, user exists, user has not voted yet.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	agendaID := strings.TrimSpace(cmd.AgendaID)
	userID := strings.TrimSpace(cmd.UserID)
	voteType, ok := entities.ParseVoteType(string(cmd.VoteType))
	if agendaID == "" || userID == "" || !ok {
		logger.Warn("vote cast validation failed",
			"event", "agenda_vote_cast_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"agenda_id", agendaID,
			"user_id", userID,
		)
		return CastVoteResult{}, domainerrors.ErrInvalidInput.WithMessage("agenda_id, user_id and a YES/NO vote type are required")
	}

	key := IdempotencyKey("castVote", agendaID, userID, string(voteType))
	outcome, replayed, err := runIdempotent(ctx, uc.Idempotency, key, uc.IdempotencyTTL,
		func(ctx context.Context) (castOutcome, error) {
			return uc.castVote(ctx, agendaID, userID, voteType)
		},
		stillAcceptingVotes[castOutcome](uc.UnitOfWork, agendaID, uc.now),
	)
	if err != nil {
		logger.Warn("vote cast rejected",
			"event", "agenda_vote_cast_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"agenda_id", agendaID,
			"user_id", userID,
			"code", string(domainerrors.CodeOf(err)),
			"error", domainerrors.Describe(err),
		)
		return CastVoteResult{}, err
	}
	logger.Info("vote cast",
		"event", "agenda_vote_cast",
		"module", application.ModuleName,
		"layer", "application",
		"agenda_id", agendaID,
		"vote_id", outcome.Vote.VoteID,
		"total_votes", outcome.Agenda.TotalVotes,
		"replayed", replayed,
	)
	return CastVoteResult{Vote: outcome.Vote, Agenda: outcome.Agenda, Replayed: replayed}, nil
}

func (uc VoteUseCase) castVote(
	ctx context.Context,
	agendaID string,
	userID string,
	voteType entities.VoteType,
) (castOutcome, error) {
	var outcome castOutcome
	err := uc.UnitOfWork.WithinAgenda(ctx, agendaID, func(ctx context.Context, tx ports.AgendaTx) error {
		agenda, err := tx.GetAgenda(ctx, agendaID)
		if err != nil {
			return err
		}
		now := uc.now()
		if err := ensureAcceptingVotes(ctx, tx, agenda, now); err != nil {
			return err
		}
		exists, err := uc.Users.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return domainerrors.ErrUserNotFound
		}
		voted, err := tx.HasVoted(ctx, agendaID, userID)
		if err != nil {
			return err
		}
		if voted {
			return domainerrors.ErrUserAlreadyVoted
		}

		voteID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		vote := entities.Vote{
			VoteID:    voteID,
			AgendaID:  agendaID,
			UserID:    userID,
			VoteType:  voteType,
			CreatedAt: now,
		}
		if err := agenda.ApplyVote(voteType, now); err != nil {
			return err
		}
		if err := tx.SaveVote(ctx, vote); err != nil {
			return err
		}
		if err := tx.SaveAgenda(ctx, agenda); err != nil {
			return err
		}
		if err := appendAgendaEvent(ctx, tx, uc.IDGen, contractsv1.EventVoteCast, agenda, now, map[string]any{
			"vote_id":   vote.VoteID,
			"user_id":   vote.UserID,
			"vote_type": string(vote.VoteType),
		}); err != nil {
			return err
		}
		outcome = castOutcome{Vote: vote, Agenda: agenda}
		return nil
	})
	return outcome, err
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
