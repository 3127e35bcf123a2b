package postgresadapter

import (
	"context"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// agendaTx binds the AgendaTx surface to one open gorm transaction.
type agendaTx struct {
	repo *Repository
	db   *gorm.DB
}

func (t *agendaTx) GetAgenda(_ context.Context, agendaID string) (entities.Agenda, error) {
	return t.repo.getAgenda(t.db, agendaID)
}

func (t *agendaTx) SaveAgenda(_ context.Context, agenda entities.Agenda) error {
	if !agenda.CountersConsistent() {
		return domainerrors.ErrInternal.WithMessage("agenda counters are inconsistent")
	}
	row := agendaModelFromEntity(agenda)
	result := t.db.Model(&agendaModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":      row.Status,
			"result":      row.Result,
			"total_votes": row.TotalVotes,
			"yes_votes":   row.YesVotes,
			"no_votes":    row.NoVotes,
			"updated_at":  row.UpdatedAt,
			"finished_at": row.FinishedAt,
		})
	if result.Error != nil {
		return t.repo.logError("agenda_repo_save_agenda_failed", result.Error, "agenda_id", row.ID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAgendaNotFound
	}
	return nil
}

func (t *agendaTx) HasVoted(_ context.Context, agendaID string, userID string) (bool, error) {
	var count int64
	if err := t.db.Model(&voteModel{}).
		Where("agenda_id = ? AND user_id = ?", agendaID, userID).
		Count(&count).Error; err != nil {
		return false, t.repo.logError("agenda_repo_has_voted_failed", err, "agenda_id", agendaID)
	}
	return count > 0, nil
}

func (t *agendaTx) SaveVote(_ context.Context, vote entities.Vote) error {
	row := voteModel{
		ID:        vote.VoteID,
		AgendaID:  vote.AgendaID,
		UserID:    vote.UserID,
		VoteType:  string(vote.VoteType),
		CreatedAt: vote.CreatedAt.UTC(),
	}
	if err := t.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err, voteVoterIndex) {
			return domainerrors.ErrUserAlreadyVoted
		}
		return t.repo.logError("agenda_repo_save_vote_failed", err,
			"agenda_id", row.AgendaID,
			"vote_id", row.ID,
		)
	}
	return nil
}

func (t *agendaTx) GetActiveSession(_ context.Context, agendaID string, now time.Time) (entities.Session, bool, error) {
	return t.repo.activeSession(t.db, agendaID, now)
}

func (t *agendaTx) SaveSession(_ context.Context, session entities.Session) error {
	if !session.StartTime.Before(session.EndTime) {
		return domainerrors.ErrInvalidTimeRange
	}
	row := sessionModelFromEntity(session)
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reconciled", "reconciled_at"}),
	}).Create(&row).Error
	if err != nil {
		return t.repo.logError("agenda_repo_save_session_failed", err,
			"agenda_id", row.AgendaID,
			"session_id", row.ID,
		)
	}
	return nil
}

func (t *agendaTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	return t.repo.appendOutbox(t.db, envelope)
}
