package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "assembly/contexts/governance/agenda-voting/application"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: application.ResolveLogger(logger),
	}
}

// Migrate creates or updates the module tables and their indexes.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&agendaModel{},
		&sessionModel{},
		&voteModel{},
		&userModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("agenda_repo_migrate_failed", err)
	}
	return nil
}

// UpsertUser registers or renames a voter.
func (r *Repository) UpsertUser(ctx context.Context, user entities.Voter) error {
	row := userModel{
		ID:        strings.TrimSpace(user.UserID),
		Name:      strings.TrimSpace(user.Name),
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("agenda_repo_upsert_user_failed", err, "user_id", row.ID)
	}
	return nil
}

func (r *Repository) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", strings.TrimSpace(userID)).
		Count(&count).Error; err != nil {
		return false, r.logError("agenda_repo_user_exists_failed", err, "user_id", strings.TrimSpace(userID))
	}
	return count > 0, nil
}

func (r *Repository) GetAgenda(ctx context.Context, agendaID string) (entities.Agenda, error) {
	return r.getAgenda(r.db.WithContext(ctx), agendaID)
}

func (r *Repository) getAgenda(db *gorm.DB, agendaID string) (entities.Agenda, error) {
	var row agendaModel
	err := db.Where("id = ?", strings.TrimSpace(agendaID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Agenda{}, domainerrors.ErrAgendaNotFound
		}
		return entities.Agenda{}, r.logError("agenda_repo_get_agenda_failed", err, "agenda_id", strings.TrimSpace(agendaID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&agendaModel{}).
		Where("title = ?", strings.TrimSpace(title)).
		Count(&count).Error; err != nil {
		return false, r.logError("agenda_repo_exists_by_title_failed", err)
	}
	return count > 0, nil
}

func (r *Repository) ListAgendasByStatus(ctx context.Context, statuses ...entities.AgendaStatus) ([]entities.Agenda, error) {
	query := r.db.WithContext(ctx).Model(&agendaModel{})
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		query = query.Where("status IN ?", values)
	}
	var rows []agendaModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("agenda_repo_list_agendas_failed", err, "status_count", len(statuses))
	}
	items := make([]entities.Agenda, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// CreateAgenda inserts the agenda and its creation event in one transaction.
func (r *Repository) CreateAgenda(ctx context.Context, agenda entities.Agenda, event ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := agendaModelFromEntity(agenda)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err, agendaTitleIndex) {
				return domainerrors.ErrDuplicateTitle
			}
			return r.logError("agenda_repo_create_agenda_failed", err, "agenda_id", row.ID)
		}
		return r.appendOutbox(tx, event)
	})
}

// WithinAgenda runs fn in a transaction that holds the agenda row lock, so
// concurrent writers of the same agenda queue behind each other.
func (r *Repository) WithinAgenda(
	ctx context.Context,
	agendaID string,
	fn func(ctx context.Context, tx ports.AgendaTx) error,
) error {
	agendaID = strings.TrimSpace(agendaID)
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var row agendaModel
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", agendaID).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrAgendaNotFound
			}
			return r.logError("agenda_repo_lock_agenda_failed", err, "agenda_id", agendaID)
		}
		return fn(ctx, &agendaTx{repo: r, db: db})
	})
}

func (r *Repository) GetActiveSession(ctx context.Context, agendaID string, now time.Time) (entities.Session, bool, error) {
	return r.activeSession(r.db.WithContext(ctx), agendaID, now)
}

func (r *Repository) activeSession(db *gorm.DB, agendaID string, now time.Time) (entities.Session, bool, error) {
	var row sessionModel
	err := db.Where("agenda_id = ?", strings.TrimSpace(agendaID)).
		Where("reconciled = ?", false).
		Where("end_time > ?", now.UTC()).
		Order("start_time DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, false, nil
		}
		return entities.Session{}, false, r.logError("agenda_repo_active_session_failed", err,
			"agenda_id", strings.TrimSpace(agendaID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) HasActiveSession(ctx context.Context, agendaID string, now time.Time) (bool, error) {
	_, ok, err := r.GetActiveSession(ctx, agendaID, now)
	return ok, err
}

func (r *Repository) ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]entities.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("reconciled = ?", false).
		Where("end_time <= ?", now.UTC()).
		Order("end_time ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("agenda_repo_list_expired_sessions_failed", err, "limit", limit)
	}
	return toSessionEntities(rows), nil
}

func (r *Repository) ListSessionsByAgenda(ctx context.Context, agendaID string) ([]entities.Session, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("agenda_id = ?", strings.TrimSpace(agendaID)).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("agenda_repo_list_sessions_failed", err, "agenda_id", strings.TrimSpace(agendaID))
	}
	return toSessionEntities(rows), nil
}

func (r *Repository) GetVote(ctx context.Context, voteID string) (entities.Vote, error) {
	var row voteModel
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(voteID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, domainerrors.ErrVoteNotFound
		}
		return entities.Vote{}, r.logError("agenda_repo_get_vote_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListVotesByAgenda(ctx context.Context, agendaID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("agenda_id = ?", strings.TrimSpace(agendaID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("agenda_repo_list_votes_failed", err, "agenda_id", strings.TrimSpace(agendaID))
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) appendOutbox(db *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("agenda_repo_outbox_marshal_failed", err, "event_type", envelope.EventType)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return r.logError("agenda_repo_outbox_insert_failed", err, "outbox_id", row.OutboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("agenda_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("agenda_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInternal.WithMessage("outbox row not found: " + strings.TrimSpace(outboxID))
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("agenda repository operation failed", fields...)
	return err
}

var (
	_ ports.AgendaRepository  = (*Repository)(nil)
	_ ports.SessionRepository = (*Repository)(nil)
	_ ports.VoteRepository    = (*Repository)(nil)
	_ ports.UserDirectory     = (*Repository)(nil)
	_ ports.UnitOfWork        = (*Repository)(nil)
	_ ports.OutboxRepository  = (*Repository)(nil)
)
