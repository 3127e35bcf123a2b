package postgresadapter

import (
	"strings"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type agendaModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	Title       string     `gorm:"column:title;not null;uniqueIndex:idx_agendas_title"`
	Description string     `gorm:"column:description"`
	Status      string     `gorm:"column:status;not null;index:idx_agendas_status"`
	Result      string     `gorm:"column:result;not null"`
	TotalVotes  int        `gorm:"column:total_votes;not null;default:0;check:chk_agendas_total,total_votes >= yes_votes + no_votes"`
	YesVotes    int        `gorm:"column:yes_votes;not null;default:0;check:chk_agendas_yes,yes_votes >= 0"`
	NoVotes     int        `gorm:"column:no_votes;not null;default:0;check:chk_agendas_no,no_votes >= 0"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	FinishedAt  *time.Time `gorm:"column:finished_at"`
}

func (agendaModel) TableName() string {
	return "agendas"
}

func agendaModelFromEntity(agenda entities.Agenda) agendaModel {
	row := agendaModel{
		ID:          strings.TrimSpace(agenda.AgendaID),
		Title:       strings.TrimSpace(agenda.Title),
		Description: agenda.Description,
		Status:      string(agenda.Status),
		Result:      string(agenda.Result),
		TotalVotes:  agenda.TotalVotes,
		YesVotes:    agenda.YesVotes,
		NoVotes:     agenda.NoVotes,
		CreatedAt:   agenda.CreatedAt.UTC(),
		UpdatedAt:   agenda.UpdatedAt.UTC(),
	}
	if agenda.FinishedAt != nil {
		finishedAt := agenda.FinishedAt.UTC()
		row.FinishedAt = &finishedAt
	}
	return row
}

func (m agendaModel) toEntity() entities.Agenda {
	agenda := entities.Agenda{
		AgendaID:    m.ID,
		Title:       m.Title,
		Description: m.Description,
		Status:      entities.AgendaStatus(m.Status),
		Result:      entities.AgendaResult(m.Result),
		TotalVotes:  m.TotalVotes,
		YesVotes:    m.YesVotes,
		NoVotes:     m.NoVotes,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	if m.FinishedAt != nil {
		finishedAt := m.FinishedAt.UTC()
		agenda.FinishedAt = &finishedAt
	}
	return agenda
}

type sessionModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	AgendaID     string     `gorm:"column:agenda_id;not null;index:idx_agenda_sessions_agenda"`
	StartTime    time.Time  `gorm:"column:start_time;not null"`
	EndTime      time.Time  `gorm:"column:end_time;not null;index:idx_agenda_sessions_expiry,priority:2"`
	Reconciled   bool       `gorm:"column:reconciled;not null;default:false;index:idx_agenda_sessions_expiry,priority:1"`
	ReconciledAt *time.Time `gorm:"column:reconciled_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (sessionModel) TableName() string {
	return "agenda_sessions"
}

func sessionModelFromEntity(session entities.Session) sessionModel {
	row := sessionModel{
		ID:         strings.TrimSpace(session.SessionID),
		AgendaID:   strings.TrimSpace(session.AgendaID),
		StartTime:  session.StartTime.UTC(),
		EndTime:    session.EndTime.UTC(),
		Reconciled: session.Reconciled,
		CreatedAt:  session.CreatedAt.UTC(),
	}
	if session.ReconciledAt != nil {
		at := session.ReconciledAt.UTC()
		row.ReconciledAt = &at
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.StartTime
	}
	return row
}

func (m sessionModel) toEntity() entities.Session {
	session := entities.Session{
		SessionID:  m.ID,
		AgendaID:   m.AgendaID,
		StartTime:  m.StartTime.UTC(),
		EndTime:    m.EndTime.UTC(),
		Reconciled: m.Reconciled,
		CreatedAt:  m.CreatedAt.UTC(),
	}
	if m.ReconciledAt != nil {
		at := m.ReconciledAt.UTC()
		session.ReconciledAt = &at
	}
	return session
}

func toSessionEntities(rows []sessionModel) []entities.Session {
	items := make([]entities.Session, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type voteModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	AgendaID  string    `gorm:"column:agenda_id;not null;uniqueIndex:idx_agenda_votes_voter,priority:1"`
	UserID    string    `gorm:"column:user_id;not null;uniqueIndex:idx_agenda_votes_voter,priority:2"`
	VoteType  string    `gorm:"column:vote_type;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "agenda_votes"
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:    m.ID,
		AgendaID:  m.AgendaID,
		UserID:    m.UserID,
		VoteType:  entities.VoteType(m.VoteType),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type userModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (userModel) TableName() string {
	return "agenda_voters"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status;not null;index:idx_agenda_outbox_pending,priority:1"`
	CreatedAt    time.Time  `gorm:"column:created_at;index:idx_agenda_outbox_pending,priority:2"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "agenda_outbox"
}
