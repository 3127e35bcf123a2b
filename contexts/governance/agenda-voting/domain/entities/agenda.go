package entities

import (
	"strings"
	"time"

	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
)

type AgendaStatus string

const (
	AgendaStatusDraft      AgendaStatus = "DRAFT"
	AgendaStatusOpen       AgendaStatus = "OPEN"
	AgendaStatusInProgress AgendaStatus = "IN_PROGRESS"
	AgendaStatusFinished   AgendaStatus = "FINISHED"
	AgendaStatusCancelled  AgendaStatus = "CANCELLED"
)

// ParseAgendaStatus accepts the canonical upper-case names, case-insensitively.
func ParseAgendaStatus(raw string) (AgendaStatus, bool) {
	status := AgendaStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case AgendaStatusDraft,
		AgendaStatusOpen,
		AgendaStatusInProgress,
		AgendaStatusFinished,
		AgendaStatusCancelled:
		return status, true
	default:
		return "", false
	}
}

func (s AgendaStatus) IsTerminal() bool {
	return s == AgendaStatusFinished || s == AgendaStatusCancelled
}

type AgendaResult string

const (
	AgendaResultUnvoted  AgendaResult = "UNVOTED"
	AgendaResultApproved AgendaResult = "APPROVED"
	AgendaResultRejected AgendaResult = "REJECTED"
	AgendaResultTie      AgendaResult = "TIE"
)

// Agenda is a topic put to a single yes/no vote.
type Agenda struct {
	AgendaID    string
	Title       string
	Description string
	Status      AgendaStatus
	Result      AgendaResult
	TotalVotes  int
	YesVotes    int
	NoVotes     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinishedAt  *time.Time
}

func NewAgenda(agendaID string, title string, description string, now time.Time) Agenda {
	return Agenda{
		AgendaID:    strings.TrimSpace(agendaID),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      AgendaStatusDraft,
		Result:      AgendaResultUnvoted,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

// IsActive reports whether the agenda currently accepts votes by status.
func (a Agenda) IsActive() bool {
	return a.Status == AgendaStatusOpen || a.Status == AgendaStatusInProgress
}

// Open publishes a draft agenda.
func (a *Agenda) Open(now time.Time) error {
	if a.Status != AgendaStatusDraft {
		return domainerrors.ErrOperationNotAllowed.WithMessage("only draft agendas can be opened")
	}
	a.Status = AgendaStatusOpen
	a.UpdatedAt = now.UTC()
	return nil
}

// CanStartTimer checks the status guard of the start-timer transition.
// Whether a session is already running is the session tracker's concern.
func (a Agenda) CanStartTimer() error {
	if a.Status.IsTerminal() {
		return domainerrors.ErrOperationNotAllowed.WithMessage("cannot start a session on a " + string(a.Status) + " agenda")
	}
	return nil
}

func (a *Agenda) StartTimer(now time.Time) error {
	if err := a.CanStartTimer(); err != nil {
		return err
	}
	a.Status = AgendaStatusInProgress
	a.UpdatedAt = now.UTC()
	return nil
}

// ApplyVote adds one vote to the tally. It refuses before touching any counter.
func (a *Agenda) ApplyVote(voteType VoteType, now time.Time) error {
	if !a.IsActive() {
		return domainerrors.ErrAgendaNotOpen
	}
	switch voteType {
	case VoteTypeYes:
		a.YesVotes++
	case VoteTypeNo:
		a.NoVotes++
	default:
		return domainerrors.ErrInvalidInput.WithMessage("vote type must be YES or NO")
	}
	a.TotalVotes++
	a.UpdatedAt = now.UTC()
	return nil
}

// Finalize closes voting and freezes the result. Only IN_PROGRESS agendas
// can be finalized, whether the trigger is a client or the expiry sweep.
func (a *Agenda) Finalize(now time.Time) error {
	if a.Status != AgendaStatusInProgress {
		return domainerrors.ErrOperationNotAllowed.WithMessage("only in-progress agendas can be finalized")
	}
	finishedAt := now.UTC()
	a.Status = AgendaStatusFinished
	a.Result = CalculateResult(a.YesVotes, a.NoVotes, a.TotalVotes)
	a.FinishedAt = &finishedAt
	a.UpdatedAt = finishedAt
	return nil
}

func (a *Agenda) Cancel(now time.Time) error {
	if a.Status.IsTerminal() {
		return domainerrors.ErrOperationNotAllowed.WithMessage("cannot cancel a " + string(a.Status) + " agenda")
	}
	a.Status = AgendaStatusCancelled
	a.UpdatedAt = now.UTC()
	return nil
}

// CountersConsistent holds for every persisted agenda.
func (a Agenda) CountersConsistent() bool {
	if a.TotalVotes < 0 || a.YesVotes < 0 || a.NoVotes < 0 {
		return false
	}
	return a.YesVotes+a.NoVotes <= a.TotalVotes
}

// CalculateResult is a pure function of the three counters.
func CalculateResult(yes int, no int, total int) AgendaResult {
	switch {
	case total == 0:
		return AgendaResultUnvoted
	case yes > no:
		return AgendaResultApproved
	case no > yes:
		return AgendaResultRejected
	default:
		return AgendaResultTie
	}
}
