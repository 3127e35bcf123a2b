package entities

import (
	"strings"
	"time"

	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
)

const (
	MinSessionMinutes = 1
	MaxSessionMinutes = 1440
)

// Session is the voting window bound to one agenda. An agenda keeps the
// history of its sessions; at most one of them is active at a time.
type Session struct {
	SessionID    string
	AgendaID     string
	StartTime    time.Time
	EndTime      time.Time
	Reconciled   bool
	ReconciledAt *time.Time
	CreatedAt    time.Time
}

// NewSession opens a window of durationMinutes starting at now.
func NewSession(sessionID string, agendaID string, now time.Time, durationMinutes int) (Session, error) {
	if durationMinutes < MinSessionMinutes || durationMinutes > MaxSessionMinutes {
		return Session{}, domainerrors.ErrInvalidDuration
	}
	start := now.UTC()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	if !start.Before(end) {
		return Session{}, domainerrors.ErrInvalidTimeRange
	}
	return Session{
		SessionID: strings.TrimSpace(sessionID),
		AgendaID:  strings.TrimSpace(agendaID),
		StartTime: start,
		EndTime:   end,
		CreatedAt: start,
	}, nil
}

// IsActive reports whether the window is still running. A reconciled session
// is closed regardless of its end time.
func (s Session) IsActive(now time.Time) bool {
	return !s.Reconciled && s.EndTime.After(now.UTC())
}

func (s Session) IsExpired(now time.Time) bool {
	return !s.IsActive(now)
}

func (s Session) Remaining(now time.Time) time.Duration {
	if !s.IsActive(now) {
		return 0
	}
	return s.EndTime.Sub(now.UTC())
}

func (s *Session) MarkReconciled(now time.Time) {
	at := now.UTC()
	s.Reconciled = true
	s.ReconciledAt = &at
}
