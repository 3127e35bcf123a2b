package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateAgendaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type StartSessionRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

type CastVoteRequest struct {
	VoteType string `json:"vote_type"`
}

type UpdateTallyRequest struct {
	VoteType string `json:"vote_type"`
}

type AgendaResponse struct {
	AgendaID    string     `json:"agenda_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Result      string     `json:"result"`
	TotalVotes  int        `json:"total_votes"`
	YesVotes    int        `json:"yes_votes"`
	NoVotes     int        `json:"no_votes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Replayed    bool       `json:"replayed,omitempty"`
}

type AgendaListResponse struct {
	Items []AgendaResponse `json:"items"`
}

type SessionResponse struct {
	SessionID  string     `json:"session_id"`
	AgendaID   string     `json:"agenda_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Reconciled bool       `json:"reconciled"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

type StartSessionResponse struct {
	Agenda   AgendaResponse  `json:"agenda"`
	Session  SessionResponse `json:"session"`
	Replayed bool            `json:"replayed"`
}

type SessionStatusResponse struct {
	AgendaID         string            `json:"agenda_id"`
	Active           bool              `json:"active"`
	Current          *SessionResponse  `json:"current,omitempty"`
	RemainingSeconds int64             `json:"remaining_seconds"`
	History          []SessionResponse `json:"history"`
}

type VoteResponse struct {
	VoteID    string    `json:"vote_id"`
	AgendaID  string    `json:"agenda_id"`
	UserID    string    `json:"user_id"`
	VoteType  string    `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
}

type CastVoteResponse struct {
	Vote     VoteResponse   `json:"vote"`
	Agenda   AgendaResponse `json:"agenda"`
	Replayed bool           `json:"replayed"`
}

type VoteListResponse struct {
	Items []VoteResponse `json:"items"`
}

type SweepResponse struct {
	Scanned   int `json:"scanned"`
	Finalized int `json:"finalized"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
