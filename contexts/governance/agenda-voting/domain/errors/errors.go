package errors

import "errors"

// Code is the stable, caller-visible error vocabulary of the agenda-voting
// module. The set is closed: new failure kinds get a new constant here.
type Code string

const (
	CodeAgendaNotFound      Code = "AGENDA_NOT_FOUND"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeVoteNotFound        Code = "VOTE_NOT_FOUND"
	CodeSessionNotFound     Code = "SESSION_NOT_FOUND"
	CodeAgendaNotOpen       Code = "AGENDA_NOT_OPEN"
	CodeOperationNotAllowed Code = "OPERATION_NOT_ALLOWED"
	CodeUserAlreadyVoted    Code = "USER_ALREADY_VOTED"
	CodeDuplicateTitle      Code = "DUPLICATE_TITLE"
	CodeInvalidDuration     Code = "INVALID_DURATION"
	CodeInvalidTimeRange    Code = "INVALID_TIME_RANGE"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeConcurrentUpdate    Code = "CONCURRENT_UPDATE"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a coded failure produced by the code that detected it. Two errors
// match under errors.Is when their codes are equal, so callers can compare
// against the sentinels below even when the message was specialised.
type Error struct {
	Code    Code
	Message string
	// Cause is the foreign failure a classifier mapped onto Code, if any.
	Cause error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithMessage returns a copy carrying the same code and a more specific message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Code: e.Code, Message: message, Cause: e.Cause}
}

var (
	ErrAgendaNotFound      = New(CodeAgendaNotFound, "agenda not found")
	ErrUserNotFound        = New(CodeUserNotFound, "user not found")
	ErrVoteNotFound        = New(CodeVoteNotFound, "vote not found")
	ErrSessionNotFound     = New(CodeSessionNotFound, "session not found")
	ErrAgendaNotOpen       = New(CodeAgendaNotOpen, "agenda is not open for voting")
	ErrOperationNotAllowed = New(CodeOperationNotAllowed, "operation not allowed in current agenda status")
	ErrUserAlreadyVoted    = New(CodeUserAlreadyVoted, "user already voted on this agenda")
	ErrDuplicateTitle      = New(CodeDuplicateTitle, "agenda title already exists")
	ErrInvalidDuration     = New(CodeInvalidDuration, "session duration must be between 1 and 1440 minutes")
	ErrInvalidTimeRange    = New(CodeInvalidTimeRange, "session start time must be before end time")
	ErrInvalidInput        = New(CodeInvalidInput, "invalid input")
	ErrConcurrentUpdate    = New(CodeConcurrentUpdate, "agenda was modified concurrently, retry the request")
	ErrInternal            = New(CodeInternal, "internal error")
)
