package errors

import (
	"context"
	"errors"
	"sync"
)

// Rule maps a foreign error onto the closed vocabulary.
type Rule struct {
	Name  string
	Match func(err error) bool
	Code  Code
}

// MatchIs builds a rule that fires when errors.Is(err, target).
func MatchIs(name string, target error, code Code) Rule {
	return Rule{
		Name:  name,
		Match: func(err error) bool { return errors.Is(err, target) },
		Code:  code,
	}
}

// Classifier is the single fallback step that turns unexpected failures
// (driver faults, timeouts, broker errors) into a stable code. Coded errors
// pass through untouched. Rules are evaluated in registration order and may
// be added at runtime, e.g. by persistence adapters during bootstrap.
type Classifier struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewClassifier(rules ...Rule) *Classifier {
	c := &Classifier{}
	for _, rule := range rules {
		c.Register(rule)
	}
	return c
}

// Register appends rule, or replaces the rule already registered under the
// same name in place.
func (c *Classifier) Register(rule Rule) {
	if rule.Match == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.rules {
		if rule.Name != "" && existing.Name == rule.Name {
			c.rules[i] = rule
			return
		}
	}
	c.rules = append(c.rules, rule)
}

// Classify returns the coded form of err. Nil stays nil.
func (c *Classifier) Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	if c != nil {
		c.mu.RLock()
		rules := append([]Rule(nil), c.rules...)
		c.mu.RUnlock()
		for _, rule := range rules {
			if rule.Match(err) {
				return &Error{Code: rule.Code, Message: defaultMessage(rule.Code), Cause: err}
			}
		}
	}
	return &Error{Code: CodeInternal, Message: ErrInternal.Message, Cause: err}
}

// Normalize is the use-case return step: coded errors pass through, anything
// else is classified by DefaultClassifier with the original kept as Cause.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	return DefaultClassifier.Classify(err)
}

// Describe renders err for logs. Classified errors also show their cause,
// which callers never see.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Cause != nil {
		return coded.Error() + ": " + coded.Cause.Error()
	}
	return err.Error()
}

// CodeOf is a shortcut for DefaultClassifier.Classify(err).Code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return DefaultClassifier.Classify(err).Code
}

// DefaultClassifier carries the process-wide rules.
var DefaultClassifier = NewClassifier(
	MatchIs("context_deadline", context.DeadlineExceeded, CodeInternal),
	MatchIs("context_canceled", context.Canceled, CodeInternal),
)

func defaultMessage(code Code) string {
	for _, sentinel := range []*Error{
		ErrAgendaNotFound,
		ErrUserNotFound,
		ErrVoteNotFound,
		ErrSessionNotFound,
		ErrAgendaNotOpen,
		ErrOperationNotAllowed,
		ErrUserAlreadyVoted,
		ErrDuplicateTitle,
		ErrInvalidDuration,
		ErrInvalidTimeRange,
		ErrInvalidInput,
		ErrConcurrentUpdate,
	} {
		if sentinel.Code == code {
			return sentinel.Message
		}
	}
	return ErrInternal.Message
}
