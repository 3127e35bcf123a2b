package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errDriverTimeout = errors.New("driver: i/o timeout")

func TestCodedErrorsMatchBySentinelCode(t *testing.T) {
	specific := ErrOperationNotAllowed.WithMessage("only draft agendas can be opened")

	assert.ErrorIs(t, specific, ErrOperationNotAllowed)
	assert.ErrorIs(t, fmt.Errorf("open agenda: %w", specific), ErrOperationNotAllowed)
	assert.NotErrorIs(t, specific, ErrAgendaNotOpen)
	assert.Equal(t, "only draft agendas can be opened", specific.Error())
}

func TestClassifierPassesCodedErrorsThrough(t *testing.T) {
	classifier := NewClassifier()
	wrapped := fmt.Errorf("cast vote: %w", ErrUserAlreadyVoted)

	assert.Equal(t, CodeUserAlreadyVoted, classifier.Classify(wrapped).Code)
	assert.Nil(t, classifier.Classify(nil))
}

func TestClassifierDefaultsToInternal(t *testing.T) {
	classified := NewClassifier().Classify(errors.New("unexpected"))
	assert.Equal(t, CodeInternal, classified.Code)
	assert.Equal(t, ErrInternal.Message, classified.Error())
}

func TestClassifierAppliesRulesInRegistrationOrder(t *testing.T) {
	classifier := NewClassifier(MatchIs("driver_timeout", errDriverTimeout, CodeConcurrentUpdate))
	classifier.Register(MatchIs("shadowed", errDriverTimeout, CodeInvalidInput))
	classifier.Register(Rule{Name: "ignored"})

	classified := classifier.Classify(fmt.Errorf("query: %w", errDriverTimeout))
	assert.Equal(t, CodeConcurrentUpdate, classified.Code)
	assert.Equal(t, ErrConcurrentUpdate.Message, classified.Message)
}

func TestCodeOfUsesDefaultClassifier(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, CodeInternal, CodeOf(context.DeadlineExceeded))
	assert.Equal(t, CodeAgendaNotFound, CodeOf(ErrAgendaNotFound))
}

func TestClassifierRegisterReplacesRuleWithSameName(t *testing.T) {
	classifier := NewClassifier(MatchIs("driver_timeout", errDriverTimeout, CodeInternal))
	classifier.Register(MatchIs("driver_timeout", errDriverTimeout, CodeConcurrentUpdate))

	assert.Equal(t, CodeConcurrentUpdate, classifier.Classify(errDriverTimeout).Code)
}

func TestNormalizeKeepsCauseOfForeignErrors(t *testing.T) {
	assert.NoError(t, Normalize(nil))
	assert.Same(t, ErrAgendaNotFound, Normalize(ErrAgendaNotFound))

	normalized := Normalize(fmt.Errorf("save agenda: %w", errDriverTimeout))
	var coded *Error
	assert.ErrorAs(t, normalized, &coded)
	assert.Equal(t, CodeInternal, coded.Code)
	assert.Equal(t, ErrInternal.Message, coded.Error())
	assert.ErrorIs(t, normalized, ErrInternal)
	assert.ErrorIs(t, normalized, errDriverTimeout)
}

func TestDescribeShowsCauseForLogs(t *testing.T) {
	assert.Equal(t, "", Describe(nil))
	assert.Equal(t, "agenda not found", Describe(ErrAgendaNotFound))
	assert.Equal(t, "internal error: driver: i/o timeout", Describe(Normalize(errDriverTimeout)))
}
