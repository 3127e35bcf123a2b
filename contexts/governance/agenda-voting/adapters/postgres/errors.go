package postgresadapter

import (
	"errors"

	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"

	agendaTitleIndex = "idx_agendas_title"
	voteVoterIndex   = "idx_agenda_votes_voter"
)

// RegisterErrorRules teaches the classifier the postgres failures that a
// client can resolve by retrying.
func RegisterErrorRules(classifier *domainerrors.Classifier) {
	classifier.Register(domainerrors.Rule{
		Name: "postgres_serialization",
		Match: func(err error) bool {
			return hasPgCode(err, pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable)
		},
		Code: domainerrors.CodeConcurrentUpdate,
	})
}

func hasPgCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
