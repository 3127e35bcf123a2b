package postgresadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SystemClock implements ports.Clock. Values are truncated to microseconds,
// the resolution of a postgres timestamp, so stored and in-memory times compare
// equal.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// UUIDGenerator implements ports.IDGenerator with UUID v4 values.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
