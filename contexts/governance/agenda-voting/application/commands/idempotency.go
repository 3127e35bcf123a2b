package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyKey derives the cache key of an operation from its name and
// ordered arguments. Equal inputs give equal keys; reordering or changing any
// argument gives a different key.
func IdempotencyKey(operation string, args ...any) string {
	normalized := make([]any, 0, len(args))
	for _, arg := range args {
		if value, ok := arg.(string); ok {
			arg = strings.TrimSpace(value)
		}
		normalized = append(normalized, arg)
	}
	body, err := json.Marshal(normalized)
	if err != nil {
		body = []byte(fmt.Sprintf("%#v", normalized))
	}
	sum := sha256.Sum256(body)
	return operation + ":" + hex.EncodeToString(sum[:])
}

// replayCheck reports whether a cached outcome still describes the stored
// agenda. A false answer drops the entry and the operation runs again.
type replayCheck[T any] func(ctx context.Context, cached T) (bool, error)

// runIdempotent wraps fn with replay-or-execute semantics. A nil cache
// degrades to a plain call. Returned errors are always coded.
func runIdempotent[T any](
	ctx context.Context,
	cache ports.IdempotencyCache,
	key string,
	ttl time.Duration,
	fn func(ctx context.Context) (T, error),
	current replayCheck[T],
) (T, bool, error) {
	var zero T
	if cache == nil {
		value, err := fn(ctx)
		return value, false, domainerrors.Normalize(err)
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	value, replayed, err := executeCached(ctx, cache, key, ttl, fn)
	if err != nil || !replayed || current == nil {
		return value, replayed, domainerrors.Normalize(err)
	}
	ok, err := current(ctx, value)
	if err != nil {
		return zero, false, domainerrors.Normalize(err)
	}
	if ok {
		return value, true, nil
	}
	cache.Invalidate(key)
	value, replayed, err = executeCached(ctx, cache, key, ttl, fn)
	return value, replayed, domainerrors.Normalize(err)
}

func executeCached[T any](
	ctx context.Context,
	cache ports.IdempotencyCache,
	key string,
	ttl time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, bool, error) {
	var zero T
	raw, replayed, err := cache.Execute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return zero, false, err
	}
	value, ok := raw.(T)
	if !ok {
		// Entry written by a different operation shape; drop it and run for real.
		cache.Invalidate(key)
		value, err := fn(ctx)
		return value, false, err
	}
	return value, replayed, nil
}
