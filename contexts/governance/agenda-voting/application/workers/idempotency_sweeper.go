package workers

import (
	"context"
	"log/slog"

	application "assembly/contexts/governance/agenda-voting/application"
	"assembly/contexts/governance/agenda-voting/ports"
)

// IdempotencySweeper evicts expired replay entries on its own schedule so
// request paths never pay for a full scan.
type IdempotencySweeper struct {
	Cache  ports.IdempotencyCache
	Logger *slog.Logger
}

func (w IdempotencySweeper) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	removed := w.Cache.Sweep()
	if removed > 0 {
		application.ResolveLogger(w.Logger).Info("idempotency entries evicted",
			"event", "agenda_idempotency_swept",
			"module", application.ModuleName,
			"layer", "worker",
			"removed", removed,
		)
	}
	return nil
}
