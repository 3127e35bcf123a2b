package workers

import (
	"context"
	"log/slog"
	"time"

	application "assembly/contexts/governance/agenda-voting/application"
	"assembly/contexts/governance/agenda-voting/application/sessions"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
)

// SessionReconciler applies the expiry outcome of one elapsed session and
// reports whether its agenda was finalized.
type SessionReconciler interface {
	ReconcileExpiredSession(ctx context.Context, session entities.Session) (bool, error)
}

// SweepReport summarizes one pass. Scanned = Finalized + Skipped + Failed.
type SweepReport struct {
	Scanned   int
	Finalized int
	Skipped   int
	Failed    int
}

// ExpirySweeper finalizes agendas whose voting window has elapsed.
type ExpirySweeper struct {
	Sessions   sessions.Tracker
	Reconciler SessionReconciler
	Clock      ports.Clock
	BatchSize  int
	Logger     *slog.Logger
}

// RunOnce adapts ProcessExpiredSessions to the scheduler job signature.
func (w ExpirySweeper) RunOnce(ctx context.Context) error {
	_, err := w.ProcessExpiredSessions(ctx)
	return err
}

// ProcessExpiredSessions reconciles one batch of elapsed sessions. A failure
// on one session is logged and counted; the rest of the batch still runs.
func (w ExpirySweeper) ProcessExpiredSessions(ctx context.Context) (SweepReport, error) {
	logger := application.ResolveLogger(w.Logger)
	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}

	expired, err := w.Sessions.FindExpired(ctx, now, w.BatchSize)
	if err != nil {
		logger.Error("expired session scan failed",
			"event", "agenda_expiry_scan_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", domainerrors.Describe(err),
		)
		return SweepReport{}, domainerrors.Normalize(err)
	}

	var report SweepReport
	for _, session := range expired {
		if err := ctx.Err(); err != nil {
			return report, domainerrors.Normalize(err)
		}
		report.Scanned++
		finalized, err := w.Reconciler.ReconcileExpiredSession(ctx, session)
		if err != nil {
			report.Failed++
			logger.Error("expired session reconcile failed",
				"event", "agenda_expiry_reconcile_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"session_id", session.SessionID,
				"agenda_id", session.AgendaID,
				"code", string(domainerrors.CodeOf(err)),
				"error", domainerrors.Describe(err),
			)
			continue
		}
		if finalized {
			report.Finalized++
		} else {
			report.Skipped++
		}
	}

	if report.Scanned == 0 {
		logger.Debug("expiry sweep found no elapsed sessions",
			"event", "agenda_expiry_sweep_noop",
			"module", application.ModuleName,
			"layer", "worker",
		)
		return report, nil
	}
	logger.Info("expiry sweep completed",
		"event", "agenda_expiry_sweep_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"scanned", report.Scanned,
		"finalized", report.Finalized,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}
