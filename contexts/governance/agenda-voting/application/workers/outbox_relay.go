package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "assembly/contexts/governance/agenda-voting/application"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/contexts/governance/agenda-voting/ports"
)

const defaultRelayBatch = 100

// OutboxRelay forwards committed agenda events to the bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes one batch in commit order and acknowledges each row only
// after the publish succeeds. The first failure ends the cycle so the next
// run resumes from that row.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultRelayBatch
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("agenda outbox list failed",
			"event", "agenda_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return domainerrors.Normalize(err)
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}
	for i, row := range pending {
		if err := r.relay(ctx, logger, row, now); err != nil {
			logger.Warn("agenda outbox relay cycle stopped",
				"event", "agenda_outbox_relay_stopped",
				"module", application.ModuleName,
				"layer", "worker",
				"published_count", i,
				"remaining_count", len(pending)-i,
			)
			return domainerrors.Normalize(err)
		}
	}

	logger.Info("agenda outbox relay cycle completed",
		"event", "agenda_outbox_relay_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}

// relay publishes one row under its event type and marks it published.
func (r OutboxRelay) relay(ctx context.Context, logger *slog.Logger, row ports.OutboxMessage, now time.Time) error {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		logger.Error("agenda outbox decode failed",
			"event", "agenda_outbox_decode_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"outbox_id", row.OutboxID,
			"error", err.Error(),
		)
		return err
	}
	topic := event.EventType
	if topic == "" {
		topic = row.EventType
	}
	if err := r.Publisher.Publish(ctx, topic, event); err != nil {
		logger.Error("agenda outbox publish failed",
			"event", "agenda_outbox_publish_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"outbox_id", row.OutboxID,
			"event_type", topic,
			"error", err.Error(),
		)
		return err
	}
	if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
		// The event is already on the bus; the next cycle publishes it again.
		logger.Error("agenda outbox mark published failed",
			"event", "agenda_outbox_mark_published_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"outbox_id", row.OutboxID,
			"event_type", topic,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
