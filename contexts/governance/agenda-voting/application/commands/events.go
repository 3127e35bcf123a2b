package commands

import (
	"context"
	"encoding/json"
	"time"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	"assembly/contexts/governance/agenda-voting/ports"
)

const sourceService = "agenda-voting"

func newAgendaEnvelope(
	eventID string,
	eventType string,
	agendaID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by agenda so consumers see one agenda's lifecycle in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "agenda_id",
		PartitionKey:     agendaID,
		Data:             payload,
	}, nil
}

func agendaEventData(agenda entities.Agenda, occurredAt time.Time, extra map[string]any) map[string]any {
	data := map[string]any{
		"agenda_id":   agenda.AgendaID,
		"title":       agenda.Title,
		"status":      string(agenda.Status),
		"result":      string(agenda.Result),
		"total_votes": agenda.TotalVotes,
		"yes_votes":   agenda.YesVotes,
		"no_votes":    agenda.NoVotes,
		"occurred_at": occurredAt.UTC().Format(time.RFC3339),
	}
	for key, value := range extra {
		data[key] = value
	}
	return data
}

func appendAgendaEvent(
	ctx context.Context,
	tx ports.AgendaTx,
	ids ports.IDGenerator,
	eventType string,
	agenda entities.Agenda,
	occurredAt time.Time,
	extra map[string]any,
) error {
	eventID, err := ids.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newAgendaEnvelope(eventID, eventType, agenda.AgendaID, occurredAt, agendaEventData(agenda, occurredAt, extra))
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, envelope)
}
