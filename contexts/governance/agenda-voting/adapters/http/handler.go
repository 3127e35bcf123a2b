package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"assembly/contexts/governance/agenda-voting/application/commands"
	"assembly/contexts/governance/agenda-voting/application/queries"
	"assembly/contexts/governance/agenda-voting/application/workers"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	httptransport "assembly/contexts/governance/agenda-voting/transport/http"
)

type Handler struct {
	Agendas commands.AgendaUseCase
	Votes   commands.VoteUseCase
	Queries queries.AgendaQueries
	Sweeper workers.ExpirySweeper
	Logger  *slog.Logger
}

func (h Handler) CreateAgendaHandler(
	ctx context.Context,
	req httptransport.CreateAgendaRequest,
) (httptransport.AgendaResponse, error) {
	result, err := h.Agendas.CreateAgenda(ctx, commands.CreateAgendaCommand{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return httptransport.AgendaResponse{}, err
	}
	resp := mapAgenda(result.Agenda)
	resp.Replayed = result.Replayed
	return resp, nil
}

// ListAgendasHandler accepts a comma-separated status filter.
func (h Handler) ListAgendasHandler(ctx context.Context, statusFilter string) (httptransport.AgendaListResponse, error) {
	var statuses []entities.AgendaStatus
	for _, raw := range strings.Split(statusFilter, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, ok := entities.ParseAgendaStatus(raw)
		if !ok {
			return httptransport.AgendaListResponse{}, domainerrors.ErrInvalidInput.WithMessage("unknown agenda status: " + strings.TrimSpace(raw))
		}
		statuses = append(statuses, status)
	}
	agendas, err := h.Queries.ListAgendas(ctx, statuses...)
	if err != nil {
		return httptransport.AgendaListResponse{}, err
	}
	items := make([]httptransport.AgendaResponse, 0, len(agendas))
	for _, agenda := range agendas {
		items = append(items, mapAgenda(agenda))
	}
	return httptransport.AgendaListResponse{Items: items}, nil
}

func (h Handler) GetAgendaHandler(ctx context.Context, agendaID string) (httptransport.AgendaResponse, error) {
	agenda, err := h.Queries.GetAgenda(ctx, agendaID)
	if err != nil {
		return httptransport.AgendaResponse{}, err
	}
	return mapAgenda(agenda), nil
}

func (h Handler) OpenAgendaHandler(ctx context.Context, agendaID string) (httptransport.AgendaResponse, error) {
	return mapAgendaResult(h.Agendas.OpenAgenda(ctx, agendaID))
}

func (h Handler) FinalizeAgendaHandler(ctx context.Context, agendaID string) (httptransport.AgendaResponse, error) {
	return mapAgendaResult(h.Agendas.FinalizeAgenda(ctx, agendaID))
}

func (h Handler) CancelAgendaHandler(ctx context.Context, agendaID string) (httptransport.AgendaResponse, error) {
	return mapAgendaResult(h.Agendas.CancelAgenda(ctx, agendaID))
}

func (h Handler) StartSessionHandler(
	ctx context.Context,
	agendaID string,
	req httptransport.StartSessionRequest,
) (httptransport.StartSessionResponse, error) {
	result, err := h.Agendas.StartAgendaTimer(ctx, commands.StartAgendaTimerCommand{
		AgendaID:        agendaID,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return httptransport.StartSessionResponse{}, err
	}
	return httptransport.StartSessionResponse{
		Agenda:   mapAgenda(result.Agenda),
		Session:  mapSession(result.Session),
		Replayed: result.Replayed,
	}, nil
}

func (h Handler) SessionStatusHandler(ctx context.Context, agendaID string) (httptransport.SessionStatusResponse, error) {
	status, err := h.Queries.GetSessionStatus(ctx, agendaID)
	if err != nil {
		return httptransport.SessionStatusResponse{}, err
	}
	resp := httptransport.SessionStatusResponse{
		AgendaID:         status.AgendaID,
		Active:           status.Active,
		RemainingSeconds: int64(status.Remaining.Seconds()),
		History:          make([]httptransport.SessionResponse, 0, len(status.History)),
	}
	if status.Current != nil {
		current := mapSession(*status.Current)
		resp.Current = &current
	}
	for _, session := range status.History {
		resp.History = append(resp.History, mapSession(session))
	}
	return resp, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	userID string,
	agendaID string,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		AgendaID: agendaID,
		UserID:   userID,
		VoteType: entities.VoteType(strings.ToUpper(strings.TrimSpace(req.VoteType))),
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		Vote:     mapVote(result.Vote),
		Agenda:   mapAgenda(result.Agenda),
		Replayed: result.Replayed,
	}, nil
}

func (h Handler) ListVotesHandler(ctx context.Context, agendaID string) (httptransport.VoteListResponse, error) {
	votes, err := h.Queries.ListVotes(ctx, agendaID)
	if err != nil {
		return httptransport.VoteListResponse{}, err
	}
	items := make([]httptransport.VoteResponse, 0, len(votes))
	for _, vote := range votes {
		items = append(items, mapVote(vote))
	}
	return httptransport.VoteListResponse{Items: items}, nil
}

func (h Handler) UpdateTallyHandler(
	ctx context.Context,
	agendaID string,
	requestID string,
	req httptransport.UpdateTallyRequest,
) (httptransport.AgendaResponse, error) {
	return mapAgendaResult(h.Agendas.UpdateAgendaVotes(ctx, commands.UpdateAgendaVotesCommand{
		AgendaID:  agendaID,
		VoteType:  entities.VoteType(strings.ToUpper(strings.TrimSpace(req.VoteType))),
		RequestID: requestID,
	}))
}

func (h Handler) ProcessExpiredSessionsHandler(ctx context.Context) (httptransport.SweepResponse, error) {
	report, err := h.Sweeper.ProcessExpiredSessions(ctx)
	if err != nil {
		return httptransport.SweepResponse{}, err
	}
	return httptransport.SweepResponse{
		Scanned:   report.Scanned,
		Finalized: report.Finalized,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	}, nil
}

func mapAgendaResult(result commands.AgendaResult, err error) (httptransport.AgendaResponse, error) {
	if err != nil {
		return httptransport.AgendaResponse{}, err
	}
	resp := mapAgenda(result.Agenda)
	resp.Replayed = result.Replayed
	return resp, nil
}

func mapAgenda(agenda entities.Agenda) httptransport.AgendaResponse {
	return httptransport.AgendaResponse{
		AgendaID:    agenda.AgendaID,
		Title:       agenda.Title,
		Description: agenda.Description,
		Status:      string(agenda.Status),
		Result:      string(agenda.Result),
		TotalVotes:  agenda.TotalVotes,
		YesVotes:    agenda.YesVotes,
		NoVotes:     agenda.NoVotes,
		CreatedAt:   agenda.CreatedAt,
		UpdatedAt:   agenda.UpdatedAt,
		FinishedAt:  agenda.FinishedAt,
	}
}

func mapSession(session entities.Session) httptransport.SessionResponse {
	return httptransport.SessionResponse{
		SessionID:  session.SessionID,
		AgendaID:   session.AgendaID,
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
		Reconciled: session.Reconciled,
		ClosedAt:   session.ReconciledAt,
	}
}

func mapVote(vote entities.Vote) httptransport.VoteResponse {
	return httptransport.VoteResponse{
		VoteID:    vote.VoteID,
		AgendaID:  vote.AgendaID,
		UserID:    vote.UserID,
		VoteType:  string(vote.VoteType),
		CreatedAt: vote.CreatedAt,
	}
}
