package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	agendavoting "assembly/contexts/governance/agenda-voting"
	agendaerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	agendahttp "assembly/contexts/governance/agenda-voting/transport/http"
	"assembly/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

const maxBodyBytes = 1 << 20

type Server struct {
	mux        *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger
	addr       string
	agendas    agendavoting.Module
	classifier *agendaerrors.Classifier
}

func New(
	agendas agendavoting.Module,
	classifier *agendaerrors.Classifier,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	if classifier == nil {
		classifier = agendaerrors.DefaultClassifier
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		agendas:    agendas,
		classifier: classifier,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, rt := range s.apiRoutes() {
		s.mux.HandleFunc(rt.method+" "+docs.SwaggerInfo.BasePath+rt.path, rt.handler)
	}
}

type route struct {
	method  string
	path    string
	handler http.HandlerFunc
}

// apiRoutes is the versioned route table, mounted under the OpenAPI base path.
// docs/docs.go describes exactly these paths.
func (s *Server) apiRoutes() []route {
	return []route{
		{http.MethodPost, "/agendas", s.handleCreateAgenda},
		{http.MethodGet, "/agendas", s.handleListAgendas},
		{http.MethodGet, "/agendas/{agenda_id}", s.handleGetAgenda},
		{http.MethodPost, "/agendas/{agenda_id}/open", s.handleOpenAgenda},
		{http.MethodPost, "/agendas/{agenda_id}/sessions", s.handleStartSession},
		{http.MethodGet, "/agendas/{agenda_id}/session", s.handleSessionStatus},
		{http.MethodPost, "/agendas/{agenda_id}/votes", s.handleCastVote},
		{http.MethodGet, "/agendas/{agenda_id}/votes", s.handleListVotes},
		{http.MethodPost, "/agendas/{agenda_id}/tally", s.handleUpdateTally},
		{http.MethodPost, "/agendas/{agenda_id}/finalize", s.handleFinalizeAgenda},
		{http.MethodPost, "/agendas/{agenda_id}/cancel", s.handleCancelAgenda},
		{http.MethodPost, "/sessions/expired/process", s.handleProcessExpiredSessions},
	}
}

func (s *Server) handleCreateAgenda(w http.ResponseWriter, r *http.Request) {
	var req agendahttp.CreateAgendaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.agendas.Handler.CreateAgendaHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListAgendas(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.ListAgendasHandler(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAgenda(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.GetAgendaHandler(r.Context(), r.PathValue("agenda_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenAgenda(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.OpenAgendaHandler(r.Context(), r.PathValue("agenda_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req agendahttp.StartSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.agendas.Handler.StartSessionHandler(r.Context(), r.PathValue("agenda_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.SessionStatusHandler(r.Context(), r.PathValue("agenda_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-User-Id header is required")
		return
	}
	var req agendahttp.CastVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.agendas.Handler.CastVoteHandler(r.Context(), userID, r.PathValue("agenda_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.ListVotesHandler(r.Context(), r.PathValue("agenda_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateTally(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if requestID == "" {
		writeError(w, http.StatusBadRequest, string(agendaerrors.CodeInvalidInput), "Idempotency-Key header is required")
		return
	}
	var req agendahttp.UpdateTallyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.agendas.Handler.UpdateTallyHandler(r.Context(), r.PathValue("agenda_id"), requestID, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalizeAgenda(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.FinalizeAgendaHandler(r.Context(), r.PathValue("agenda_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelAgenda(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.CancelAgendaHandler(r.Context(), r.PathValue("agenda_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessExpiredSessions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agendas.Handler.ProcessExpiredSessionsHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	coded := s.classifier.Classify(err)
	status := statusForCode(coded.Code)
	message := coded.Error()
	if status == http.StatusInternalServerError {
		if coded.Cause != nil {
			err = coded.Cause
		}
		s.logger.Error("agenda request failed",
			"event", "http_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		message = agendaerrors.ErrInternal.Message
	}
	writeError(w, status, string(coded.Code), message)
}

func statusForCode(code agendaerrors.Code) int {
	switch code {
	case agendaerrors.CodeAgendaNotFound,
		agendaerrors.CodeUserNotFound,
		agendaerrors.CodeVoteNotFound,
		agendaerrors.CodeSessionNotFound:
		return http.StatusNotFound
	case agendaerrors.CodeInvalidDuration,
		agendaerrors.CodeInvalidTimeRange,
		agendaerrors.CodeInvalidInput:
		return http.StatusBadRequest
	case agendaerrors.CodeAgendaNotOpen,
		agendaerrors.CodeOperationNotAllowed,
		agendaerrors.CodeUserAlreadyVoted,
		agendaerrors.CodeDuplicateTitle,
		agendaerrors.CodeConcurrentUpdate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, string(agendaerrors.CodeInvalidInput), "request body must be valid JSON")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, agendahttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
