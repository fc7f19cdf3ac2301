package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"tuneport/internal/api"
	"tuneport/internal/config"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/services"
	"tuneport/internal/workflow"
)

const maxRequestBodyBytes = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	jobs   *api.JobService
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		jobs:   api.NewJobService(d.store),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/jobs", srv.handleListJobs)
	mux.HandleFunc("POST /api/jobs", srv.handleSubmitJob)
	mux.HandleFunc("DELETE /api/jobs", srv.handleClearJobs)
	mux.HandleFunc("GET /api/jobs/{id}", srv.handleGetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", srv.handleRemoveJob)
	mux.HandleFunc("POST /api/jobs/{id}/confirm", srv.handleConfirmJob)
	mux.HandleFunc("POST /api/jobs/{id}/reject", srv.handleRejectJob)
	mux.HandleFunc("GET /api/playlists", srv.handleListPlaylists)
	mux.HandleFunc("POST /api/playlists", srv.handleCreatePlaylist)

	srv.server = &http.Server{
		Handler:           requestIDMiddleware(authMiddleware(cfg.Paths.APIToken, mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled", logging.String(logging.FieldEventType, "api_disabled"))
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_server_failed"),
			)
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		JobsDBPath:   status.JobsDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
	})
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatuses(r.URL.Query()["status"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.jobs.List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: list})
}

func (s *apiServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var body api.SubmitJobRequest
	if !s.decode(w, r, &body) {
		return
	}
	job, err := s.daemon.Submit(r.Context(), body.JobRequest())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.FromJob(job))
}

func (s *apiServer) handleClearJobs(w http.ResponseWriter, r *http.Request) {
	status, ok := jobs.ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "status must be completed or failed")
		return
	}
	removed, err := s.daemon.ClearJobs(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	dto, err := s.jobs.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto)
}

func (s *apiServer) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.RemoveJob(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleConfirmJob(w http.ResponseWriter, r *http.Request) {
	var body api.ConfirmRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	job, err := s.daemon.Confirm(r.Context(), r.PathValue("id"), body.Metadata())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.FromJob(job))
}

func (s *apiServer) handleRejectJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.daemon.Reject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJob(job))
}

func (s *apiServer) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.daemon.Playlists(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PlaylistListResponse{Playlists: playlists})
}

func (s *apiServer) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body api.CreatePlaylistRequest
	if !s.decode(w, r, &body) {
		return
	}
	playlist, err := s.daemon.CreatePlaylist(r.Context(), body.Name, body.Description, body.Public)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, playlist)
}

func parseStatuses(values []string) ([]jobs.Status, error) {
	var statuses []jobs.Status
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := jobs.ParseStatus(part)
			if !ok {
				return nil, fmt.Errorf("unknown job status %q", strings.TrimSpace(part))
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidTransition), errors.Is(err, jobs.ErrJobActive), errors.Is(err, workflow.ErrJobBusy):
		return http.StatusConflict
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrAuthExpired), errors.Is(err, services.ErrTransport), errors.Is(err, services.ErrTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Warn("api request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.String(logging.FieldErrorHint, "check daemon logs for the failing dependency"),
			logging.String(logging.FieldImpact, "the request was not completed"),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
