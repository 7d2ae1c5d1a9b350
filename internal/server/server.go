// Package server exposes the orchestrator over HTTP and WebSocket: watch
// jobs are started and inspected over REST, progress streams over a
// websocket, and past sessions are served from the registry.
package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/vigil-watch/vigil/internal/app"
	"github.com/vigil-watch/vigil/internal/logging"
	"github.com/vigil-watch/vigil/internal/registry"

	_ "github.com/vigil-watch/vigil/docs" // generated swagger spec
	_ "modernc.org/sqlite"                // SQLite driver
)

// Server is the HTTP + WebSocket API surface for Vigil.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
	registryDB   *sql.DB
}

// NewServer creates a new Server with its own Orchestrator.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	// Make sure the storage root exists
	storageRoot, err := app.ExpandPath(cfg.AppConfig.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("expanding storage root path: %w", err)
	}
	cfg.AppConfig.StorageRoot = storageRoot
	if err := os.MkdirAll(storageRoot, 0755); err != nil {
		logger.Warn("creating storage root directory",
			logging.Field{Key: "path", Value: storageRoot},
			logging.Field{Key: "error", Value: err.Error()})
	}

	// Set up registry DB
	db, err := sql.Open("sqlite", filepath.Join(storageRoot, "vigil.db"))
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	reg, err := registry.NewRegistry(db, storageRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	orch := app.NewOrchestrator(cfg.AppConfig, reg, logger)

	r := chi.NewRouter()
	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		router:       r,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
		registryDB: db,
	}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/watch", s.optionsHandler("POST"))
	r.Options("/jobs", s.optionsHandler("GET"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/sessions", s.optionsHandler("GET"))
	r.Options("/sessions/{sessionID}", s.optionsHandler("GET"))
	r.Options("/sessions/{sessionID}/frames", s.optionsHandler("GET"))
	r.Options("/clean", s.optionsHandler("POST"))
	r.Options("/ws/watch", s.optionsHandler("GET"))

	// Watch jobs
	r.Post("/watch", s.handleStartWatch)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	// Past sessions
	r.Get("/sessions", s.handleListSessions)
	r.Get("/sessions/{sessionID}", s.handleGetSession)
	r.Get("/sessions/{sessionID}/frames", s.handleListSessionFrames)

	// Retention
	r.Post("/clean", s.handleClean)

	// WebSocket for live job progress
	r.Get("/ws/watch", s.handleWatchWS)

	// Interactive API docs
	r.Get("/swagger/*", httpSwagger.Handler())
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the orchestrator and underlying resources.
func (s *Server) Close() {
	if s.orchestrator != nil {
		s.orchestrator.Close()
	}
	if s.registryDB != nil {
		s.registryDB.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

// Watch jobs

// handleStartWatch starts a watch job.
//
//	@Summary	Start a watch job
//	@Tags		jobs
//	@Accept		json
//	@Produce	json
//	@Param		request	body		WatchRequest	true	"Watch parameters"
//	@Success	202		{object}	app.Job
//	@Failure	400		{object}	map[string]string
//	@Router		/watch [post]
func (s *Server) handleStartWatch(w http.ResponseWriter, r *http.Request) {
	var body WatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding watch request body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	opts := body.toOptions(s.cfg.AppConfig.WatchOpts)

	// Jobs outlive the request; they are bounded by their own duration.
	job, err := s.orchestrator.StartWatchJob(context.Background(), body.Scope, opts)
	if err != nil {
		s.logger.Warn("starting watch job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("started watch job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "scope", Value: job.Scope})
	writeJSON(w, http.StatusAccepted, job)
}

// handleListJobs lists watch jobs.
//
//	@Summary	List watch jobs
//	@Tags		jobs
//	@Produce	json
//	@Success	200	{array}	app.Job
//	@Router		/jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	s.logger.Info("listed jobs", logging.Field{Key: "count", Value: len(jobs)})
	writeJSON(w, http.StatusOK, jobs)
}

// handleGetJob returns one watch job.
//
//	@Summary	Get one watch job
//	@Tags		jobs
//	@Produce	json
//	@Param		jobID	path		string	true	"Job ID"
//	@Success	200		{object}	app.Job
//	@Failure	404		{object}	map[string]string
//	@Router		/jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob cancels a running watch job.
//
//	@Summary	Cancel a running watch job
//	@Tags		jobs
//	@Param		jobID	path	string	true	"Job ID"
//	@Success	204
//	@Router		/jobs/{jobID} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	s.orchestrator.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

// Past sessions

// handleListSessions lists past sessions.
//
//	@Summary	List past watch sessions, newest first
//	@Tags		sessions
//	@Produce	json
//	@Param		limit	query	int	false	"Maximum sessions to return"
//	@Success	200		{array}	registry.Session
//	@Router		/sessions [get]
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	sessions, err := s.orchestrator.ListSessions(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing sessions", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("listed sessions", logging.Field{Key: "count", Value: len(sessions)})
	writeJSON(w, http.StatusOK, sessions)
}

// handleGetSession returns one past session.
//
//	@Summary	Get one past session
//	@Tags		sessions
//	@Produce	json
//	@Param		sessionID	path		string	true	"Session ID"
//	@Success	200			{object}	registry.Session
//	@Failure	404			{object}	map[string]string
//	@Router		/sessions/{sessionID} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.orchestrator.GetSession(r.Context(), sessionID)
	if err != nil {
		if err == registry.ErrSessionNotFound {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Warn("getting session", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleListSessionFrames lists the kept frames of a past session.
//
//	@Summary	List the kept frames of a past session
//	@Tags		sessions
//	@Produce	json
//	@Param		sessionID	path	string	true	"Session ID"
//	@Success	200			{array}	registry.FrameRow
//	@Router		/sessions/{sessionID}/frames [get]
func (s *Server) handleListSessionFrames(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	frames, err := s.orchestrator.ListSessionFrames(r.Context(), sessionID)
	if err != nil {
		s.logger.Warn("listing session frames", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, frames)
}

// Retention

// handleClean sweeps old session directories.
//
//	@Summary	Sweep session directories older than the retention window
//	@Tags		retention
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CleanRequest	false	"Sweep parameters"
//	@Success	200		{object}	retention.Report
//	@Failure	500		{object}	map[string]string
//	@Router		/clean [post]
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	var body CleanRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	cfg := s.cfg.AppConfig.RetentionCfg
	if body.MaxAgeHours > 0 {
		cfg.MaxAge = time.Duration(body.MaxAgeHours * float64(time.Hour))
	}
	cfg.DryRun = body.DryRun

	report, err := s.orchestrator.CleanSessions(r.Context(), cfg)
	if err != nil {
		s.logger.Warn("cleaning sessions", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("cleaned sessions",
		logging.Field{Key: "removed_dirs", Value: report.RemovedDirs},
		logging.Field{Key: "freed_bytes", Value: report.FreedBytes},
		logging.Field{Key: "dry_run", Value: cfg.DryRun})
	writeJSON(w, http.StatusOK, report)
}

// WebSocket

func (s *Server) handleWatchWS(w http.ResponseWriter, r *http.Request) {
	var req WatchRequest
	q := r.URL.Query()
	req.Scope = q.Get("scope")
	if v, err := strconv.ParseFloat(q.Get("duration_seconds"), 64); err == nil {
		req.DurationSeconds = v
	}
	if v, err := strconv.ParseFloat(q.Get("heartbeat_seconds"), 64); err == nil {
		req.HeartbeatSeconds = v
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	opts := req.toOptions(s.cfg.AppConfig.WatchOpts)

	job, err := s.orchestrator.StartWatchJob(context.Background(), req.Scope, opts)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		s.logger.Warn("starting watch job", logging.Field{Key: "error", Value: err.Error()})
		return
	}

	s.logger.Info("started watch job over websocket", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}

	// Terminal snapshot with the result attached.
	if final := s.orchestrator.GetJob(job.ID); final != nil {
		_ = conn.WriteJSON(final)
	}
}
