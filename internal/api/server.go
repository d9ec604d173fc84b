// Package api exposes the pipeline over HTTP.
//
// Routes:
//
//	GET  /                     → hello payload
//	GET  /health               → liveness
//	POST /etl/start            → bulk job over uploaded files[] (+ optional source_name)
//	GET  /etl/status/{id}      → job record
//	GET  /etl/download/{id}    → cleaned CSV of a finished job
//	POST /ingest               → single-source job over an uploaded file
//	GET  /process/{id}         → job record
//	GET  /catalog              → interim and processed CSV listings
//	POST /merge                → song/artist merge of interim outputs
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"musicetl/internal/config"
	"musicetl/internal/jobs"
	"musicetl/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

// Server serves the API and owns the background jobs it starts.
type Server struct {
	cfg     config.App
	runner  *pipeline.Runner
	jobs    jobs.Tracker
	log     *slog.Logger
	limiter *rate.Limiter
	router  chi.Router
	newID   func() string
	wg      sync.WaitGroup
}

// NewServer builds a Server around runner. Jobs are tracked in
// runner.Tracker, which defaults to an in-memory store.
func NewServer(cfg config.App, runner *pipeline.Runner, logger *slog.Logger) *Server {
	if runner == nil {
		runner = &pipeline.Runner{}
	}
	if runner.Tracker == nil {
		runner.Tracker = jobs.NewMemory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		runner: runner,
		jobs:   runner.Tracker,
		log:    logger,
		newID:  uuid.NewString,
	}
	if cfg.Server.UploadRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.UploadRate), max(cfg.Server.UploadBurst, 1))
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/catalog", s.handleCatalog)
	r.Get("/etl/status/{id}", s.handleStatus)
	r.Get("/etl/download/{id}", s.handleDownload)
	r.Get("/process/{id}", s.handleStatus)
	r.Post("/merge", s.handleMerge)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/etl/start", s.handleStart)
		r.Post("/ingest", s.handleIngest)
	})
	s.router = r
}

// ListenAndServe serves until ctx is cancelled, then shuts down and waits
// for running jobs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("api listening", "addr", s.cfg.Server.Addr)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: serve: %w", err)
		}
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("api: shutdown: %w", err)
		}
	}
	s.Wait()
	return nil
}

// Wait blocks until every background job has returned.
func (s *Server) Wait() { s.wg.Wait() }

// background runs fn detached from the request. A panic marks the job failed.
func (s *Server) background(id string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()
		defer func() {
			if p := recover(); p != nil {
				s.log.Error("job panicked", "id", id, "panic", p)
				_ = s.jobs.AppendError(ctx, id, fmt.Sprint(p))
				_ = s.jobs.SetStatus(ctx, id, jobs.StatusFailed)
			}
		}()
		fn(ctx)
	}()
}

// rateLimit rejects upload requests beyond the configured rate.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			fail(w, r, http.StatusTooManyRequests, "too many uploads, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Detail string `json:"detail"`
}

func fail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Detail: detail})
}
