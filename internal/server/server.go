// Package server provides the HTTP REST API for the candidate matching
// engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/criteria"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/db"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/ingestion"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/matching"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/server/ratelimit"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// Filterer runs a filter request end to end. *matching.Composer
// implements it.
type Filterer interface {
	Filter(ctx context.Context, workbookID uuid.UUID, request string) *matching.FilterResult
}

// WorkbookStore is the prospect and workbook surface the handlers need.
// *db.DB implements it.
type WorkbookStore interface {
	GetWorkbook(ctx context.Context, id uuid.UUID) (*types.Workbook, error)
	CreateWorkbook(ctx context.Context, jobID int64) (*types.Workbook, error)
	ListProspects(ctx context.Context, workbookID uuid.UUID) ([]types.Prospect, error)
	ListProspectsByJob(ctx context.Context, jobID int64) ([]types.Prospect, error)
	SetProspectSelected(ctx context.Context, workbookID uuid.UUID, applicantID int64, selected bool) error
}

// Ingestor schedules background processing. *ingestion.Service
// implements it.
type Ingestor interface {
	ProcessApplicantAsync(id int64) error
	ProcessJobAsync(id int64) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	filterer    Filterer
	workbooks   WorkbookStore
	ingestor    Ingestor
	rateLimiter *ratelimit.Limiter
	log         *zap.Logger

	// filterTimeout bounds one filter request end to end, including
	// the generation calls. Zero means no deadline beyond the server's
	// write timeout.
	filterTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	Port             int
	DatabaseURL      string
	GeminiAPIKey     string
	Matching         matching.Options
	FilterTimeout    time.Duration
	IngestionWorkers int64
	IngestionTimeout time.Duration
}

// New creates a new server instance and wires the full stack: database,
// LLM client, criteria extractor, composer and ingestion service.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Server, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmConfig := llm.DefaultConfig()
	client, err := llm.NewClient(ctx, llmConfig, cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	gemini, ok := client.(*llm.GeminiClient)
	if !ok {
		database.Close()
		return nil, fmt.Errorf("llm client does not support embeddings")
	}

	extractor, err := criteria.NewExtractor(client, log)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create criteria extractor: %w", err)
	}

	s := &Server{
		db:          database,
		filterer:    matching.NewComposer(database, extractor, cfg.Matching, log),
		workbooks:   database,
		ingestor:    ingestion.NewService(database, client, gemini, cfg.IngestionWorkers, cfg.IngestionTimeout, log),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		log:         log,

		filterTimeout: cfg.FilterTimeout,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Filter requests wait on the LLM
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /workbooks", s.handleCreateWorkbook)
	mux.HandleFunc("POST /workbooks/{id}/filter", s.handleFilter)
	mux.HandleFunc("GET /workbooks/{id}/prospects", s.handleListProspects)
	mux.HandleFunc("POST /workbooks/{id}/prospects/{applicant_id}/select", s.handleSelectProspect)

	mux.HandleFunc("POST /applicants/{id}/process", s.handleProcessApplicant)
	mux.HandleFunc("POST /jobs/{id}/process", s.handleProcessJob)
	mux.HandleFunc("GET /jobs/{id}/prospects", s.handleListJobProspects)

	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start begins listening for requests
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if waiter, ok := s.ingestor.(interface{ Wait() }); ok {
		waiter.Wait()
	}
	s.db.Close()
	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit throttles clients per endpoint family
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			clientID = host
		}

		allowed, retryAfter := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("error encoding json response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
