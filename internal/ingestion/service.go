package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/db"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/prompts"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

var (
	// ErrAlreadyProcessing is returned when the record is in flight.
	ErrAlreadyProcessing = errors.New("record is already being processed")
	// ErrNotFound is returned when the record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store is the persistence surface the ingestion service needs. *db.DB
// implements it.
type Store interface {
	GetRawApplicant(ctx context.Context, id int64) (*db.RawApplicant, error)
	UpsertProcessedApplicant(ctx context.Context, a *types.Applicant) error
	GetJob(ctx context.Context, id int64) (*types.Job, error)
	UpdateJobSemantics(ctx context.Context, id int64, semanticText string, embedding pgvector.Vector) error
}

// Service runs applicant and job processing on a fixed-size worker
// pool. A record already in flight is rejected immediately instead of
// queued, so retrying clients cannot pile up duplicate work.
type Service struct {
	store     Store
	extractor *CVExtractor
	embedder  llm.Embedder
	registry  *Registry
	workers   *semaphore.Weighted
	timeout   time.Duration
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewService(store Store, client llm.Client, embedder llm.Embedder, workerCount int64, timeout time.Duration, log *zap.Logger) *Service {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Service{
		store:     store,
		extractor: NewCVExtractor(client, log),
		embedder:  embedder,
		registry:  NewRegistry(),
		workers:   semaphore.NewWeighted(workerCount),
		timeout:   timeout,
		log:       log,
	}
}

// IsProcessingApplicant reports whether an applicant is in flight.
func (s *Service) IsProcessingApplicant(id int64) bool {
	return s.registry.IsProcessing(ApplicantKey(id))
}

// ProcessApplicantAsync claims the applicant and schedules processing
// on the worker pool. The claim is released when the work finishes,
// whatever the outcome.
func (s *Service) ProcessApplicantAsync(id int64) error {
	return s.schedule(ApplicantKey(id), func(ctx context.Context) error {
		return s.processApplicant(ctx, id)
	})
}

// ProcessJobAsync claims the job and schedules semantic processing.
func (s *Service) ProcessJobAsync(id int64) error {
	return s.schedule(JobKey(id), func(ctx context.Context) error {
		return s.processJob(ctx, id)
	})
}

func (s *Service) schedule(key string, work func(context.Context) error) error {
	if !s.registry.Start(key) {
		return ErrAlreadyProcessing
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.registry.Finish(key)

		// Processing outlives the HTTP request that triggered it.
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.workers.Acquire(ctx, 1); err != nil {
			s.log.Error("worker acquisition failed", zap.String("key", key), zap.Error(err))
			return
		}
		defer s.workers.Release(1)

		if err := work(ctx); err != nil {
			s.log.Error("processing failed", zap.String("key", key), zap.Error(err))
			return
		}
		s.log.Info("processing finished", zap.String("key", key))
	}()
	return nil
}

// Wait blocks until all scheduled work has finished. Used on shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

// ProcessApplicant runs the full applicant pipeline synchronously:
// extract the structured CV, derive the top education level, build the
// semantic text, embed it and persist the snapshot.
func (s *Service) ProcessApplicant(ctx context.Context, id int64) error {
	key := ApplicantKey(id)
	if !s.registry.Start(key) {
		return ErrAlreadyProcessing
	}
	defer s.registry.Finish(key)
	return s.processApplicant(ctx, id)
}

func (s *Service) processApplicant(ctx context.Context, id int64) error {
	raw, err := s.store.GetRawApplicant(ctx, id)
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("applicant %d: %w", id, ErrNotFound)
	}

	cv, err := s.extractor.Extract(ctx, raw.CVText)
	if err != nil {
		return fmt.Errorf("applicant %d: %w", id, err)
	}

	semanticText := s.extractor.SemanticText(ctx, cv)
	embedding, err := s.embedder.EmbedText(ctx, semanticText)
	if err != nil {
		return fmt.Errorf("applicant %d: failed to embed cv: %w", id, err)
	}

	applicant := &types.Applicant{
		ID:                raw.ID,
		Name:              raw.Name,
		Email:             raw.Email,
		MaxEducationLevel: MaxEducationLevel(cv),
		CV:                cv,
		SemanticText:      semanticText,
		Embedding:         pgvector.NewVector(embedding),
	}
	if err := s.store.UpsertProcessedApplicant(ctx, applicant); err != nil {
		return fmt.Errorf("applicant %d: %w", id, err)
	}
	s.log.Info("applicant processed",
		zap.Int64("applicant_id", id),
		zap.Int("skills", len(cv.Skills)),
		zap.Int("languages", len(cv.Languages)))
	return nil
}

func (s *Service) processJob(ctx context.Context, id int64) error {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}

	semanticText := s.jobSemanticText(ctx, job)
	embedding, err := s.embedder.EmbedText(ctx, semanticText)
	if err != nil {
		return fmt.Errorf("job %d: failed to embed: %w", id, err)
	}
	if err := s.store.UpdateJobSemantics(ctx, id, semanticText, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("job %d: %w", id, err)
	}
	s.log.Info("job processed", zap.Int64("job_id", id))
	return nil
}

func (s *Service) jobSemanticText(ctx context.Context, job *types.Job) string {
	template, err := prompts.Get(cvPromptFile, "job_semantic")
	if err == nil {
		prompt := prompts.Format(template, map[string]string{
			"Title":             job.Title,
			"Activities":        job.MainActivities,
			"Competencies":      job.Competencies,
			"Areas":             job.Areas,
			"ProfessionalLevel": job.ProfessionalLevel,
			"AcademicLevel":     job.AcademicLevel,
		})
		if text, gerr := s.extractor.client.Generate(ctx, prompt, llm.TierStandard); gerr == nil {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return trimmed
			}
		} else {
			s.log.Warn("job semantic text generation failed, using fallback",
				zap.Int64("job_id", job.ID), zap.Error(gerr))
		}
	}
	fields := []string{job.Title, job.MainActivities, job.Competencies, job.Areas,
		job.ProfessionalLevel, job.AcademicLevel}
	var parts []string
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ". ")
}
