package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/db"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

type mockStore struct {
	mu        sync.Mutex
	raw       *db.RawApplicant
	job       *types.Job
	upserted  *types.Applicant
	jobText   string
	jobVector pgvector.Vector

	rawErr    error
	upsertErr error
}

func (s *mockStore) GetRawApplicant(ctx context.Context, id int64) (*db.RawApplicant, error) {
	return s.raw, s.rawErr
}

func (s *mockStore) UpsertProcessedApplicant(ctx context.Context, a *types.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = a
	return nil
}

func (s *mockStore) GetJob(ctx context.Context, id int64) (*types.Job, error) {
	return s.job, nil
}

func (s *mockStore) UpdateJobSemantics(ctx context.Context, id int64, semanticText string, embedding pgvector.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobText = semanticText
	s.jobVector = embedding
	return nil
}

type mockEmbedder struct {
	vector []float32
	err    error
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return m.vector, m.err
}

func workingClient() *MockLLMClient {
	return &MockLLMClient{
		GenerateJSONFunc: sectionResponder(map[string]string{
			"habilidades": `{"habilidades": ["Python"]}`,
			"idiomas":     `{"idiomas": [{"idioma": "Inglês", "nivel": "fluente"}]}`,
			"formacoes":   `{"formacoes": [{"curso": "Computação", "nivel": "Mestrado"}]}`,
		}),
		GenerateFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			return "Resumo do candidato.", nil
		},
	}
}

func newTestService(store *mockStore) *Service {
	return NewService(store, workingClient(), &mockEmbedder{vector: []float32{0.1, 0.2}}, 2, time.Minute, zap.NewNop())
}

func TestProcessApplicantPersistsSnapshot(t *testing.T) {
	store := &mockStore{raw: &db.RawApplicant{ID: 7, Name: "Ana", Email: "ana@example.com", CVText: "currículo"}}
	service := newTestService(store)

	err := service.ProcessApplicant(context.Background(), 7)

	require.NoError(t, err)
	require.NotNil(t, store.upserted)
	assert.Equal(t, int64(7), store.upserted.ID)
	assert.Equal(t, "Ana", store.upserted.Name)
	assert.Equal(t, []string{"Python"}, store.upserted.CV.Skills)
	assert.Equal(t, "mestrado", store.upserted.MaxEducationLevel)
	assert.Equal(t, "Resumo do candidato.", store.upserted.SemanticText)
	assert.Equal(t, pgvector.NewVector([]float32{0.1, 0.2}), store.upserted.Embedding)
	assert.False(t, service.IsProcessingApplicant(7), "claim must be released")
}

func TestProcessApplicantNotFound(t *testing.T) {
	service := newTestService(&mockStore{})

	err := service.ProcessApplicant(context.Background(), 99)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessApplicantEmbeddingFailure(t *testing.T) {
	store := &mockStore{raw: &db.RawApplicant{ID: 7, CVText: "currículo"}}
	service := NewService(store, workingClient(), &mockEmbedder{err: errors.New("quota")}, 2, time.Minute, zap.NewNop())

	err := service.ProcessApplicant(context.Background(), 7)

	assert.Error(t, err)
	assert.Nil(t, store.upserted, "nothing may be persisted without an embedding")
}

func TestProcessApplicantRejectsConcurrentDuplicate(t *testing.T) {
	store := &mockStore{raw: &db.RawApplicant{ID: 7, CVText: "currículo"}}
	service := newTestService(store)

	require.True(t, service.registry.Start(ApplicantKey(7)))
	defer service.registry.Finish(ApplicantKey(7))

	err := service.ProcessApplicant(context.Background(), 7)
	assert.ErrorIs(t, err, ErrAlreadyProcessing)

	err = service.ProcessApplicantAsync(7)
	assert.ErrorIs(t, err, ErrAlreadyProcessing)
}

func TestProcessApplicantAsyncCompletes(t *testing.T) {
	store := &mockStore{raw: &db.RawApplicant{ID: 7, Name: "Ana", CVText: "currículo"}}
	service := newTestService(store)

	require.NoError(t, service.ProcessApplicantAsync(7))
	service.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotNil(t, store.upserted)
	assert.Equal(t, int64(7), store.upserted.ID)
	assert.False(t, service.IsProcessingApplicant(7))
}

func TestProcessJobAsync(t *testing.T) {
	store := &mockStore{job: &types.Job{
		ID:             42,
		Title:          "Engenheiro de Dados",
		MainActivities: "Pipelines",
	}}
	service := newTestService(store)

	require.NoError(t, service.ProcessJobAsync(42))
	service.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "Resumo do candidato.", store.jobText)
	assert.Equal(t, pgvector.NewVector([]float32{0.1, 0.2}), store.jobVector)
}

func TestProcessJobMissing(t *testing.T) {
	service := newTestService(&mockStore{})

	err := service.processJob(context.Background(), 42)

	assert.ErrorIs(t, err, ErrNotFound)
}
