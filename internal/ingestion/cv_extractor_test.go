package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// MockLLMClient implements llm.Client for tests.
type MockLLMClient struct {
	GenerateFunc     func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, tier)
	}
	return "", errors.New("not implemented")
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "", errors.New("not implemented")
}

func (m *MockLLMClient) Close() error { return nil }

// sectionResponder answers each section prompt with the configured
// JSON, keyed by section name.
func sectionResponder(bySection map[string]string) func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
		for section, response := range bySection {
			if strings.Contains(prompt, `"`+section+`"`) {
				return response, nil
			}
		}
		return `{}`, nil
	}
}

func TestChunkText(t *testing.T) {
	assert.Nil(t, chunkText("   ", 10))

	chunks := chunkText("abcdefghij", 4)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)

	// Rune-safe: accented text must not be split mid-character.
	accented := strings.Repeat("ç", 7)
	chunks = chunkText(accented, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, "ççç", chunks[0])
	assert.Equal(t, "ç", chunks[2])
}

func TestExtractMergesSections(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: sectionResponder(map[string]string{
			"habilidades":  `{"habilidades": ["Python", "SQL"]}`,
			"idiomas":      `{"idiomas": [{"idioma": "Inglês", "nivel": "Advanced"}]}`,
			"formacoes":    `{"formacoes": [{"curso": "Sistemas de Informação", "nivel": "Ensino Superior Completo"}]}`,
			"experiencias": `{"experiencias": [{"empresa": "Acme", "cargo": "Dev", "inicio": "2020"}]}`,
		}),
	}
	extractor := NewCVExtractor(client, zap.NewNop())

	cv, err := extractor.Extract(context.Background(), "currículo de teste")

	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "SQL"}, cv.Skills)
	require.Len(t, cv.Languages, 1)
	assert.Equal(t, "inglês", cv.Languages[0].Name)
	assert.Equal(t, "avançado", cv.Languages[0].Level, "english level variants are canonicalized")
	require.Len(t, cv.Educations, 1)
	require.Len(t, cv.Experiences, 1)
}

func TestExtractDeduplicatesAcrossChunks(t *testing.T) {
	// Two chunks produce the same skills and language; merge must keep
	// one of each.
	longText := strings.Repeat("a", chunkSize+100)
	client := &MockLLMClient{
		GenerateJSONFunc: sectionResponder(map[string]string{
			"habilidades": `{"habilidades": ["Python", "python ", "SQL"]}`,
			"idiomas":     `{"idiomas": [{"idioma": "Inglês", "nivel": "fluente"}, {"idioma": "inglês", "nivel": "básico"}]}`,
		}),
	}
	extractor := NewCVExtractor(client, zap.NewNop())

	cv, err := extractor.Extract(context.Background(), longText)

	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "SQL"}, cv.Skills)
	require.Len(t, cv.Languages, 1)
	assert.Equal(t, "fluente", cv.Languages[0].Level, "first occurrence wins")
}

func TestExtractSkipsFailingSections(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			calls++
			if strings.Contains(prompt, `"habilidades"`) {
				return `{"habilidades": ["Go"]}`, nil
			}
			return "", errors.New("model unavailable")
		},
	}
	extractor := NewCVExtractor(client, zap.NewNop())

	cv, err := extractor.Extract(context.Background(), "currículo")

	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, cv.Skills)
	assert.Empty(t, cv.Languages)
	// Failing sections are retried before being skipped.
	assert.Greater(t, calls, len(cvSections))
}

func TestExtractAllSectionsFailing(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	extractor := NewCVExtractor(client, zap.NewNop())

	_, err := extractor.Extract(context.Background(), "currículo")

	assert.Error(t, err)
}

func TestMaxEducationLevel(t *testing.T) {
	tests := []struct {
		name   string
		levels []string
		want   string
	}{
		{"highest wins", []string{"Ensino Médio Completo", "Mestrado em Computação"}, "mestrado"},
		{"superior complete", []string{"Ensino Superior Completo"}, "ensino superior"},
		{"incomplete ranks below complete", []string{"Ensino Superior Incompleto"}, "ensino superior incompleto"},
		{"unknown labels", []string{"Curso Livre"}, ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := &types.CVData{}
			for _, level := range tt.levels {
				cv.Educations = append(cv.Educations, types.EducationRecord{Level: level})
			}
			assert.Equal(t, tt.want, MaxEducationLevel(cv))
		})
	}
}

func TestSemanticTextFallsBackWithoutLLM(t *testing.T) {
	client := &MockLLMClient{
		GenerateFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	extractor := NewCVExtractor(client, zap.NewNop())
	cv := &types.CVData{
		Skills:    []string{"Python"},
		Languages: []types.LanguageSkill{{Name: "inglês", Level: "fluente"}},
		Educations: []types.EducationRecord{
			{Course: "Engenharia", Level: "Ensino Superior"},
		},
	}

	text := extractor.SemanticText(context.Background(), cv)

	assert.Contains(t, text, "Python")
	assert.Contains(t, text, "inglês")
	assert.Contains(t, text, "Engenharia")
}

func TestSemanticTextUsesLLMOutput(t *testing.T) {
	client := &MockLLMClient{
		GenerateFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			var cv types.CVData
			// The structured CV travels inside the prompt as JSON.
			start := strings.Index(prompt, "{")
			end := strings.LastIndex(prompt, "}")
			require.GreaterOrEqual(t, end, start)
			require.NoError(t, json.Unmarshal([]byte(prompt[start:end+1]), &cv))
			return "  Resumo gerado.  ", nil
		},
	}
	extractor := NewCVExtractor(client, zap.NewNop())

	text := extractor.SemanticText(context.Background(), &types.CVData{Skills: []string{"Go"}})

	assert.Equal(t, "Resumo gerado.", text)
}
