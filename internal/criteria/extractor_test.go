package criteria

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// MockLLMClient implements llm.Client for testing.
type MockLLMClient struct {
	GenerateFunc     func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) Close() error { return nil }

func newTestExtractor(t *testing.T, client llm.Client) *Extractor {
	t.Helper()
	e, err := NewExtractor(client, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestExtract_FullCriteria(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{
				"usar_similaridade": true,
				"limite": 5,
				"filtros": {
					"idiomas": [{"idioma": "Inglês", "nivel_minimo": "Avançado", "incluir_superiores": true}],
					"habilidades": ["Java", " python "],
					"formacao": {"nivel": "Graduação"},
					"localizacao": "São Paulo",
					"sexo": null
				}
			}`, nil
		},
	}

	crit := newTestExtractor(t, client).Extract(context.Background(), "5 candidatos com inglês avançado e java de são paulo")

	require.NotNil(t, crit.Limit)
	assert.Equal(t, 5, *crit.Limit)
	assert.True(t, crit.UseSimilarity)
	require.Len(t, crit.Languages, 1)
	assert.Equal(t, "inglês", crit.Languages[0].Name)
	assert.Equal(t, "avançado", crit.Languages[0].MinLevel)
	assert.True(t, crit.Languages[0].IncludeSuperior)
	assert.Equal(t, []string{"java", "python"}, crit.Skills)
	assert.Equal(t, "graduação", crit.Education.Level)
	assert.Equal(t, "são paulo", crit.Location)
	assert.Empty(t, crit.Gender)
}

func TestExtract_LimitCoercion(t *testing.T) {
	tests := []struct {
		name      string
		limite    string
		wantLimit *int
	}{
		{"plain integer", `7`, intp(7)},
		{"numeric string", `"12"`, intp(12)},
		{"single element list", `[9]`, intp(9)},
		{"float", `4.0`, intp(4)},
		{"null", `null`, nil},
		{"garbage string", `"muitos"`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{
				GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
					return `{"usar_similaridade": true, "limite": ` + tt.limite + `, "filtros": {}}`, nil
				},
			}
			crit := newTestExtractor(t, client).Extract(context.Background(), "filtre os melhores")
			if tt.wantLimit == nil {
				assert.Nil(t, crit.Limit)
			} else {
				require.NotNil(t, crit.Limit)
				assert.Equal(t, *tt.wantLimit, *crit.Limit)
			}
		})
	}
}

func TestExtract_NoJSONFallsBackToRegex(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			return "desculpe, não entendi a solicitação", nil
		},
	}

	crit := newTestExtractor(t, client).Extract(context.Background(), "traga 5 candidatos")

	// One corrective re-prompt, then the permissive default.
	assert.Equal(t, 2, calls)
	assert.True(t, crit.UseSimilarity)
	assert.False(t, crit.HasFilters())
	require.NotNil(t, crit.Limit)
	assert.Equal(t, 5, *crit.Limit)
}

func TestExtract_ServiceErrorDegradesToDefault(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("deadline exceeded")
		},
	}

	crit := newTestExtractor(t, client).Extract(context.Background(), "candidatos com formação em engenharia")

	assert.Equal(t, types.FilterCriteria{UseSimilarity: true}, crit)
}

func TestExtract_RetrySucceeds(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			if calls == 1 {
				return "no braces here", nil
			}
			return `{"usar_similaridade": true, "limite": 3, "filtros": {"habilidades": ["go"]}}`, nil
		},
	}

	crit := newTestExtractor(t, client).Extract(context.Background(), "3 candidatos com go")

	assert.Equal(t, 2, calls)
	require.NotNil(t, crit.Limit)
	assert.Equal(t, 3, *crit.Limit)
	assert.Equal(t, []string{"go"}, crit.Skills)
}

func TestExtract_OutOfRangeLimitDropped(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"usar_similaridade": true, "limite": 5000, "filtros": {}}`, nil
		},
	}

	crit := newTestExtractor(t, client).Extract(context.Background(), "todos os candidatos")
	assert.Nil(t, crit.Limit)
}

func TestExtractBalancedJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "object with prose around it",
			input: "Aqui está: {\"a\": 1} espero que ajude",
			want:  `{"a": 1}`,
		},
		{
			name:  "nested objects",
			input: `{"filtros": {"formacao": {"nivel": "mestrado"}}}`,
			want:  `{"filtros": {"formacao": {"nivel": "mestrado"}}}`,
		},
		{
			name:  "braces inside strings ignored",
			input: `{"nota": "chave { solta", "n": 1}`,
			want:  `{"nota": "chave { solta", "n": 1}`,
		},
		{
			name:    "no object",
			input:   "nenhum json aqui",
			wantErr: true,
		},
		{
			name:    "unterminated object",
			input:   `{"a": {"b": 1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBalancedJSON(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackLimit(t *testing.T) {
	tests := []struct {
		request string
		want    int
		ok      bool
	}{
		{"traga 5 candidatos", 5, true},
		{"mostre 15 candidatos por favor", 15, true},
		{"top 10", 10, true},
		{"filtre os com inglês", 0, false},
		{"traga 500 candidatos", 0, false},
		{"busque 0 candidatos", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			got, ok := FallbackLimit(tt.request)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func intp(n int) *int { return &n }
