package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccepted_IncludeSuperior(t *testing.T) {
	h := NewLanguageLevels()

	tests := []struct {
		name     string
		minLevel string
		superior bool
		want     []string
	}{
		{
			name:     "intermediate expands upward",
			minLevel: "intermediário",
			superior: true,
			want:     []string{"intermediário", "avançado", "fluente"},
		},
		{
			name:     "basic expands to full hierarchy",
			minLevel: "básico",
			superior: true,
			want:     []string{"básico", "intermediário", "avançado", "fluente"},
		},
		{
			name:     "advanced expands to two levels",
			minLevel: "avançado",
			superior: true,
			want:     []string{"avançado", "fluente"},
		},
		{
			name:     "fluent is the top",
			minLevel: "fluente",
			superior: true,
			want:     []string{"fluente"},
		},
		{
			name:     "exact match only",
			minLevel: "fluente",
			superior: false,
			want:     []string{"fluente"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Accepted(tt.minLevel, tt.superior))
		})
	}
}

func TestAccepted_NormalizesVariants(t *testing.T) {
	h := NewLanguageLevels()

	// Accent-stripped and English spellings collapse to canonical tokens.
	assert.Equal(t, []string{"intermediário", "avançado", "fluente"}, h.Accepted("Intermediario", true))
	assert.Equal(t, []string{"avançado", "fluente"}, h.Accepted("advanced", true))
	assert.Equal(t, []string{"básico", "intermediário", "avançado", "fluente"}, h.Accepted("BASIC", true))
}

func TestAccepted_UnknownLevelFailsOpen(t *testing.T) {
	h := NewLanguageLevels()

	assert.Equal(t, []string{"conversacional"}, h.Accepted("conversacional", true))
	assert.Equal(t, []string{"conversacional"}, h.Accepted("Conversacional", false))
}

func TestSatisfies(t *testing.T) {
	h := NewLanguageLevels()

	assert.True(t, h.Satisfies("fluente", "avançado", true))
	assert.True(t, h.Satisfies("Advanced", "avançado", true))
	assert.False(t, h.Satisfies("básico", "avançado", true))
	assert.False(t, h.Satisfies("avançado", "fluente", false))
	assert.True(t, h.Satisfies("fluente", "fluente", false))

	// Native speakers satisfy any known minimum.
	assert.True(t, h.Satisfies("nativo", "fluente", false))
	assert.True(t, h.Satisfies("nativo", "básico", true))
	// But not unknown literal requirements.
	assert.False(t, h.Satisfies("nativo", "conversacional", true))
}

func TestVariants(t *testing.T) {
	h := NewLanguageLevels()

	variants := h.Variants("avançado")
	assert.Equal(t, "avançado", variants[0])
	assert.ElementsMatch(t, []string{"avançado", "avancado", "advanced"}, variants)

	assert.Equal(t, []string{"klingon"}, h.Variants("klingon"))
}
