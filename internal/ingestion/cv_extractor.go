package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/criteria"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/levels"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/prompts"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

const (
	cvPromptFile = "cv.json"
	// chunkSize bounds how much raw CV text a single extraction call
	// sees. Long CVs are processed chunk by chunk and merged.
	chunkSize = 5000
	// sectionRetries is how many times a failed section call is retried
	// before the section is skipped for that chunk.
	sectionRetries = 2
)

// cvSection names one extractable section and the JSON shape the model
// must return for it.
type cvSection struct {
	name   string
	schema string
}

var cvSections = []cvSection{
	{"habilidades", `{"habilidades": ["habilidade"]}`},
	{"idiomas", `{"idiomas": [{"idioma": "nome", "nivel": "nível"}]}`},
	{"formacoes", `{"formacoes": [{"curso": "nome", "nivel": "nível", "instituicao": "nome", "ano_conclusao": "ano"}]}`},
	{"experiencias", `{"experiencias": [{"empresa": "nome", "cargo": "cargo", "inicio": "data", "fim": "data", "descricao": "resumo"}]}`},
}

// educationRank orders education level labels from lowest to highest.
// Matching is by substring on the normalized record level.
var educationRank = []string{
	"ensino fundamental",
	"ensino médio",
	"ensino técnico",
	"ensino superior incompleto",
	"ensino superior",
	"pós-graduação",
	"mestrado",
	"doutorado",
}

// CVExtractor converts raw CV text into structured CVData using
// per-section LLM extraction over bounded chunks.
type CVExtractor struct {
	client    llm.Client
	hierarchy *levels.Hierarchy
	log       *zap.Logger
}

func NewCVExtractor(client llm.Client, log *zap.Logger) *CVExtractor {
	return &CVExtractor{
		client:    client,
		hierarchy: levels.NewLanguageLevels(),
		log:       log,
	}
}

// Extract processes every chunk of the CV text and merges the section
// results. A section call that keeps failing is skipped rather than
// failing the whole CV; an error is returned only when no section of
// any chunk could be extracted.
func (e *CVExtractor) Extract(ctx context.Context, cvText string) (*types.CVData, error) {
	chunks := chunkText(cvText, chunkSize)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("empty cv text")
	}

	merged := &types.CVData{}
	extracted := false
	for i, chunk := range chunks {
		for _, section := range cvSections {
			partial, err := e.extractSection(ctx, chunk, section)
			if err != nil {
				e.log.Warn("cv section extraction failed",
					zap.String("section", section.name), zap.Int("chunk", i), zap.Error(err))
				continue
			}
			mergeCV(merged, partial)
			extracted = true
		}
	}
	if !extracted {
		return nil, fmt.Errorf("no cv section could be extracted")
	}

	dedupeCV(merged)
	e.normalizeLanguages(merged)
	return merged, nil
}

func (e *CVExtractor) extractSection(ctx context.Context, chunk string, section cvSection) (*types.CVData, error) {
	template, err := prompts.Get(cvPromptFile, "section")
	if err != nil {
		return nil, err
	}
	prompt := prompts.Format(template, map[string]string{
		"Section": section.name,
		"Schema":  section.schema,
		"Chunk":   chunk,
	})

	var lastErr error
	for attempt := 0; attempt < sectionRetries; attempt++ {
		raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
		if err != nil {
			lastErr = err
			continue
		}
		block, err := criteria.ExtractBalancedJSON(raw)
		if err != nil {
			lastErr = err
			continue
		}
		var partial types.CVData
		if err := json.Unmarshal([]byte(block), &partial); err != nil {
			lastErr = fmt.Errorf("failed to decode section %s: %w", section.name, err)
			continue
		}
		return &partial, nil
	}
	return nil, lastErr
}

// SemanticText renders the structured CV as one search paragraph. On
// LLM failure it degrades to a deterministic concatenation so the
// applicant still becomes searchable.
func (e *CVExtractor) SemanticText(ctx context.Context, cv *types.CVData) string {
	cvJSON, err := json.Marshal(cv)
	if err == nil {
		template, terr := prompts.Get(cvPromptFile, "semantic_text")
		if terr == nil {
			prompt := prompts.Format(template, map[string]string{"CV": string(cvJSON)})
			if text, gerr := e.client.Generate(ctx, prompt, llm.TierStandard); gerr == nil {
				if trimmed := strings.TrimSpace(text); trimmed != "" {
					return trimmed
				}
			} else {
				e.log.Warn("semantic text generation failed, using fallback", zap.Error(gerr))
			}
		}
	}
	return FallbackSemanticText(cv)
}

// FallbackSemanticText builds a flat searchable paragraph without the LLM.
func FallbackSemanticText(cv *types.CVData) string {
	var parts []string
	if cv.Summary != "" {
		parts = append(parts, cv.Summary)
	}
	if len(cv.Skills) > 0 {
		parts = append(parts, "Habilidades: "+strings.Join(cv.Skills, ", "))
	}
	for _, lang := range cv.Languages {
		parts = append(parts, fmt.Sprintf("Idioma %s nível %s", lang.Name, lang.Level))
	}
	for _, edu := range cv.Educations {
		parts = append(parts, strings.TrimSpace(edu.Level+" em "+edu.Course))
	}
	for _, exp := range cv.Experiences {
		parts = append(parts, strings.TrimSpace(exp.Role+" na "+exp.Company+". "+exp.Summary))
	}
	return strings.Join(parts, ". ")
}

// MaxEducationLevel returns the highest ranked education label found in
// the CV, or empty when none matches the known labels.
func MaxEducationLevel(cv *types.CVData) string {
	best := -1
	for _, edu := range cv.Educations {
		level := strings.ToLower(edu.Level)
		for rank, label := range educationRank {
			if rank > best && strings.Contains(level, label) {
				best = rank
			}
		}
	}
	if best < 0 {
		return ""
	}
	return educationRank[best]
}

func (e *CVExtractor) normalizeLanguages(cv *types.CVData) {
	for i, lang := range cv.Languages {
		cv.Languages[i].Name = strings.ToLower(strings.TrimSpace(lang.Name))
		cv.Languages[i].Level = e.hierarchy.Canonical(lang.Level)
	}
}

func mergeCV(dst, src *types.CVData) {
	dst.Skills = append(dst.Skills, src.Skills...)
	dst.Languages = append(dst.Languages, src.Languages...)
	dst.Educations = append(dst.Educations, src.Educations...)
	dst.Experiences = append(dst.Experiences, src.Experiences...)
	if dst.Summary == "" {
		dst.Summary = src.Summary
	}
}

func dedupeCV(cv *types.CVData) {
	seenSkill := map[string]bool{}
	skills := cv.Skills[:0]
	for _, skill := range cv.Skills {
		key := strings.ToLower(strings.TrimSpace(skill))
		if key == "" || seenSkill[key] {
			continue
		}
		seenSkill[key] = true
		skills = append(skills, strings.TrimSpace(skill))
	}
	cv.Skills = skills

	seenLang := map[string]bool{}
	languages := cv.Languages[:0]
	for _, lang := range cv.Languages {
		key := strings.ToLower(strings.TrimSpace(lang.Name))
		if key == "" || seenLang[key] {
			continue
		}
		seenLang[key] = true
		languages = append(languages, lang)
	}
	cv.Languages = languages

	seenEdu := map[string]bool{}
	educations := cv.Educations[:0]
	for _, edu := range cv.Educations {
		key := strings.ToLower(edu.Course + "|" + edu.Level)
		if seenEdu[key] {
			continue
		}
		seenEdu[key] = true
		educations = append(educations, edu)
	}
	cv.Educations = educations

	seenExp := map[string]bool{}
	experiences := cv.Experiences[:0]
	for _, exp := range cv.Experiences {
		key := strings.ToLower(exp.Company + "|" + exp.Role + "|" + exp.StartDate)
		if seenExp[key] {
			continue
		}
		seenExp[key] = true
		experiences = append(experiences, exp)
	}
	cv.Experiences = experiences
}

// chunkText splits text into rune-safe chunks of at most size runes.
func chunkText(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
