// Package criteria turns a free-text filter request into a structured
// FilterCriteria via the text-generation service, with schema validation,
// limit coercion and a regex fallback. Extraction never fails the
// request: every error path degrades to a similarity-only search.
package criteria

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/prompts"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

const (
	promptFile = "criteria.json"
	minLimit   = 1
	maxLimit   = 100
)

// Extractor converts filter request text into FilterCriteria.
type Extractor struct {
	client   llm.Client
	schema   *gojsonschema.Schema
	validate *validator.Validate
	log      *zap.Logger
}

// NewExtractor builds an extractor around a text-generation client.
func NewExtractor(client llm.Client, log *zap.Logger) (*Extractor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(criteriaSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile criteria schema: %w", err)
	}
	return &Extractor{
		client:   client,
		schema:   schema,
		validate: validator.New(),
		log:      log,
	}, nil
}

// Extract derives FilterCriteria from a free-text request. On any
// failure it retries once with a corrective prompt, then falls back to
// the permissive default plus a regex-derived limit. It never returns
// an error to the caller.
func (e *Extractor) Extract(ctx context.Context, request string) types.FilterCriteria {
	crit, err := e.extractOnce(ctx, request, "extract")
	if err != nil {
		e.log.Warn("criteria extraction failed, re-prompting",
			zap.String("request", request), zap.Error(err))
		crit, err = e.extractOnce(ctx, request, "extract_retry")
	}
	if err != nil {
		e.log.Warn("criteria extraction failed, using default criteria",
			zap.String("request", request), zap.Error(err))
		crit = types.DefaultCriteria()
	}

	// The similarity ranking is always on, whatever the model said.
	crit.UseSimilarity = true

	if crit.Limit == nil {
		if n, ok := FallbackLimit(request); ok {
			crit.Limit = &n
			e.log.Info("limit recovered via regex fallback", zap.Int("limit", n))
		}
	}

	if err := e.validate.Struct(&crit); err != nil {
		e.log.Warn("extracted criteria failed validation, dropping limit",
			zap.Error(err))
		crit.Limit = nil
	}

	e.log.Info("criteria extracted",
		zap.Bool("has_filters", crit.HasFilters()),
		zap.Bool("has_limit", crit.Limit != nil))
	return crit
}

func (e *Extractor) extractOnce(ctx context.Context, request, promptKey string) (types.FilterCriteria, error) {
	template, err := prompts.Get(promptFile, promptKey)
	if err != nil {
		return types.FilterCriteria{}, err
	}
	prompt := prompts.Format(template, map[string]string{"Request": request})

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return types.FilterCriteria{}, fmt.Errorf("generation call failed: %w", err)
	}

	payload, err := ExtractBalancedJSON(raw)
	if err != nil {
		return types.FilterCriteria{}, err
	}

	result, err := e.schema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return types.FilterCriteria{}, fmt.Errorf("criteria payload is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return types.FilterCriteria{}, fmt.Errorf("criteria payload rejected by schema: %v", result.Errors())
	}

	var wire wireCriteria
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return types.FilterCriteria{}, fmt.Errorf("failed to decode criteria: %w", err)
	}
	return wire.toCriteria(), nil
}

// wireCriteria mirrors the loosely typed JSON the model emits. It is the
// only place untyped extraction data is handled; everything downstream
// sees types.FilterCriteria.
type wireCriteria struct {
	UseSimilarity *bool           `json:"usar_similaridade"`
	Limit         json.RawMessage `json:"limite"`
	Filters       *wireFilters    `json:"filtros"`
}

type wireFilters struct {
	Languages []wireLanguage `json:"idiomas"`
	Skills    []string       `json:"habilidades"`
	Education *wireEducation `json:"formacao"`
	Location  *string        `json:"localizacao"`
	Gender    *string        `json:"sexo"`
}

type wireLanguage struct {
	Name            string  `json:"idioma"`
	MinLevel        *string `json:"nivel_minimo"`
	IncludeSuperior *bool   `json:"incluir_superiores"`
}

type wireEducation struct {
	Level  *string `json:"nivel"`
	Course *string `json:"curso"`
}

func (w wireCriteria) toCriteria() types.FilterCriteria {
	crit := types.FilterCriteria{UseSimilarity: true}
	crit.Limit = coerceLimit(w.Limit)

	if w.Filters == nil {
		return crit
	}

	for _, lang := range w.Filters.Languages {
		name := strings.ToLower(strings.TrimSpace(lang.Name))
		if name == "" {
			continue
		}
		req := types.LanguageRequirement{
			Name:            name,
			IncludeSuperior: true, // the source default: "básico" means "básico or better"
		}
		if lang.MinLevel != nil {
			req.MinLevel = strings.ToLower(strings.TrimSpace(*lang.MinLevel))
		}
		if lang.IncludeSuperior != nil {
			req.IncludeSuperior = *lang.IncludeSuperior
		}
		crit.Languages = append(crit.Languages, req)
	}

	for _, skill := range w.Filters.Skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill != "" {
			crit.Skills = append(crit.Skills, skill)
		}
	}

	if w.Filters.Education != nil {
		if w.Filters.Education.Level != nil {
			crit.Education.Level = strings.ToLower(strings.TrimSpace(*w.Filters.Education.Level))
		}
		if w.Filters.Education.Course != nil {
			crit.Education.Course = strings.ToLower(strings.TrimSpace(*w.Filters.Education.Course))
		}
	}

	if w.Filters.Location != nil {
		crit.Location = strings.ToLower(strings.TrimSpace(*w.Filters.Location))
	}
	if w.Filters.Gender != nil {
		crit.Gender = strings.ToLower(strings.TrimSpace(*w.Filters.Gender))
	}

	return crit
}

// coerceLimit folds the limit shapes models produce (number, numeric
// string, single-element list) into one integer. Anything else is nil.
func coerceLimit(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		n = int(f)
		return &n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &v
		}
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return coerceLimit(list[0])
	}

	return nil
}

// ExtractBalancedJSON returns the first balanced {...} substring,
// tracking string literals and escapes so braces inside values do not
// confuse the scan.
func ExtractBalancedJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

var limitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*candidat`),
	regexp.MustCompile(`\b(\d+)\b`),
}

// FallbackLimit scans the original request for a numeric limit, trying
// "N candidatos"-style patterns before any bare integer. Values outside
// 1..100 are ignored.
func FallbackLimit(request string) (int, bool) {
	for _, pattern := range limitPatterns {
		match := pattern.FindStringSubmatch(request)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil || n < minLimit || n > maxLimit {
			continue
		}
		return n, true
	}
	return 0, false
}
