package predicates

import (
	"fmt"
	"strings"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/levels"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// SQLBuilder renders the same filter semantics as the in-process
// evaluators into SQL fragments over the processed_applicants table,
// so the datastore can reject candidates before they ever reach the
// scoring path. CV fields live in the cv_pt_json jsonb column and are
// probed with jsonb_path_exists; profile fields use bind parameters.
type SQLBuilder struct {
	hierarchy *levels.Hierarchy
}

func NewSQLBuilder(hierarchy *levels.Hierarchy) *SQLBuilder {
	return &SQLBuilder{hierarchy: hierarchy}
}

// Conditions returns WHERE fragments and their bind arguments for the
// criteria. Fragments reference the table alias "pa" and number their
// placeholders starting at argOffset+1. An empty criteria yields no
// fragments.
func (b *SQLBuilder) Conditions(crit types.FilterCriteria, argOffset int) ([]string, []any) {
	var (
		conds []string
		args  []any
	)
	if cond := b.languageCondition(crit.Languages); cond != "" {
		conds = append(conds, cond)
	}
	if cond := b.skillsCondition(crit.Skills); cond != "" {
		conds = append(conds, cond)
	}
	conds = append(conds, b.educationConditions(crit.Education)...)
	if crit.Location != "" {
		args = append(args, "%"+strings.ToLower(crit.Location)+"%")
		conds = append(conds, fmt.Sprintf("LOWER(pa.endereco) LIKE $%d", argOffset+len(args)))
	}
	if crit.Gender != "" {
		args = append(args, strings.ToLower(crit.Gender))
		conds = append(conds, fmt.Sprintf("LOWER(pa.sexo) = $%d", argOffset+len(args)))
	}
	return conds, args
}

func (b *SQLBuilder) languageCondition(reqs []types.LanguageRequirement) string {
	var parts []string
	for _, req := range reqs {
		name := sanitizeJSONPathTerm(req.Name)
		if name == "" {
			continue
		}
		var levelFilter string
		if req.MinLevel != "" {
			accepted := b.hierarchy.Accepted(req.MinLevel, req.IncludeSuperior)
			if b.hierarchy.Known(req.MinLevel) && !contains(accepted, levels.Native) {
				// Declared "nativo" satisfies any known minimum.
				accepted = append(accepted, levels.Native)
			}
			var alts []string
			for _, level := range accepted {
				for _, variant := range b.hierarchy.Variants(level) {
					alts = append(alts, fmt.Sprintf(`@.nivel like_regex "%s" flag "i"`, sanitizeJSONPathTerm(variant)))
				}
			}
			levelFilter = " && (" + strings.Join(alts, " || ") + ")"
		}
		path := fmt.Sprintf(`$.idiomas[*] ? (@.idioma like_regex "%s" flag "i"%s)`, name, levelFilter)
		parts = append(parts, fmt.Sprintf("jsonb_path_exists(pa.cv_pt_json, '%s')", path))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (b *SQLBuilder) skillsCondition(skills []string) string {
	var parts []string
	for _, skill := range skills {
		term := sanitizeJSONPathTerm(skill)
		if term == "" {
			continue
		}
		path := fmt.Sprintf(`$.habilidades[*] ? (@ like_regex "%s" flag "i")`, term)
		parts = append(parts, fmt.Sprintf("jsonb_path_exists(pa.cv_pt_json, '%s')", path))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (b *SQLBuilder) educationConditions(edu types.EducationCriteria) []string {
	var conds []string
	if term := sanitizeJSONPathTerm(edu.Level); term != "" {
		path := fmt.Sprintf(`$.formacoes[*] ? (@.nivel like_regex "%s" flag "i")`, term)
		conds = append(conds, fmt.Sprintf("jsonb_path_exists(pa.cv_pt_json, '%s')", path))
	}
	if term := sanitizeJSONPathTerm(edu.Course); term != "" {
		path := fmt.Sprintf(`$.formacoes[*] ? (@.curso like_regex "%s" flag "i")`, term)
		conds = append(conds, fmt.Sprintf("jsonb_path_exists(pa.cv_pt_json, '%s')", path))
	}
	return conds
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

// sanitizeJSONPathTerm lowercases a free-text term and strips the
// characters that could terminate the jsonpath string or its enclosing
// SQL literal. Terms are matched as like_regex patterns, so regex
// metacharacters are escaped too.
func sanitizeJSONPathTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	term = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '\\':
			return -1
		}
		return r
	}, term)
	var sb strings.Builder
	for _, r := range term {
		if strings.ContainsRune(`.+*?()|[]{}^$`, r) {
			sb.WriteString("\\\\")
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
