package matching

import (
	"fmt"
	"strings"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// previewSize caps how many candidates the summary lists by name.
const previewSize = 10

// maxSkillsShown caps how many skills the applied-filters line names
// before collapsing the rest into a count.
const maxSkillsShown = 3

// Formatter renders the recruiter-facing summary of a filter result in
// Portuguese. It is intentionally plain text so chat frontends can
// display it without markup.
type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

// Summary describes the criteria that were applied and the composed
// result, with a short preview of the best candidates.
func (f *Formatter) Summary(job *types.Job, result *FilterResult) string {
	if len(result.Candidates) == 0 && len(result.Pinned) == 0 {
		return f.NoResults()
	}

	var sb strings.Builder
	title := strings.TrimSpace(job.Title)
	if title != "" {
		fmt.Fprintf(&sb, "Busca semântica pela vaga \"%s\".\n", title)
	} else {
		sb.WriteString("Busca semântica pela vaga.\n")
	}

	if lines := criteriaLines(result.Criteria); len(lines) > 0 {
		sb.WriteString("Filtros aplicados:\n")
		for _, line := range lines {
			sb.WriteString("- " + line + "\n")
		}
	}

	fmt.Fprintf(&sb, "%s (limite de %d).\n", countPhrase(len(result.Candidates)), result.Limit)
	if n := len(result.Pinned); n > 0 {
		if n == 1 {
			sb.WriteString("1 candidato selecionado foi mantido na lista.\n")
		} else {
			fmt.Fprintf(&sb, "%d candidatos selecionados foram mantidos na lista.\n", n)
		}
	}

	if len(result.Candidates) > 0 {
		sb.WriteString("Melhores candidatos:\n")
		for i, ranked := range result.Candidates {
			if i == previewSize {
				fmt.Fprintf(&sb, "... e mais %d.\n", len(result.Candidates)-previewSize)
				break
			}
			name := strings.TrimSpace(ranked.Applicant.Name)
			if name == "" {
				name = fmt.Sprintf("Candidato %d", ranked.Applicant.ID)
			}
			fmt.Fprintf(&sb, "%d. %s (%.1f%%)\n", i+1, name, ranked.Score*100)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// NoResults is the summary for an empty or failed search.
func (f *Formatter) NoResults() string {
	return "Nenhum candidato encontrado para os critérios informados. " +
		"Tente ampliar a busca removendo filtros ou reduzindo o nível exigido."
}

func countPhrase(n int) string {
	if n == 1 {
		return "1 candidato encontrado"
	}
	return fmt.Sprintf("%d candidatos encontrados", n)
}

func criteriaLines(crit types.FilterCriteria) []string {
	var lines []string
	if len(crit.Languages) > 0 {
		var parts []string
		for _, req := range crit.Languages {
			part := req.Name
			if req.MinLevel != "" {
				if req.IncludeSuperior {
					part += " (" + req.MinLevel + " ou superior)"
				} else {
					part += " (" + req.MinLevel + ")"
				}
			}
			parts = append(parts, part)
		}
		lines = append(lines, "Idiomas: "+strings.Join(parts, ", "))
	}
	if len(crit.Skills) > 0 {
		skills := crit.Skills
		suffix := ""
		if len(skills) > maxSkillsShown {
			suffix = fmt.Sprintf(" e mais %d", len(skills)-maxSkillsShown)
			skills = skills[:maxSkillsShown]
		}
		lines = append(lines, "Habilidades: "+strings.Join(skills, ", ")+suffix)
	}
	if crit.Education.Course != "" || crit.Education.Level != "" {
		var parts []string
		if crit.Education.Course != "" {
			parts = append(parts, crit.Education.Course)
		}
		if crit.Education.Level != "" {
			parts = append(parts, crit.Education.Level)
		}
		lines = append(lines, "Formação: "+strings.Join(parts, ", "))
	}
	if crit.Location != "" {
		lines = append(lines, "Localização: "+crit.Location)
	}
	if crit.Gender != "" {
		lines = append(lines, "Sexo: "+crit.Gender)
	}
	return lines
}
