// Package levels implements the ordered proficiency taxonomy used to
// expand "at least level X" language requirements.
package levels

import "strings"

// Canonical language proficiency levels, lowest first.
const (
	Basic        = "básico"
	Intermediate = "intermediário"
	Advanced     = "avançado"
	Fluent       = "fluente"
	Native       = "nativo"
)

// Hierarchy is an ordered taxonomy of graded attribute levels. Lookups
// normalize case, diacritic and English variants to a canonical token;
// unknown levels fail open to an exact match on the literal input.
type Hierarchy struct {
	order    []string
	index    map[string]int
	variants map[string]string
}

// NewLanguageLevels returns the proficiency hierarchy for spoken
// languages: básico < intermediário < avançado < fluente. "nativo" is a
// candidate-side level that ranks above fluente but is never required.
func NewLanguageLevels() *Hierarchy {
	h := &Hierarchy{
		order: []string{Basic, Intermediate, Advanced, Fluent},
		variants: map[string]string{
			"básico":        Basic,
			"basico":        Basic,
			"basic":         Basic,
			"intermediário": Intermediate,
			"intermediario": Intermediate,
			"intermediate":  Intermediate,
			"avançado":      Advanced,
			"avancado":      Advanced,
			"advanced":      Advanced,
			"fluente":       Fluent,
			"fluent":        Fluent,
			"nativo":        Native,
			"native":        Native,
		},
	}
	h.index = make(map[string]int, len(h.order)+1)
	for i, level := range h.order {
		h.index[level] = i
	}
	h.index[Native] = len(h.order)
	return h
}

// Canonical maps a level name to its canonical token, tolerating case
// and diacritic variants. Unknown names come back lowercased as-is.
func (h *Hierarchy) Canonical(level string) string {
	key := strings.ToLower(strings.TrimSpace(level))
	if canonical, ok := h.variants[key]; ok {
		return canonical
	}
	return key
}

// Known reports whether level maps to a canonical token in the hierarchy.
func (h *Hierarchy) Known(level string) bool {
	_, ok := h.variants[strings.ToLower(strings.TrimSpace(level))]
	return ok
}

// Accepted returns the set of acceptable levels for a minimum level.
// With includeSuperior the minimum and everything above it is accepted;
// without it only the minimum itself. An unknown minimum yields a
// singleton containing the literal input.
func (h *Hierarchy) Accepted(minLevel string, includeSuperior bool) []string {
	canonical := h.Canonical(minLevel)
	rank, ok := h.index[canonical]
	if !ok {
		return []string{canonical}
	}
	if !includeSuperior {
		return []string{canonical}
	}
	if canonical == Native {
		return []string{Native}
	}
	accepted := make([]string, 0, len(h.order)-rank)
	accepted = append(accepted, h.order[rank:]...)
	return accepted
}

// Satisfies reports whether a candidate's declared level meets a
// required minimum. Declared "nativo" satisfies any known minimum.
func (h *Hierarchy) Satisfies(declared, minLevel string, includeSuperior bool) bool {
	canonical := h.Canonical(declared)
	if canonical == Native && h.Known(minLevel) {
		return true
	}
	for _, accepted := range h.Accepted(minLevel, includeSuperior) {
		if canonical == accepted {
			return true
		}
	}
	return false
}

// Variants returns the spelling variants that map to a canonical level,
// for pushing level matching down into SQL regexes. Unknown levels get
// the literal input back.
func (h *Hierarchy) Variants(level string) []string {
	canonical := h.Canonical(level)
	var out []string
	for variant, mapped := range h.variants {
		if mapped == canonical {
			out = append(out, variant)
		}
	}
	if len(out) == 0 {
		return []string{canonical}
	}
	// Deterministic order: canonical spelling first, rest sorted by the
	// accent-stripped then english forms via simple insertion ordering.
	sortVariants(out, canonical)
	return out
}

func sortVariants(variants []string, canonical string) {
	for i := range variants {
		if variants[i] == canonical && i != 0 {
			variants[0], variants[i] = variants[i], variants[0]
			break
		}
	}
	// Keep remaining variants in lexical order.
	for i := 1; i < len(variants); i++ {
		for j := i + 1; j < len(variants); j++ {
			if variants[j] < variants[i] {
				variants[i], variants[j] = variants[j], variants[i]
			}
		}
	}
}
