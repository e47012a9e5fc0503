package types

// LanguageRequirement asks for a language at a minimum proficiency level.
// When IncludeSuperior is true the requirement accepts every level at or
// above MinLevel in the proficiency hierarchy.
type LanguageRequirement struct {
	Name            string `json:"idioma"`
	MinLevel        string `json:"nivel_minimo,omitempty"`
	IncludeSuperior bool   `json:"incluir_superiores"`
}

// EducationCriteria is a structural requirement on education records.
type EducationCriteria struct {
	Level  string `json:"nivel,omitempty"`
	Course string `json:"curso,omitempty"`
}

// FilterCriteria is the structured form of a free-text filter request.
// It is ephemeral: derived per request by the criteria extractor and
// never persisted. A nil Limit means "use the contextual default".
type FilterCriteria struct {
	UseSimilarity bool                  `json:"usar_similaridade"`
	Limit         *int                  `json:"limite,omitempty" validate:"omitempty,min=1,max=100"`
	Languages     []LanguageRequirement `json:"idiomas,omitempty"`
	Skills        []string              `json:"habilidades,omitempty"`
	Education     EducationCriteria     `json:"formacao,omitempty"`
	Location      string                `json:"localizacao,omitempty"`
	Gender        string                `json:"sexo,omitempty"`
}

// DefaultCriteria is the permissive fallback used when extraction fails:
// similarity-only search, no filters, contextual limit.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{UseSimilarity: true}
}

// HasFilters reports whether any attribute filter is present. A request
// with filters but no explicit limit is treated as a refinement.
func (c FilterCriteria) HasFilters() bool {
	return len(c.Languages) > 0 ||
		len(c.Skills) > 0 ||
		c.Education.Level != "" ||
		c.Education.Course != "" ||
		c.Location != "" ||
		c.Gender != ""
}
