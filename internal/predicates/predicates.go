// Package predicates implements the attribute filters applied to a
// candidate pool. Each filter type is an independent evaluator; a Set
// combines the evaluators present in the criteria with logical AND.
// The in-process evaluators here are the reference semantics; sql.go
// provides an equivalent pushdown for the datastore.
package predicates

import (
	"strings"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/levels"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// Predicate evaluates one filter type against a candidate profile.
type Predicate interface {
	Name() string
	Matches(a *types.Applicant) bool
}

// Set is a conjunction of predicates. Filter types absent from the
// criteria contribute no predicate, so they are vacuously satisfied.
type Set struct {
	predicates []Predicate
}

// Build assembles the predicate set for the given criteria.
func Build(crit types.FilterCriteria, hierarchy *levels.Hierarchy) Set {
	var set Set
	if len(crit.Languages) > 0 {
		set.predicates = append(set.predicates, &languagePredicate{
			requirements: crit.Languages,
			hierarchy:    hierarchy,
		})
	}
	if len(crit.Skills) > 0 {
		set.predicates = append(set.predicates, &skillsPredicate{skills: crit.Skills})
	}
	if crit.Education.Level != "" || crit.Education.Course != "" {
		set.predicates = append(set.predicates, &educationPredicate{criteria: crit.Education})
	}
	if crit.Location != "" {
		set.predicates = append(set.predicates, &locationPredicate{location: crit.Location})
	}
	if crit.Gender != "" {
		set.predicates = append(set.predicates, &genderPredicate{gender: crit.Gender})
	}
	return set
}

// Empty reports whether the set holds no predicates.
func (s Set) Empty() bool { return len(s.predicates) == 0 }

// Matches applies every predicate; all must pass.
func (s Set) Matches(a *types.Applicant) bool {
	for _, p := range s.predicates {
		if !p.Matches(a) {
			return false
		}
	}
	return true
}

// FailedPredicate returns the name of the first predicate the candidate
// fails, for diagnostics. Empty string means the candidate passes.
func (s Set) FailedPredicate(a *types.Applicant) string {
	for _, p := range s.predicates {
		if !p.Matches(a) {
			return p.Name()
		}
	}
	return ""
}

// languagePredicate passes when the candidate satisfies at least one of
// the requested language entries (OR across entries). A single entry
// matches when the requested name appears inside a declared language
// name and the declared level is in the accepted set. Containment runs
// one way only so the result agrees with the pushed-down jsonpath
// regex, which tests the declared name against the requested pattern.
type languagePredicate struct {
	requirements []types.LanguageRequirement
	hierarchy    *levels.Hierarchy
}

func (p *languagePredicate) Name() string { return "idiomas" }

func (p *languagePredicate) Matches(a *types.Applicant) bool {
	if a.CV == nil || len(a.CV.Languages) == 0 {
		return false
	}
	for _, req := range p.requirements {
		if p.matchesRequirement(a.CV.Languages, req) {
			return true
		}
	}
	return false
}

func (p *languagePredicate) matchesRequirement(declared []types.LanguageSkill, req types.LanguageRequirement) bool {
	want := strings.ToLower(strings.TrimSpace(req.Name))
	if want == "" {
		return true
	}
	for _, lang := range declared {
		name := strings.ToLower(strings.TrimSpace(lang.Name))
		if name == "" {
			continue
		}
		if !strings.Contains(name, want) {
			continue
		}
		if req.MinLevel == "" {
			return true
		}
		if p.hierarchy.Satisfies(lang.Level, req.MinLevel, req.IncludeSuperior) {
			return true
		}
	}
	return false
}

// skillsPredicate passes when at least one requested skill appears as a
// substring of the candidate's concatenated skill list.
type skillsPredicate struct {
	skills []string
}

func (p *skillsPredicate) Name() string { return "habilidades" }

func (p *skillsPredicate) Matches(a *types.Applicant) bool {
	if a.CV == nil || len(a.CV.Skills) == 0 {
		return false
	}
	haystack := strings.ToLower(strings.Join(a.CV.Skills, " "))
	for _, skill := range p.skills {
		needle := strings.ToLower(strings.TrimSpace(skill))
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// educationPredicate matches level and course independently: each
// present criterion must be satisfied by some education record, not
// necessarily the same one.
type educationPredicate struct {
	criteria types.EducationCriteria
}

func (p *educationPredicate) Name() string { return "formacao" }

func (p *educationPredicate) Matches(a *types.Applicant) bool {
	if a.CV == nil || len(a.CV.Educations) == 0 {
		return false
	}
	if p.criteria.Level != "" && !p.anyRecord(a.CV.Educations, p.criteria.Level, func(r types.EducationRecord) string { return r.Level }) {
		return false
	}
	if p.criteria.Course != "" && !p.anyRecord(a.CV.Educations, p.criteria.Course, func(r types.EducationRecord) string { return r.Course }) {
		return false
	}
	return true
}

func (p *educationPredicate) anyRecord(records []types.EducationRecord, needle string, field func(types.EducationRecord) string) bool {
	needle = strings.ToLower(needle)
	for _, record := range records {
		if strings.Contains(strings.ToLower(field(record)), needle) {
			return true
		}
	}
	return false
}

// locationPredicate does a case-insensitive substring match on the
// candidate's free-text address.
type locationPredicate struct {
	location string
}

func (p *locationPredicate) Name() string { return "localizacao" }

func (p *locationPredicate) Matches(a *types.Applicant) bool {
	return strings.Contains(strings.ToLower(a.Address), strings.ToLower(p.location))
}

// genderPredicate is an exact case-insensitive match.
type genderPredicate struct {
	gender string
}

func (p *genderPredicate) Name() string { return "sexo" }

func (p *genderPredicate) Matches(a *types.Applicant) bool {
	return strings.EqualFold(strings.TrimSpace(a.Gender), strings.TrimSpace(p.gender))
}
