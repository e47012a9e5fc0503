// Package types defines the shared data structures for the candidate
// matching engine.
package types

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// LanguageSkill is a declared language with a proficiency level, as it
// appears in the structured CV JSON (cv_pt_json).
type LanguageSkill struct {
	Name  string `json:"idioma"`
	Level string `json:"nivel"`
}

// EducationRecord is a single education entry in the structured CV JSON.
type EducationRecord struct {
	Course      string `json:"curso"`
	Level       string `json:"nivel"`
	Institution string `json:"instituicao,omitempty"`
	Year        string `json:"ano_conclusao,omitempty"`
}

// Experience is a single professional experience entry.
type Experience struct {
	Company   string `json:"empresa,omitempty"`
	Role      string `json:"cargo,omitempty"`
	StartDate string `json:"inicio,omitempty"`
	EndDate   string `json:"fim,omitempty"`
	Summary   string `json:"descricao,omitempty"`
}

// CVData is the structured résumé produced by the ingestion pipeline.
// Field names follow the Portuguese keys used by the source data set.
type CVData struct {
	Skills      []string          `json:"habilidades,omitempty"`
	Languages   []LanguageSkill   `json:"idiomas,omitempty"`
	Educations  []EducationRecord `json:"formacoes,omitempty"`
	Experiences []Experience      `json:"experiencias,omitempty"`
	Summary     string            `json:"resumo,omitempty"`
}

// Applicant is an ingested candidate snapshot. The matching engine only
// reads it; the ingestion pipeline owns writes.
type Applicant struct {
	ID                int64           `json:"id"`
	Name              string          `json:"nome"`
	Email             string          `json:"email,omitempty"`
	Address           string          `json:"endereco,omitempty"`
	Gender            string          `json:"sexo,omitempty"`
	MaxEducationLevel string          `json:"nivel_maximo_formacao,omitempty"`
	CV                *CVData         `json:"cv_pt,omitempty"`
	SemanticText      string          `json:"cv_texto_semantico,omitempty"`
	Embedding         pgvector.Vector `json:"-"`
	UpdatedAt         time.Time       `json:"updated_at,omitempty"`
}

// RankedApplicant is an applicant paired with its cosine distance to a
// job embedding. Lower distance means more similar; Score is 1 - distance.
// Produced fresh per filter request, never persisted directly.
type RankedApplicant struct {
	Applicant Applicant `json:"applicant"`
	Distance  float64   `json:"distancia"`
	Score     float64   `json:"score_semantico"`
	Origin    string    `json:"origem,omitempty"`
}
