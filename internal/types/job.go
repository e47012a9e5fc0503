package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Job is a job opening (vaga) with its precomputed embedding and the
// free-text requirement fields used to build it. Read-only to the
// matching engine; job processing owns writes.
type Job struct {
	ID                int64           `json:"id"`
	Title             string          `json:"titulo,omitempty"`
	SemanticText      string          `json:"vaga_texto_semantico,omitempty"`
	Embedding         pgvector.Vector `json:"-"`
	MainActivities    string          `json:"principais_atividades,omitempty"`
	Competencies      string          `json:"competencias,omitempty"`
	Areas             string          `json:"areas_atuacao,omitempty"`
	ProfessionalLevel string          `json:"nivel_profissional,omitempty"`
	AcademicLevel     string          `json:"nivel_academico,omitempty"`
}

// Workbook binds a recruiter working set to a job. Prospects are keyed
// by workbook, so the same job can have independent candidate sets.
type Workbook struct {
	ID        uuid.UUID `json:"workbook_id"`
	JobID     int64     `json:"vaga_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
