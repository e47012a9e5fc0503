package types

import (
	"time"

	"github.com/google/uuid"
)

// Prospect is the persisted association between a workbook and an
// applicant. It is the only durable state the matching engine mutates.
// The Selected flag is toggled by the recruiter workflow and must
// survive re-filtering.
type Prospect struct {
	WorkbookID  uuid.UUID `json:"workbook_id"`
	ApplicantID int64     `json:"applicant_id"`
	Score       float64   `json:"score_semantico"`
	Origin      string    `json:"origem,omitempty"`
	Selected    bool      `json:"selecionado"`
	EnteredAt   time.Time `json:"data_entrada,omitempty"`
	Notes       string    `json:"observacoes,omitempty"`
}
