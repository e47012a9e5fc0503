package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// PoolFilters holds the optional attribute pushdown for a candidate
// pool query. Conditions reference the alias "pa" and number their
// placeholders starting after the two fixed arguments of the query.
type PoolFilters struct {
	Conditions []string
	Args       []any
}

// PoolConditionOffset is the number of fixed placeholders that precede
// pushdown arguments in the candidate pool query.
const PoolConditionOffset = 2

// CandidatePool returns up to limit applicants ordered by cosine
// distance to the job embedding, skipping excluded ids and rows
// without an embedding. Rows whose structured CV fails to decode are
// skipped with a warning rather than failing the whole pool.
func (db *DB) CandidatePool(ctx context.Context, embedding pgvector.Vector, excludeIDs []int64, filters PoolFilters, limit int) ([]types.RankedApplicant, error) {
	if excludeIDs == nil {
		excludeIDs = []int64{}
	}

	query := `SELECT pa.id, pa.nome, COALESCE(pa.email, ''), COALESCE(pa.endereco, ''),
		       COALESCE(pa.sexo, ''), COALESCE(pa.nivel_maximo_formacao, ''), pa.cv_pt_json,
		       pa.cv_embedding_vector <=> $1 AS distancia
		FROM processed_applicants pa
		WHERE pa.cv_embedding_vector IS NOT NULL
		  AND NOT (pa.id = ANY($2))`
	args := []any{embedding, excludeIDs}

	for _, cond := range filters.Conditions {
		query += " AND " + cond
	}
	args = append(args, filters.Args...)

	query += fmt.Sprintf(" ORDER BY distancia ASC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate pool: %w", err)
	}
	defer rows.Close()

	var ranked []types.RankedApplicant
	for rows.Next() {
		var (
			applicant types.Applicant
			cvJSON    []byte
			distance  float64
		)
		if err := rows.Scan(&applicant.ID, &applicant.Name, &applicant.Email, &applicant.Address,
			&applicant.Gender, &applicant.MaxEducationLevel, &cvJSON, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if len(cvJSON) > 0 {
			var cv types.CVData
			if err := json.Unmarshal(cvJSON, &cv); err != nil {
				db.log.Warn("skipping candidate with malformed cv json",
					zap.Int64("applicant_id", applicant.ID), zap.Error(err))
				continue
			}
			applicant.CV = &cv
		}
		ranked = append(ranked, types.RankedApplicant{
			Applicant: applicant,
			Distance:  distance,
			Score:     1 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidate pool: %w", err)
	}
	return ranked, nil
}

// GetApplicant retrieves a processed applicant by id. Returns nil when
// the applicant does not exist.
func (db *DB) GetApplicant(ctx context.Context, id int64) (*types.Applicant, error) {
	var (
		applicant types.Applicant
		cvJSON    []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, nome, COALESCE(email, ''), COALESCE(endereco, ''), COALESCE(sexo, ''),
		        COALESCE(nivel_maximo_formacao, ''), cv_pt_json, COALESCE(cv_texto_semantico, ''), updated_at
		 FROM processed_applicants WHERE id = $1`,
		id,
	).Scan(&applicant.ID, &applicant.Name, &applicant.Email, &applicant.Address, &applicant.Gender,
		&applicant.MaxEducationLevel, &cvJSON, &applicant.SemanticText, &applicant.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get applicant: %w", err)
	}
	if len(cvJSON) > 0 {
		var cv types.CVData
		if err := json.Unmarshal(cvJSON, &cv); err != nil {
			return nil, fmt.Errorf("failed to decode applicant cv: %w", err)
		}
		applicant.CV = &cv
	}
	return &applicant, nil
}

// RawApplicant is the unprocessed candidate record the ingestion
// pipeline reads from.
type RawApplicant struct {
	ID     int64
	Name   string
	Email  string
	CVText string
}

// GetRawApplicant retrieves the raw CV text for an applicant. Returns
// nil when the applicant does not exist.
func (db *DB) GetRawApplicant(ctx context.Context, id int64) (*RawApplicant, error) {
	var raw RawApplicant
	err := db.pool.QueryRow(ctx,
		`SELECT id, COALESCE(nome, ''), COALESCE(email, ''), COALESCE(cv_pt, '')
		 FROM applicants WHERE id = $1`,
		id,
	).Scan(&raw.ID, &raw.Name, &raw.Email, &raw.CVText)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get raw applicant: %w", err)
	}
	return &raw, nil
}

// UpsertProcessedApplicant stores the output of the ingestion pipeline,
// replacing any previous snapshot for the same applicant.
func (db *DB) UpsertProcessedApplicant(ctx context.Context, a *types.Applicant) error {
	var cvJSON []byte
	if a.CV != nil {
		var err error
		cvJSON, err = json.Marshal(a.CV)
		if err != nil {
			return fmt.Errorf("failed to marshal applicant cv: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO processed_applicants
		   (id, nome, email, endereco, sexo, nivel_maximo_formacao, cv_pt_json, cv_texto_semantico, cv_embedding_vector, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   nome = $2, email = $3, endereco = $4, sexo = $5, nivel_maximo_formacao = $6,
		   cv_pt_json = $7, cv_texto_semantico = $8, cv_embedding_vector = $9, updated_at = NOW()`,
		a.ID, a.Name, a.Email, a.Address, a.Gender, a.MaxEducationLevel, cvJSON, a.SemanticText, a.Embedding,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert applicant %d: %w", a.ID, err)
	}
	return nil
}
