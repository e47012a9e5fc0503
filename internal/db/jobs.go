package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// GetJob retrieves a job with its embedding. Returns nil when it does
// not exist.
func (db *DB) GetJob(ctx context.Context, id int64) (*types.Job, error) {
	var (
		job       types.Job
		embedding *pgvector.Vector
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, COALESCE(titulo, ''), COALESCE(vaga_texto_semantico, ''), vaga_embedding_vector,
		        COALESCE(principais_atividades, ''), COALESCE(competencias, ''), COALESCE(areas_atuacao, ''),
		        COALESCE(nivel_profissional, ''), COALESCE(nivel_academico, '')
		 FROM vagas WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.Title, &job.SemanticText, &embedding,
		&job.MainActivities, &job.Competencies, &job.Areas,
		&job.ProfessionalLevel, &job.AcademicLevel)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if embedding != nil {
		job.Embedding = *embedding
	}
	return &job, nil
}

// HasJobEmbedding reports whether the job exists and already has a
// semantic embedding.
func (db *DB) HasJobEmbedding(ctx context.Context, id int64) (bool, error) {
	var has bool
	err := db.pool.QueryRow(ctx,
		`SELECT vaga_embedding_vector IS NOT NULL FROM vagas WHERE id = $1`,
		id,
	).Scan(&has)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check job embedding: %w", err)
	}
	return has, nil
}

// UpdateJobSemantics stores the semantic text and embedding produced by
// job processing.
func (db *DB) UpdateJobSemantics(ctx context.Context, id int64, semanticText string, embedding pgvector.Vector) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE vagas SET vaga_texto_semantico = $1, vaga_embedding_vector = $2, updated_at = NOW() WHERE id = $3`,
		semanticText, embedding, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job semantics: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %d", id)
	}
	return nil
}
