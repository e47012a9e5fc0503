package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// GetWorkbook retrieves a workbook by id. Returns nil when it does not exist.
func (db *DB) GetWorkbook(ctx context.Context, id uuid.UUID) (*types.Workbook, error) {
	var wb types.Workbook
	err := db.pool.QueryRow(ctx,
		`SELECT id, vaga_id, created_at FROM match_workbooks WHERE id = $1`,
		id,
	).Scan(&wb.ID, &wb.JobID, &wb.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workbook: %w", err)
	}
	return &wb, nil
}

// CreateWorkbook creates a workbook for a job and returns it.
func (db *DB) CreateWorkbook(ctx context.Context, jobID int64) (*types.Workbook, error) {
	var wb types.Workbook
	err := db.pool.QueryRow(ctx,
		`INSERT INTO match_workbooks (vaga_id) VALUES ($1) RETURNING id, vaga_id, created_at`,
		jobID,
	).Scan(&wb.ID, &wb.JobID, &wb.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create workbook: %w", err)
	}
	return &wb, nil
}
