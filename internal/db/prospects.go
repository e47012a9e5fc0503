package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

const prospectColumns = `workbook_id, applicant_id, score_semantico, COALESCE(origem, ''), selecionado, data_entrada, COALESCE(observacoes, '')`

// ListProspects retrieves every prospect of a workbook, selected ones
// first, best score first within each group.
func (db *DB) ListProspects(ctx context.Context, workbookID uuid.UUID) ([]types.Prospect, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+prospectColumns+`
		 FROM match_prospects WHERE workbook_id = $1
		 ORDER BY selecionado DESC, score_semantico DESC`,
		workbookID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prospects: %w", err)
	}
	defer rows.Close()
	return scanProspects(rows)
}

// ListProspectsByJob retrieves the prospects of every workbook opened
// for a job, selected ones first, best score first within each group.
func (db *DB) ListProspectsByJob(ctx context.Context, jobID int64) ([]types.Prospect, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT mp.workbook_id, mp.applicant_id, mp.score_semantico, COALESCE(mp.origem, ''),
		        mp.selecionado, mp.data_entrada, COALESCE(mp.observacoes, '')
		 FROM match_prospects mp
		 JOIN match_workbooks mw ON mw.id = mp.workbook_id
		 WHERE mw.vaga_id = $1
		 ORDER BY mp.selecionado DESC, mp.score_semantico DESC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prospects for job %d: %w", jobID, err)
	}
	defer rows.Close()
	return scanProspects(rows)
}

// ListSelectedProspects retrieves only the pinned prospects of a workbook.
func (db *DB) ListSelectedProspects(ctx context.Context, workbookID uuid.UUID) ([]types.Prospect, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+prospectColumns+`
		 FROM match_prospects WHERE workbook_id = $1 AND selecionado
		 ORDER BY score_semantico DESC`,
		workbookID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list selected prospects: %w", err)
	}
	defer rows.Close()
	return scanProspects(rows)
}

// ReplaceProspects replaces the non-selected prospects of a workbook
// with the given rows in a single transaction. Selected rows are never
// touched, so pins survive every re-filter.
func (db *DB) ReplaceProspects(ctx context.Context, workbookID uuid.UUID, prospects []types.Prospect) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin prospect replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM match_prospects WHERE workbook_id = $1 AND NOT selecionado`,
		workbookID,
	); err != nil {
		return fmt.Errorf("failed to clear prospects: %w", err)
	}

	for _, p := range prospects {
		if _, err := tx.Exec(ctx,
			`INSERT INTO match_prospects
			   (workbook_id, applicant_id, score_semantico, origem, selecionado, data_entrada, observacoes)
			 VALUES ($1, $2, $3, $4, false, NOW(), $5)
			 ON CONFLICT (workbook_id, applicant_id) DO NOTHING`,
			workbookID, p.ApplicantID, p.Score, p.Origin, p.Notes,
		); err != nil {
			return fmt.Errorf("failed to insert prospect %d: %w", p.ApplicantID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit prospect replace: %w", err)
	}
	return nil
}

// SetProspectSelected toggles the pin flag of a prospect.
func (db *DB) SetProspectSelected(ctx context.Context, workbookID uuid.UUID, applicantID int64, selected bool) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE match_prospects SET selecionado = $1 WHERE workbook_id = $2 AND applicant_id = $3`,
		selected, workbookID, applicantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update prospect: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prospect not found: workbook %s applicant %d", workbookID, applicantID)
	}
	return nil
}

func scanProspects(rows pgx.Rows) ([]types.Prospect, error) {
	var prospects []types.Prospect
	for rows.Next() {
		var p types.Prospect
		if err := rows.Scan(&p.WorkbookID, &p.ApplicantID, &p.Score, &p.Origin, &p.Selected, &p.EnteredAt, &p.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan prospect: %w", err)
		}
		prospects = append(prospects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prospects: %w", err)
	}
	return prospects, nil
}
