package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/ingestion"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// FilterRequest represents the body of POST /workbooks/{id}/filter
type FilterRequest struct {
	Message string `json:"mensagem"`
}

// FilterResponse represents the filter result payload. The candidate
// list may be empty; the request itself never fails with a 5xx once it
// parses.
type FilterResponse struct {
	WorkbookID string                  `json:"workbook_id"`
	Criteria   types.FilterCriteria    `json:"criterios"`
	Pinned     []types.RankedApplicant `json:"selecionados"`
	Candidates []types.RankedApplicant `json:"candidatos"`
	Limit      int                     `json:"limite"`
	Summary    string                  `json:"resumo"`
}

// CreateWorkbookRequest represents the body of POST /workbooks
type CreateWorkbookRequest struct {
	JobID int64 `json:"vaga_id"`
}

// SelectRequest represents the body of the prospect selection toggle
type SelectRequest struct {
	Selected bool `json:"selecionado"`
}

// ProcessResponse represents the async processing acknowledgement
type ProcessResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (s *Server) workbookID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workbook ID format")
		return uuid.Nil, false
	}
	return id, true
}

// handleFilter runs a conversational filter request against a workbook.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	workbookID, ok := s.workbookID(w, r)
	if !ok {
		return
	}

	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.errorResponse(w, http.StatusBadRequest, "mensagem is required")
		return
	}

	ctx := r.Context()
	if s.filterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.filterTimeout)
		defer cancel()
	}
	result := s.filterer.Filter(ctx, workbookID, req.Message)

	s.jsonResponse(w, http.StatusOK, FilterResponse{
		WorkbookID: workbookID.String(),
		Criteria:   result.Criteria,
		Pinned:     result.Pinned,
		Candidates: result.Candidates,
		Limit:      result.Limit,
		Summary:    result.Summary,
	})
}

// handleCreateWorkbook opens a new working set for a job.
func (s *Server) handleCreateWorkbook(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkbookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.JobID <= 0 {
		s.errorResponse(w, http.StatusBadRequest, "vaga_id is required")
		return
	}

	workbook, err := s.workbooks.CreateWorkbook(r.Context(), req.JobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, workbook)
}

// handleListProspects returns the persisted working set of a workbook.
func (s *Server) handleListProspects(w http.ResponseWriter, r *http.Request) {
	workbookID, ok := s.workbookID(w, r)
	if !ok {
		return
	}

	workbook, err := s.workbooks.GetWorkbook(r.Context(), workbookID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if workbook == nil {
		s.errorResponse(w, http.StatusNotFound, "Workbook not found")
		return
	}

	prospects, err := s.workbooks.ListProspects(r.Context(), workbookID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if prospects == nil {
		prospects = []types.Prospect{}
	}
	s.jsonResponse(w, http.StatusOK, prospects)
}

// handleListJobProspects returns the prospects of every workbook opened
// for a job.
func (s *Server) handleListJobProspects(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job ID format")
		return
	}

	prospects, err := s.workbooks.ListProspectsByJob(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if prospects == nil {
		prospects = []types.Prospect{}
	}
	s.jsonResponse(w, http.StatusOK, prospects)
}

// handleSelectProspect toggles the pin flag of a prospect.
func (s *Server) handleSelectProspect(w http.ResponseWriter, r *http.Request) {
	workbookID, ok := s.workbookID(w, r)
	if !ok {
		return
	}
	applicantID, err := strconv.ParseInt(r.PathValue("applicant_id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid applicant ID format")
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.workbooks.SetProspectSelected(r.Context(), workbookID, applicantID, req.Selected); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Prospect not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"workbook_id":  workbookID.String(),
		"applicant_id": applicantID,
		"selecionado":  req.Selected,
	})
}

// handleProcessApplicant schedules CV processing for an applicant.
func (s *Server) handleProcessApplicant(w http.ResponseWriter, r *http.Request) {
	s.handleProcess(w, r, s.ingestor.ProcessApplicantAsync)
}

// handleProcessJob schedules semantic processing for a job.
func (s *Server) handleProcessJob(w http.ResponseWriter, r *http.Request) {
	s.handleProcess(w, r, s.ingestor.ProcessJobAsync)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request, schedule func(int64) error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	if err := schedule(id); err != nil {
		if errors.Is(err, ingestion.ErrAlreadyProcessing) {
			s.errorResponse(w, http.StatusConflict, "Already being processed")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Failed to schedule processing: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, ProcessResponse{ID: id, Status: "processing"})
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
