package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/todmy/crosstab/internal/contingency"
	"github.com/todmy/crosstab/internal/selector"
	"github.com/todmy/crosstab/internal/storage"
	"github.com/todmy/crosstab/pkg/models"
)

// AnalyzeRequest represents the parameters of an analysis run
type AnalyzeRequest struct {
	Simulations int    `json:"simulations"`
	Alternative string `json:"alternative"`
}

// TableAnalyzeRequest represents an ad-hoc analysis of a posted table
type TableAnalyzeRequest struct {
	Cells       [][]int `json:"cells"`
	Simulations int     `json:"simulations"`
	Alternative string  `json:"alternative"`
}

// handleAnalyzeDataset runs the test selector on a stored dataset and
// persists the outcome
func (s *Server) handleAnalyzeDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := s.fetchOwnedDataset(w, r)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, status, msg := s.runAnalysis(req.Simulations, req.Alternative, dataset.Cells)
	if outcome == nil {
		respondError(w, status, msg)
		return
	}

	record := outcomeToRecord(dataset, outcome)
	if err := s.analysisRepo.Create(r.Context(), record); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save analysis")
		return
	}

	respondJSON(w, http.StatusCreated, analysisToModel(record))
}

// handleListAnalyses returns all stored analyses for a dataset
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	dataset, ok := s.fetchOwnedDataset(w, r)
	if !ok {
		return
	}

	analyses, err := s.analysisRepo.GetByDatasetID(r.Context(), dataset.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch analyses")
		return
	}

	response := make([]models.Analysis, 0, len(analyses))
	for _, a := range analyses {
		response = append(response, analysisToModel(a))
	}

	respondJSON(w, http.StatusOK, response)
}

// handleAnalyzeTable analyses a table posted in the request body without
// storing anything
func (s *Server) handleAnalyzeTable(w http.ResponseWriter, r *http.Request) {
	var req TableAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, status, msg := s.runAnalysis(req.Simulations, req.Alternative, req.Cells)
	if outcome == nil {
		respondError(w, status, msg)
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}

// runAnalysis parses parameters, runs the selector and maps failures to
// HTTP statuses. A nil outcome carries the status and message to respond
// with.
func (s *Server) runAnalysis(simulations int, alternative string, cells [][]int) (*selector.Outcome, int, string) {
	table, err := contingency.New(cells)
	if err != nil {
		return nil, http.StatusBadRequest, "cells must form a non-empty rectangular matrix"
	}

	alt, err := contingency.ParseAlternative(alternative)
	if err != nil {
		return nil, http.StatusBadRequest, err.Error()
	}

	outcome, err := s.selector.Analyze(table, simulations, alt)
	if err != nil {
		switch {
		case errors.Is(err, contingency.ErrNegativeEntry),
			errors.Is(err, contingency.ErrEmptyTable),
			errors.Is(err, contingency.ErrInvalidAlternative):
			return nil, http.StatusBadRequest, err.Error()
		default:
			return nil, http.StatusInternalServerError, "analysis failed"
		}
	}

	return outcome, http.StatusOK, ""
}

// outcomeToRecord converts a selector outcome into its storage row
func outcomeToRecord(dataset *storage.Dataset, outcome *selector.Outcome) *storage.Analysis {
	record := &storage.Analysis{
		DatasetID:   dataset.ID,
		Method:      string(outcome.Method),
		Alternative: string(outcome.Alternative),
		PValue:      outcome.PValue,
		Simulations: outcome.Simulations,
		Warnings:    outcome.Warnings,
	}

	if outcome.DF > 0 {
		record.Statistic = sql.NullFloat64{Float64: outcome.Statistic, Valid: true}
		record.DF = sql.NullInt64{Int64: int64(outcome.DF), Valid: true}
	}
	if outcome.Method == selector.MethodExactFisher {
		record.OddsRatio = sql.NullFloat64{Float64: outcome.OddsRatio, Valid: true}
	}
	if outcome.Supplement != nil {
		record.SupplementPValue = sql.NullFloat64{Float64: outcome.Supplement.PValue, Valid: true}
		if outcome.Supplement.Simulations > 0 {
			record.Simulations = outcome.Supplement.Simulations
		}
	}

	return record
}

// analysisToModel converts a storage analysis to its API representation
func analysisToModel(a *storage.Analysis) models.Analysis {
	result := models.Analysis{
		ID:          a.ID.String(),
		DatasetID:   a.DatasetID.String(),
		Method:      a.Method,
		Alternative: a.Alternative,
		PValue:      a.PValue,
		Simulations: a.Simulations,
		Warnings:    a.Warnings,
		CreatedAt:   a.CreatedAt,
	}

	if a.Statistic.Valid {
		v := a.Statistic.Float64
		result.Statistic = &v
	}
	if a.DF.Valid {
		v := int(a.DF.Int64)
		result.DF = &v
	}
	if a.OddsRatio.Valid {
		v := a.OddsRatio.Float64
		result.OddsRatio = &v
	}
	if a.SupplementPValue.Valid {
		v := a.SupplementPValue.Float64
		result.SupplementPValue = &v
	}

	return result
}
