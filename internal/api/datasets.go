package api

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/todmy/crosstab/internal/auth"
	"github.com/todmy/crosstab/internal/contingency"
	"github.com/todmy/crosstab/internal/storage"
	"github.com/todmy/crosstab/pkg/models"
)

const maxUploadSize = 10 << 20 // 10 MB

// DatasetRequest represents a dataset creation request
type DatasetRequest struct {
	Name  string  `json:"name"`
	Cells [][]int `json:"cells"`
}

// handleListDatasets returns all datasets owned by the authenticated user
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	datasets, err := s.datasetRepo.GetByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch datasets")
		return
	}

	response := make([]models.Dataset, 0, len(datasets))
	for _, d := range datasets {
		response = append(response, datasetToModel(d))
	}

	respondJSON(w, http.StatusOK, response)
}

// handleCreateDataset stores a contingency table posted as JSON
func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	dataset, status, msg := s.storeDataset(r, userID, req.Name, req.Cells)
	if dataset == nil {
		respondError(w, status, msg)
		return
	}

	respondJSON(w, status, datasetToModel(dataset))
}

// handleImportDataset stores a contingency table uploaded as a CSV file of
// integer counts
func (s *Server) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Limit upload size
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if ext := filepath.Ext(header.Filename); ext != ".csv" {
		respondError(w, http.StatusBadRequest, "only .csv files are allowed")
		return
	}

	cells, err := parseCountsCSV(csv.NewReader(file))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSuffix(header.Filename, ".csv")
	dataset, status, msg := s.storeDataset(r, userID, name, cells)
	if dataset == nil {
		respondError(w, status, msg)
		return
	}

	respondJSON(w, status, datasetToModel(dataset))
}

// storeDataset validates and persists a table, deduplicating by content
// hash. A nil return carries the HTTP status and message to respond with.
func (s *Server) storeDataset(r *http.Request, userID uuid.UUID, name string, cells [][]int) (*storage.Dataset, int, string) {
	table, err := contingency.New(cells)
	if err != nil {
		return nil, http.StatusBadRequest, "cells must form a non-empty rectangular matrix"
	}
	if err := table.Validate(); err != nil {
		return nil, http.StatusBadRequest, "cells must be non-negative counts"
	}

	hash := hashCells(cells)
	existing, err := s.datasetRepo.GetByHash(r.Context(), userID, hash)
	if err != nil {
		return nil, http.StatusInternalServerError, "failed to check existing datasets"
	}
	if existing != nil {
		return existing, http.StatusOK, ""
	}

	dataset := &storage.Dataset{
		UserID:      userID,
		Name:        name,
		Rows:        table.Rows(),
		Cols:        table.Cols(),
		Cells:       cells,
		ContentHash: hash,
		Profile:     pgvector.NewVector(contingency.Profile(table)),
	}
	if err := s.datasetRepo.Create(r.Context(), dataset); err != nil {
		return nil, http.StatusInternalServerError, "failed to save dataset"
	}

	return dataset, http.StatusCreated, ""
}

// handleGetDataset returns a specific dataset
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := s.fetchOwnedDataset(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, datasetToModel(dataset))
}

// handleDeleteDataset deletes a dataset and its analyses
func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := s.fetchOwnedDataset(w, r)
	if !ok {
		return
	}

	// Removes the analysis history with it
	if err := s.datasetRepo.Delete(r.Context(), dataset.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete dataset")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleGetSimilarDatasets returns the user's datasets whose margin
// profiles are closest to this one
func (s *Server) handleGetSimilarDatasets(w http.ResponseWriter, r *http.Request) {
	dataset, ok := s.fetchOwnedDataset(w, r)
	if !ok {
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := s.datasetRepo.FindSimilar(r.Context(), dataset.UserID, dataset.Profile, limit+1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to search datasets")
		return
	}

	response := make([]models.SimilarDataset, 0, len(results))
	for _, res := range results {
		if res.Dataset.ID == dataset.ID {
			continue
		}
		if len(response) == limit {
			break
		}
		response = append(response, models.SimilarDataset{
			Dataset:  datasetToModel(res.Dataset),
			Distance: res.Distance,
		})
	}

	respondJSON(w, http.StatusOK, response)
}

// fetchOwnedDataset loads the dataset in the URL and verifies ownership,
// writing the error response itself when that fails
func (s *Server) fetchOwnedDataset(w http.ResponseWriter, r *http.Request) (*storage.Dataset, bool) {
	datasetID := chi.URLParam(r, "datasetID")
	if datasetID == "" {
		respondError(w, http.StatusBadRequest, "dataset id is required")
		return nil, false
	}

	did, err := uuid.Parse(datasetID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid dataset id")
		return nil, false
	}

	dataset, err := s.datasetRepo.GetByID(r.Context(), did)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch dataset")
		return nil, false
	}
	if dataset == nil {
		respondError(w, http.StatusNotFound, "dataset not found")
		return nil, false
	}

	if dataset.UserID != auth.UserIDFromContext(r.Context()) {
		respondError(w, http.StatusForbidden, "access denied")
		return nil, false
	}

	return dataset, true
}

// parseCountsCSV reads a CSV of integer counts into a cell matrix
func parseCountsCSV(reader *csv.Reader) ([][]int, error) {
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	cells := make([][]int, 0, len(records))
	for _, record := range records {
		row := make([]int, 0, len(record))
		for _, field := range record {
			v, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		cells = append(cells, row)
	}
	return cells, nil
}

// hashCells computes the content hash used for dataset deduplication
func hashCells(cells [][]int) string {
	encoded, _ := json.Marshal(cells)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// datasetToModel converts a storage dataset to its API representation
func datasetToModel(d *storage.Dataset) models.Dataset {
	return models.Dataset{
		ID:        d.ID.String(),
		Name:      d.Name,
		Rows:      d.Rows,
		Cols:      d.Cols,
		Cells:     d.Cells,
		Hash:      d.ContentHash,
		CreatedAt: d.CreatedAt,
	}
}
