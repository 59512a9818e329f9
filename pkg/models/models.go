package models

import (
	"time"
)

// Dataset represents a stored contingency table
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Cells     [][]int   `json:"cells"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis represents a persisted test outcome
type Analysis struct {
	ID               string    `json:"id"`
	DatasetID        string    `json:"dataset_id"`
	Method           string    `json:"method"`
	Alternative      string    `json:"alternative"`
	PValue           float64   `json:"p_value"`
	Statistic        *float64  `json:"statistic,omitempty"`
	DF               *int      `json:"degrees_of_freedom,omitempty"`
	OddsRatio        *float64  `json:"odds_ratio,omitempty"`
	SupplementPValue *float64  `json:"supplement_p_value,omitempty"`
	Simulations      int       `json:"simulations,omitempty"`
	Warnings         []string  `json:"warnings,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// SimilarDataset represents a dataset together with its profile distance
// to a query table
type SimilarDataset struct {
	Dataset  Dataset `json:"dataset"`
	Distance float64 `json:"distance"`
}
