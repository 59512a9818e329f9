package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Analysis represents a persisted test outcome for a dataset
type Analysis struct {
	ID               uuid.UUID
	DatasetID        uuid.UUID
	Method           string
	Alternative      string
	PValue           float64
	Statistic        sql.NullFloat64
	DF               sql.NullInt64
	OddsRatio        sql.NullFloat64
	SupplementPValue sql.NullFloat64
	Simulations      int
	Warnings         []string
	CreatedAt        time.Time
}

// AnalysisRepository defines the interface for analysis storage operations
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *Analysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error)
	GetByDatasetID(ctx context.Context, datasetID uuid.UUID) ([]*Analysis, error)
}

// PostgresAnalysisRepository implements AnalysisRepository using PostgreSQL
type PostgresAnalysisRepository struct {
	db *sql.DB
}

// NewPostgresAnalysisRepository creates a new PostgresAnalysisRepository
func NewPostgresAnalysisRepository(db *sql.DB) *PostgresAnalysisRepository {
	return &PostgresAnalysisRepository{db: db}
}

// Create inserts a new analysis record
func (r *PostgresAnalysisRepository) Create(ctx context.Context, analysis *Analysis) error {
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO analyses (id, dataset_id, method, alternative, p_value, statistic,
							  degrees_of_freedom, odds_ratio, supplement_p_value,
							  simulations, warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		analysis.ID,
		analysis.DatasetID,
		analysis.Method,
		analysis.Alternative,
		analysis.PValue,
		analysis.Statistic,
		analysis.DF,
		analysis.OddsRatio,
		analysis.SupplementPValue,
		analysis.Simulations,
		pq.Array(analysis.Warnings),
		analysis.CreatedAt,
	)

	return err
}

// GetByID retrieves an analysis by its ID
func (r *PostgresAnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	query := `
		SELECT id, dataset_id, method, alternative, p_value, statistic,
			   degrees_of_freedom, odds_ratio, supplement_p_value,
			   simulations, warnings, created_at
		FROM analyses
		WHERE id = $1
	`

	analysis := &Analysis{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&analysis.ID,
		&analysis.DatasetID,
		&analysis.Method,
		&analysis.Alternative,
		&analysis.PValue,
		&analysis.Statistic,
		&analysis.DF,
		&analysis.OddsRatio,
		&analysis.SupplementPValue,
		&analysis.Simulations,
		pq.Array(&analysis.Warnings),
		&analysis.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return analysis, nil
}

// GetByDatasetID retrieves all analyses for a dataset, newest first
func (r *PostgresAnalysisRepository) GetByDatasetID(ctx context.Context, datasetID uuid.UUID) ([]*Analysis, error) {
	query := `
		SELECT id, dataset_id, method, alternative, p_value, statistic,
			   degrees_of_freedom, odds_ratio, supplement_p_value,
			   simulations, warnings, created_at
		FROM analyses
		WHERE dataset_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*Analysis
	for rows.Next() {
		analysis := &Analysis{}
		err := rows.Scan(
			&analysis.ID,
			&analysis.DatasetID,
			&analysis.Method,
			&analysis.Alternative,
			&analysis.PValue,
			&analysis.Statistic,
			&analysis.DF,
			&analysis.OddsRatio,
			&analysis.SupplementPValue,
			&analysis.Simulations,
			pq.Array(&analysis.Warnings),
			&analysis.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return analyses, nil
}
