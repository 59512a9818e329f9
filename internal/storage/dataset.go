package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Dataset represents a stored contingency table
type Dataset struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Rows        int
	Cols        int
	Cells       [][]int
	ContentHash string
	Profile     pgvector.Vector
	CreatedAt   time.Time
}

// DatasetRepository defines the interface for dataset storage operations
type DatasetRepository interface {
	Create(ctx context.Context, dataset *Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dataset, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Dataset, error)
	GetByHash(ctx context.Context, userID uuid.UUID, hash string) (*Dataset, error)
	FindSimilar(ctx context.Context, userID uuid.UUID, profile pgvector.Vector, limit int) ([]*DatasetWithDistance, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DatasetWithDistance represents a dataset with its profile distance to a
// query table
type DatasetWithDistance struct {
	Dataset  *Dataset
	Distance float64
}

// PostgresDatasetRepository implements DatasetRepository using PostgreSQL
// with pgvector for profile similarity
type PostgresDatasetRepository struct {
	db *sql.DB
}

// NewPostgresDatasetRepository creates a new PostgresDatasetRepository
func NewPostgresDatasetRepository(db *sql.DB) *PostgresDatasetRepository {
	return &PostgresDatasetRepository{db: db}
}

// Create inserts a new dataset into the database
func (r *PostgresDatasetRepository) Create(ctx context.Context, dataset *Dataset) error {
	if dataset.ID == uuid.Nil {
		dataset.ID = uuid.New()
	}
	if dataset.CreatedAt.IsZero() {
		dataset.CreatedAt = time.Now()
	}

	cells, err := json.Marshal(dataset.Cells)
	if err != nil {
		return fmt.Errorf("failed to encode cells: %w", err)
	}

	query := `
		INSERT INTO datasets (id, user_id, name, rows, cols, cells, content_hash, profile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		dataset.ID,
		dataset.UserID,
		dataset.Name,
		dataset.Rows,
		dataset.Cols,
		cells,
		dataset.ContentHash,
		dataset.Profile,
		dataset.CreatedAt,
	)

	return err
}

// GetByID retrieves a dataset by its ID
func (r *PostgresDatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	query := `
		SELECT id, user_id, name, rows, cols, cells, content_hash, profile, created_at
		FROM datasets
		WHERE id = $1
	`

	dataset, err := scanDataset(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return dataset, nil
}

// GetByUserID retrieves all datasets owned by a user
func (r *PostgresDatasetRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Dataset, error) {
	query := `
		SELECT id, user_id, name, rows, cols, cells, content_hash, profile, created_at
		FROM datasets
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return datasets, nil
}

// GetByHash retrieves a dataset by content hash, used to deduplicate
// uploads of identical tables
func (r *PostgresDatasetRepository) GetByHash(ctx context.Context, userID uuid.UUID, hash string) (*Dataset, error) {
	query := `
		SELECT id, user_id, name, rows, cols, cells, content_hash, profile, created_at
		FROM datasets
		WHERE user_id = $1 AND content_hash = $2
	`

	dataset, err := scanDataset(r.db.QueryRowContext(ctx, query, userID, hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return dataset, nil
}

// FindSimilar returns the user's datasets nearest to the given profile
// vector by Euclidean distance
func (r *PostgresDatasetRepository) FindSimilar(ctx context.Context, userID uuid.UUID, profile pgvector.Vector, limit int) ([]*DatasetWithDistance, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, name, rows, cols, cells, content_hash, profile, created_at,
			   profile <-> $2 AS distance
		FROM datasets
		WHERE user_id = $1
		ORDER BY profile <-> $2
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, profile, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*DatasetWithDistance
	for rows.Next() {
		dataset := &Dataset{}
		var cells []byte
		var distance float64
		err := rows.Scan(
			&dataset.ID,
			&dataset.UserID,
			&dataset.Name,
			&dataset.Rows,
			&dataset.Cols,
			&cells,
			&dataset.ContentHash,
			&dataset.Profile,
			&dataset.CreatedAt,
			&distance,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(cells, &dataset.Cells); err != nil {
			return nil, fmt.Errorf("failed to decode cells: %w", err)
		}
		results = append(results, &DatasetWithDistance{
			Dataset:  dataset,
			Distance: distance,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Delete removes a dataset together with its analyses in one transaction
func (r *PostgresDatasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE dataset_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*Dataset, error) {
	dataset := &Dataset{}
	var cells []byte
	err := row.Scan(
		&dataset.ID,
		&dataset.UserID,
		&dataset.Name,
		&dataset.Rows,
		&dataset.Cols,
		&cells,
		&dataset.ContentHash,
		&dataset.Profile,
		&dataset.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cells, &dataset.Cells); err != nil {
		return nil, fmt.Errorf("failed to decode cells: %w", err)
	}
	return dataset, nil
}
