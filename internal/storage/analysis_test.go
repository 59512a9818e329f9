package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestPostgresAnalysisRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresAnalysisRepository(db)

	analysis := &Analysis{
		DatasetID:   uuid.New(),
		Method:      "fisher_exact",
		Alternative: "two",
		PValue:      0.4857,
		OddsRatio:   sql.NullFloat64{Float64: 9, Valid: true},
		Warnings:    []string{"removed 1 zero row(s) and 0 zero column(s) before testing"},
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(sqlmock.AnyArg(), analysis.DatasetID, analysis.Method, analysis.Alternative,
			analysis.PValue, analysis.Statistic, analysis.DF, analysis.OddsRatio,
			analysis.SupplementPValue, analysis.Simulations, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if analysis.ID == uuid.Nil {
		t.Error("expected analysis ID to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresAnalysisRepository_GetByDatasetID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresAnalysisRepository(db)

	datasetID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "dataset_id", "method", "alternative", "p_value",
		"statistic", "degrees_of_freedom", "odds_ratio", "supplement_p_value",
		"simulations", "warnings", "created_at"}).
		AddRow(uuid.New(), datasetID, "chi_square", "two", 0.0098,
			6.667, int64(1), nil, nil, 0, "{}", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM analyses").
		WithArgs(datasetID).
		WillReturnRows(rows)

	analyses, err := repo.GetByDatasetID(context.Background(), datasetID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(analyses) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(analyses))
	}
	if analyses[0].Method != "chi_square" {
		t.Errorf("expected method chi_square, got %s", analyses[0].Method)
	}
	if !analyses[0].Statistic.Valid || analyses[0].Statistic.Float64 != 6.667 {
		t.Errorf("statistic not scanned correctly: %+v", analyses[0].Statistic)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
