package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/anstrom/assessor/internal/db"
	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
	"github.com/anstrom/assessor/internal/report"
)

// DBStore inserts result documents into the assessment_results table.
type DBStore struct {
	repo   *db.ResultRepository
	logger *logging.Logger
}

// NewDBStore creates a database-backed document store.
func NewDBStore(repo *db.ResultRepository, logger *logging.Logger) *DBStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &DBStore{repo: repo, logger: logger.WithComponent("store")}
}

// SaveDocument inserts the document and returns the row ID.
func (s *DBStore) SaveDocument(ctx context.Context, target string, doc *report.Document) (string, error) {
	if doc == nil {
		return "", errors.NewAssessmentError(errors.CodeValidation, "cannot save nil document")
	}

	body, err := doc.Marshal()
	if err != nil {
		return "", errors.WrapAssessmentError(errors.CodeDatabaseQuery, "failed to encode document", err)
	}
	dist, err := json.Marshal(doc.SeverityDistribution)
	if err != nil {
		return "", errors.WrapAssessmentError(errors.CodeDatabaseQuery, "failed to encode distribution", err)
	}

	row := &db.AssessmentResult{
		TaskID:               doc.TaskID,
		ReportID:             doc.ReportID,
		Target:               target,
		TotalVulnerabilities: doc.TotalVulnerabilities,
		Distribution:         db.JSONB(dist),
		Document:             db.JSONB(body),
		CreatedAt:            doc.Timestamp.UTC(),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return "", err
	}

	s.logger.Info("Results stored", "id", row.ID, "task_id", doc.TaskID, "total", doc.TotalVulnerabilities)
	return row.ID.String(), nil
}

// LoadDocument returns the stored document with the given row ID.
func (s *DBStore) LoadDocument(ctx context.Context, id string) (*report.Document, error) {
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.WrapAssessmentError(errors.CodeValidation, "invalid result id "+id, err)
	}

	row, err := s.repo.GetByID(ctx, rowID)
	if err != nil {
		return nil, err
	}
	doc, err := report.ParseDocument(row.Document)
	if err != nil {
		return nil, errors.WrapAssessmentError(errors.CodeDatabaseQuery, "stored document is corrupt", err).
			WithContext("id", id)
	}
	return doc, nil
}

// Recent returns up to limit stored results, newest first.
func (s *DBStore) Recent(ctx context.Context, limit int) ([]*db.AssessmentResult, error) {
	if limit <= 0 {
		return nil, errors.NewAssessmentError(errors.CodeValidation, "limit must be positive")
	}
	return s.repo.ListRecent(ctx, limit)
}
