// Package store persists discovery results and vulnerability documents.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/anstrom/assessor/internal/discovery"
	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
	"github.com/anstrom/assessor/internal/report"
)

const (
	// TimestampLayout is the suffix format of result file names.
	TimestampLayout = "20060102_150405"

	dirPerm  = 0750
	filePerm = 0600

	discoveryPrefix = "nmap_"
	documentPrefix  = "openvas_"
)

// DocumentSaver persists a result document and returns where it went.
type DocumentSaver interface {
	SaveDocument(ctx context.Context, target string, doc *report.Document) (string, error)
}

// FileStore writes indented JSON files into a results directory.
type FileStore struct {
	dir    string
	logger *logging.Logger
}

// NewFileStore creates the results directory if needed.
func NewFileStore(dir string, logger *logging.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.WrapAssessmentError(errors.CodeDirectoryCreate, "failed to create results directory", err).
			WithContext("dir", dir)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FileStore{dir: dir, logger: logger.WithComponent("store")}, nil
}

// Dir returns the results directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// SaveDiscovery writes nmap_<timestamp>.json.
func (s *FileStore) SaveDiscovery(result *discovery.Result) (string, error) {
	if result == nil {
		return "", errors.NewAssessmentError(errors.CodeValidation, "cannot save nil discovery result")
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", errors.WrapAssessmentError(errors.CodeFileWrite, "failed to encode discovery result", err)
	}
	return s.write(discoveryPrefix, result.Timestamp, data)
}

// SaveDocument writes openvas_<timestamp>.json. The target is not part of
// the file.
func (s *FileStore) SaveDocument(_ context.Context, _ string, doc *report.Document) (string, error) {
	if doc == nil {
		return "", errors.NewAssessmentError(errors.CodeValidation, "cannot save nil document")
	}
	data, err := doc.Marshal()
	if err != nil {
		return "", errors.WrapAssessmentError(errors.CodeFileWrite, "failed to encode document", err)
	}
	return s.write(documentPrefix, doc.Timestamp, data)
}

func (s *FileStore) write(prefix string, ts time.Time, data []byte) (string, error) {
	if ts.IsZero() {
		ts = time.Now()
	}
	path := filepath.Join(s.dir, prefix+ts.Format(TimestampLayout)+".json")
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return "", errors.WrapAssessmentError(errors.CodeFileWrite, "failed to write result file", err).
			WithContext("path", path)
	}
	s.logger.Info("Results saved", "path", path, "bytes", len(data))
	return path, nil
}
