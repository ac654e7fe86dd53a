package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB wraps json.RawMessage for PostgreSQL JSONB type.
type JSONB json.RawMessage

// Scan implements sql.Scanner for PostgreSQL JSONB type.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = JSONB(append([]byte(nil), v...))
		return nil
	case string:
		*j = JSONB([]byte(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}
}

// Value implements driver.Valuer for PostgreSQL JSONB type.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// String returns the JSON string.
func (j JSONB) String() string {
	return string(j)
}

// MarshalJSON implements json.Marshaler.
func (j JSONB) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

// AssessmentResult is one persisted result document.
type AssessmentResult struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	TaskID               string    `db:"task_id" json:"task_id"`
	ReportID             string    `db:"report_id" json:"report_id"`
	Target               string    `db:"target" json:"target"`
	TotalVulnerabilities int       `db:"total_vulnerabilities" json:"total_vulnerabilities"`
	Distribution         JSONB     `db:"severity_distribution" json:"severity_distribution"`
	Document             JSONB     `db:"document" json:"document"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}
