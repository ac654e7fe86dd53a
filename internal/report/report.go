// Package report defines the persisted assessment result document.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/anstrom/assessor/internal/severity"
)

// Vulnerability is a finding normalized for the result document.
type Vulnerability struct {
	Name          string         `json:"name"`
	Host          string         `json:"host"`
	Port          string         `json:"port"`
	Severity      float64        `json:"severity"`
	SeverityLevel severity.Level `json:"severity_level"`
	Description   string         `json:"description"`
	CVE           string         `json:"cve,omitempty"`
}

// Document is the result of one assessment run. It is written once and never
// modified.
type Document struct {
	Timestamp            time.Time             `json:"timestamp"`
	TaskID               string                `json:"task_id"`
	ReportID             string                `json:"report_id"`
	TotalVulnerabilities int                   `json:"total_vulnerabilities"`
	SeverityDistribution severity.Distribution `json:"severity_distribution"`
	Vulnerabilities      []Vulnerability       `json:"vulnerabilities"`
}

// SortBySeverity orders vulnerabilities by score, highest first. Equal scores
// keep their report order.
func SortBySeverity(vulns []Vulnerability) {
	sort.SliceStable(vulns, func(i, j int) bool {
		return vulns[i].Severity > vulns[j].Severity
	})
}

// New builds a document from vulnerabilities in report order. The slice is
// sorted in place; counts are derived from it.
func New(taskID, reportID string, ts time.Time, vulns []Vulnerability) *Document {
	if vulns == nil {
		vulns = []Vulnerability{}
	}

	doc := &Document{
		Timestamp:       ts,
		TaskID:          taskID,
		ReportID:        reportID,
		Vulnerabilities: vulns,
	}
	for i := range vulns {
		doc.SeverityDistribution.Add(vulns[i].SeverityLevel)
	}
	SortBySeverity(doc.Vulnerabilities)
	doc.TotalVulnerabilities = len(vulns)
	return doc
}

// Marshal returns the indented JSON form of the document.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Validate checks that the counts agree with the vulnerability list.
func (d *Document) Validate() error {
	if d.TotalVulnerabilities != len(d.Vulnerabilities) {
		return fmt.Errorf("total_vulnerabilities is %d but %d vulnerabilities are listed",
			d.TotalVulnerabilities, len(d.Vulnerabilities))
	}
	if total := d.SeverityDistribution.Total(); total != d.TotalVulnerabilities {
		return fmt.Errorf("severity_distribution sums to %d, expected %d", total, d.TotalVulnerabilities)
	}
	return nil
}

// LoadDocument reads a document written by a previous run.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied result path
	if err != nil {
		return nil, fmt.Errorf("failed to read result document: %w", err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument decodes a result document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse result document: %w", err)
	}
	return &doc, nil
}
