package assessment

import (
	"context"
	"strings"
	"time"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/gmp"
	"github.com/anstrom/assessor/internal/logging"
	"github.com/anstrom/assessor/internal/report"
	"github.com/anstrom/assessor/internal/severity"
)

// Aggregator turns a finished task's report into a result document.
type Aggregator struct {
	client gmp.Client
	strict bool
	logger *logging.Logger
	now    func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorClock sets the clock used for the document timestamp.
func WithAggregatorClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator creates an aggregator. In strict mode a finding with a missing
// name, host or port fails aggregation; otherwise it is recorded with the
// field left empty.
func NewAggregator(client gmp.Client, strict bool, logger *logging.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		client: client,
		strict: strict,
		logger: componentLogger(logger, "aggregator"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect fetches the task's report with details and builds the document.
// fallbackReportID, the report created by start_task, is used when the task
// does not reference a report.
func (a *Aggregator) Collect(ctx context.Context, taskID, fallbackReportID string) (*report.Document, error) {
	task, err := a.client.Task(ctx, taskID)
	if err != nil {
		return nil, Staged(err, StageCollect)
	}

	reportID := task.ReportID()
	if reportID == "" {
		reportID = fallbackReportID
	}
	if reportID == "" {
		err := errors.NewAssessmentError(errors.CodeResourceNotFound, "task has no report").
			WithStage(StageCollect).
			WithContext("task_id", taskID)
		err.Resource = errors.ResourceReport
		return nil, err
	}

	logger := a.logger.WithFields("task_id", taskID, "report_id", reportID)
	logger.Info("Retrieving scan results")

	rep, err := a.client.Report(ctx, reportID, true)
	if err != nil {
		return nil, Staged(err, StageCollect)
	}

	vulns := make([]report.Vulnerability, 0, len(rep.Findings))
	partial := 0
	for i := range rep.Findings {
		f := &rep.Findings[i]
		if len(f.Missing) > 0 {
			if a.strict {
				return nil, errors.NewAssessmentError(errors.CodePartialFindingData,
					"finding is missing "+strings.Join(f.Missing, ", ")).
					WithStage(StageCollect).
					WithContext("index", i).
					WithContext("report_id", reportID)
			}
			partial++
			logger.Warn("Finding has missing fields", "index", i, "missing", f.Missing, "name", f.Name)
		}
		vulns = append(vulns, toVulnerability(f))
	}

	doc := report.New(taskID, reportID, a.now(), vulns)
	logger.Info("Retrieved vulnerabilities",
		"total", doc.TotalVulnerabilities,
		"critical", doc.SeverityDistribution.Critical,
		"high", doc.SeverityDistribution.High,
		"partial", partial)
	return doc, nil
}

func toVulnerability(f *gmp.Finding) report.Vulnerability {
	return report.Vulnerability{
		Name:          f.Name,
		Host:          f.Host,
		Port:          f.Port,
		Severity:      f.Severity,
		SeverityLevel: severity.Classify(f.Severity),
		Description:   f.Description,
		CVE:           f.CVE,
	}
}
