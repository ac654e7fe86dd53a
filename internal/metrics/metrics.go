// Package metrics records assessment run metrics. Runs are short-lived, so the
// registry is exported as a Prometheus textfile for node-exporter instead of
// being scraped over HTTP.
package metrics

import (
	"time"

	"github.com/anstrom/assessor/internal/severity"
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder is the metrics surface used by the engine.
type Recorder interface {
	// RecordRun counts a finished run by status.
	RecordRun(status string)

	// ObserveStage records how long a pipeline stage took.
	ObserveStage(stage string, d time.Duration)

	// AddFindings counts findings per severity level.
	AddFindings(dist severity.Distribution)

	// ObservePoll records one task status query.
	ObservePoll(status string, progress int)

	// Flush writes the collected metrics out, if configured to.
	Flush() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRun(string)                   {}
func (Nop) ObserveStage(string, time.Duration) {}
func (Nop) AddFindings(severity.Distribution)  {}
func (Nop) ObservePoll(string, int)            {}
func (Nop) Flush() error                       { return nil }

var (
	_ Recorder = Nop{}
	_ Recorder = (*Prometheus)(nil)
)
