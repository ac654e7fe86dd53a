package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/severity"
)

const (
	// Namespace for all assessor metrics
	namespace = "assessor"

	textfileDirPerm = 0750
)

// Prometheus holds the Prometheus collectors of one process.
type Prometheus struct {
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	findingsTotal *prometheus.CounterVec
	taskPolls     prometheus.Counter
	taskProgress  prometheus.Gauge

	textfile string
	mu       sync.Mutex
	registry *prometheus.Registry
}

// NewPrometheus creates the collectors. When textfile is non-empty Flush
// writes the registry there.
func NewPrometheus(textfile string) *Prometheus {
	registry := prometheus.NewRegistry()

	pm := &Prometheus{
		textfile: textfile,
		registry: registry,
	}
	pm.initMetrics()

	registry.MustRegister(
		pm.runsTotal,
		pm.stageDuration,
		pm.findingsTotal,
		pm.taskPolls,
		pm.taskProgress,
	)
	registry.MustRegister(collectors.NewGoCollector())

	return pm
}

func (pm *Prometheus) initMetrics() {
	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of assessment runs by status",
		},
		[]string{"status"},
	)

	// Tasks routinely run for tens of minutes.
	pm.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of assessment pipeline stages in seconds",
			Buckets:   []float64{0.1, 1.0, 5.0, 30.0, 60.0, 300.0, 900.0, 1800.0, 3600.0, 7200.0},
		},
		[]string{"stage"},
	)

	pm.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Total number of vulnerability findings by severity level",
		},
		[]string{"severity"},
	)

	pm.taskPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_polls_total",
			Help:      "Total number of task status queries",
		},
	)

	pm.taskProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_progress_percent",
			Help:      "Progress of the task being awaited",
		},
	)
}

// Registry returns the underlying registry.
func (pm *Prometheus) Registry() *prometheus.Registry {
	return pm.registry
}

// RecordRun increments the run counter
func (pm *Prometheus) RecordRun(status string) {
	pm.runsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records a stage duration
func (pm *Prometheus) ObserveStage(stage string, d time.Duration) {
	pm.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddFindings adds a result document's distribution to the findings counter.
func (pm *Prometheus) AddFindings(dist severity.Distribution) {
	for _, level := range severity.Levels {
		pm.findingsTotal.WithLabelValues(string(level)).Add(float64(dist.Count(level)))
	}
}

// ObservePoll counts a status query and tracks the reported progress.
func (pm *Prometheus) ObservePoll(_ string, progress int) {
	pm.taskPolls.Inc()
	pm.taskProgress.Set(float64(progress))
}

// Flush writes the registry in text exposition format. The write is atomic,
// so a collector never reads a half-written file.
func (pm *Prometheus) Flush() error {
	if pm.textfile == "" {
		return nil
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(pm.textfile), textfileDirPerm); err != nil {
		return errors.WrapAssessmentError(errors.CodeDirectoryCreate, "failed to create metrics directory", err)
	}
	if err := prometheus.WriteToTextfile(pm.textfile, pm.registry); err != nil {
		return errors.WrapAssessmentError(errors.CodeFileWrite, "failed to write metrics textfile", err).
			WithContext("path", pm.textfile)
	}
	return nil
}
