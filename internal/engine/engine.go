// Package engine runs a complete assessment: discovery, then a vulnerability
// scan on the GMP service, then persistence of the classified result document.
// Stages run in strict order and the first failure aborts the run.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/assessor/internal/assessment"
	"github.com/anstrom/assessor/internal/config"
	"github.com/anstrom/assessor/internal/discovery"
	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/gmp"
	"github.com/anstrom/assessor/internal/logging"
	"github.com/anstrom/assessor/internal/metrics"
	"github.com/anstrom/assessor/internal/report"
	"github.com/anstrom/assessor/internal/resolve"
	"github.com/anstrom/assessor/internal/store"
)

// TaskNameLayout formats the task name suffix, scan_YYYYMMDD_HHMMSS.
const TaskNameLayout = "20060102_150405"

// Only one run may drive the GMP service from this process at a time:
// target resolution is find-then-create.
var runMu sync.Mutex

// Discoverer runs the discovery stage.
type Discoverer interface {
	Scan(ctx context.Context, target string) (*discovery.Result, error)
}

// HostResolver turns a hostname into addresses when discovery is unavailable.
type HostResolver interface {
	Resolve(ctx context.Context, target string) ([]string, error)
}

// DiscoverySaver persists discovery output.
type DiscoverySaver interface {
	SaveDiscovery(result *discovery.Result) (string, error)
}

// SessionOpener opens an authenticated GMP session.
type SessionOpener func(ctx context.Context, cfg config.GVMConfig) (gmp.Client, error)

// Deps are the engine's collaborators. Nil fields get production defaults
// built from the configuration.
type Deps struct {
	Discoverer  Discoverer
	Resolver    HostResolver
	Open        SessionOpener
	Discoveries DiscoverySaver
	Documents   []store.DocumentSaver
	Metrics     metrics.Recorder
	Logger      *logging.Logger
	Now         func() time.Time
}

// Outcome describes a finished run. On failure it holds whatever the
// completed stages produced.
type Outcome struct {
	RunID         string
	Target        string
	Discovery     *discovery.Result
	DiscoveryFile string
	Hosts         []string
	TargetID      string
	TaskID        string
	ReportID      string
	Document      *report.Document
	Saved         []string
}

// Engine composes the assessment stages.
type Engine struct {
	cfg  *config.Config
	deps Deps
}

// New creates an engine.
func New(cfg *config.Config, deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Discoverer == nil {
		deps.Discoverer = discovery.NewScanner(
			discovery.WithServiceDetection(cfg.Discovery.ServiceDetection),
			discovery.WithDefaultScripts(cfg.Discovery.DefaultScripts),
			discovery.WithPorts(cfg.Discovery.Ports),
			discovery.WithTimeout(cfg.Discovery.Timeout),
			discovery.WithLogger(deps.Logger.WithComponent("discovery")),
			discovery.WithClock(deps.Now),
		)
	}
	if deps.Resolver == nil {
		deps.Resolver = resolve.New(cfg.DNS.Server, cfg.DNS.Timeout)
	}
	if deps.Open == nil {
		deps.Open = OpenSession
	}
	return &Engine{cfg: cfg, deps: deps}
}

// OpenSession is the default SessionOpener.
func OpenSession(ctx context.Context, cfg config.GVMConfig) (gmp.Client, error) {
	session, err := gmp.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Run assesses target. A concurrent call fails with RUN_IN_PROGRESS.
func (e *Engine) Run(ctx context.Context, target string) (*Outcome, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.NewAssessmentError(errors.CodeValidation, "target is required")
	}
	if !runMu.TryLock() {
		return nil, errors.NewAssessmentError(errors.CodeRunInProgress, "an assessment run is already in progress").
			WithContext("target", target)
	}
	defer runMu.Unlock()

	out := &Outcome{RunID: uuid.NewString(), Target: target}
	logger := e.deps.Logger.WithComponent("engine").WithRunID(out.RunID).WithTarget(target)
	started := e.deps.Now()
	logger.Info("Starting assessment")

	err := e.run(ctx, logger, started, out)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
		logger.ErrorStage("Assessment failed", errors.StageOf(err), err, "code", errors.GetCode(err))
	} else {
		logger.Info("Assessment complete",
			"task_id", out.TaskID,
			"total", out.Document.TotalVulnerabilities,
			"duration", e.deps.Now().Sub(started).String())
	}
	e.deps.Metrics.RecordRun(status)
	if ferr := e.deps.Metrics.Flush(); ferr != nil {
		logger.Warn("Failed to write metrics", "error", ferr)
	}
	return out, err
}

func (e *Engine) run(ctx context.Context, logger *logging.Logger, started time.Time, out *Outcome) error {
	out.Hosts = e.discover(ctx, logger, out)

	var client gmp.Client
	if err := e.stage(logger, assessment.StageConnect, func() error {
		var err error
		client, err = e.deps.Open(ctx, e.cfg.GVM)
		return err
	}); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close GMP session", "error", err)
		}
	}()

	resolver := assessment.NewTargetResolver(client, e.deps.Logger)
	selector := assessment.NewSelector(client, e.cfg.Assessment.ConfigMarker, e.cfg.Assessment.ScannerType, e.deps.Logger)
	lifecycle := assessment.NewLifecycle(client, e.cfg.Assessment.PollInterval, e.deps.Logger,
		assessment.WithPollTimeout(e.cfg.Assessment.PollTimeout),
		assessment.WithPollObserver(e.deps.Metrics))
	aggregator := assessment.NewAggregator(client, e.cfg.Assessment.StrictFindings, e.deps.Logger,
		assessment.WithAggregatorClock(e.deps.Now))

	if err := e.stage(logger, assessment.StageResolve, func() error {
		var err error
		out.TargetID, err = resolver.ResolveOrCreate(ctx, out.Hosts)
		return err
	}); err != nil {
		return err
	}

	var configID, scannerID string
	if err := e.stage(logger, assessment.StageSelect, func() error {
		var err error
		if configID, err = selector.SelectConfig(ctx); err != nil {
			return err
		}
		scannerID, err = selector.SelectScanner(ctx)
		return err
	}); err != nil {
		return err
	}

	if err := e.stage(logger, assessment.StageTask, func() error {
		var err error
		out.TaskID, err = lifecycle.CreateTask(ctx, gmp.CreateTaskRequest{
			Name:      "scan_" + started.Format(TaskNameLayout),
			ConfigID:  configID,
			TargetID:  out.TargetID,
			ScannerID: scannerID,
		})
		if err != nil {
			return err
		}
		out.ReportID, err = lifecycle.StartTask(ctx, out.TaskID)
		return err
	}); err != nil {
		return err
	}

	if err := e.stage(logger, assessment.StagePoll, func() error {
		return lifecycle.AwaitCompletion(ctx, out.TaskID)
	}); err != nil {
		return err
	}

	if err := e.stage(logger, assessment.StageCollect, func() error {
		doc, err := aggregator.Collect(ctx, out.TaskID, out.ReportID)
		out.Document = doc
		return err
	}); err != nil {
		return err
	}
	out.ReportID = out.Document.ReportID
	e.deps.Metrics.AddFindings(out.Document.SeverityDistribution)

	return e.stage(logger, assessment.StagePersist, func() error {
		name := assessment.TargetName(firstOr(assessment.ValidHosts(out.Hosts), out.Target))
		for _, s := range e.deps.Documents {
			where, err := s.SaveDocument(ctx, name, out.Document)
			if err != nil {
				return err
			}
			out.Saved = append(out.Saved, where)
		}
		return nil
	})
}

// discover runs the discovery stage and returns the hosts to assess. A
// discovery failure falls back to the caller's target, resolved through DNS
// when it is a hostname.
func (e *Engine) discover(ctx context.Context, logger *logging.Logger, out *Outcome) []string {
	var result *discovery.Result
	err := e.stage(logger, assessment.StageDiscovery, func() error {
		var err error
		result, err = e.deps.Discoverer.Scan(ctx, out.Target)
		return err
	})
	if err == nil {
		out.Discovery = result
		if e.deps.Discoveries != nil {
			path, serr := e.deps.Discoveries.SaveDiscovery(result)
			if serr != nil {
				logger.Warn("Failed to save discovery results", "error", serr)
			} else {
				out.DiscoveryFile = path
			}
		}
		alive := result.AliveHosts()
		logger.Info("Discovery complete", "alive", len(alive), "services", result.ServiceCount())
		return alive
	}

	logger.Warn("Discovery failed, continuing with the requested target", "error", err)
	addrs, rerr := e.deps.Resolver.Resolve(ctx, out.Target)
	if rerr != nil {
		logger.Warn("Target resolution failed", "error", rerr)
		return []string{out.Target}
	}
	return addrs
}

// stage runs fn, records its duration and tags its error with the stage.
func (e *Engine) stage(logger *logging.Logger, name string, fn func() error) error {
	start := e.deps.Now()
	err := fn()
	elapsed := e.deps.Now().Sub(start)
	e.deps.Metrics.ObserveStage(name, elapsed)
	if err == nil {
		logger.InfoStage("Stage complete", name, "duration", elapsed.String())
	}
	return assessment.Staged(err, name)
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
