// Package assessment implements the stages of a vulnerability assessment
// against a GMP service: target resolution, resource selection, the task
// lifecycle and result aggregation. Each stage returns an explicit error and
// never retries.
package assessment

import (
	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
)

// Pipeline stage names, used in errors, logs and metrics.
const (
	StageDiscovery = "discovery"
	StageConnect   = "connect"
	StageResolve   = "resolve"
	StageSelect    = "select"
	StageTask      = "task"
	StagePoll      = "poll"
	StageCollect   = "collect"
	StagePersist   = "persist"
)

func componentLogger(logger *logging.Logger, component string) *logging.Logger {
	if logger == nil {
		logger = logging.Default()
	}
	return logger.WithComponent(component)
}

// Staged tags err with stage unless it already carries one.
func Staged(err error, stage string) error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*errors.AssessmentError); ok {
		if ae.Stage == "" {
			ae.Stage = stage
		}
		return ae
	}
	return errors.WrapAssessmentError(errors.GetCode(err), stage+" failed", err).WithStage(stage)
}
