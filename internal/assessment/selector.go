package assessment

import (
	"context"
	"strings"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/gmp"
	"github.com/anstrom/assessor/internal/logging"
)

// Selector picks the scan configuration and scanner for a run.
type Selector struct {
	client      gmp.Client
	marker      string
	scannerType string
	logger      *logging.Logger
}

// NewSelector creates a selector. Configurations whose name contains marker
// (case-insensitive) and scanners of scannerType are preferred.
func NewSelector(client gmp.Client, marker, scannerType string, logger *logging.Logger) *Selector {
	return &Selector{
		client:      client,
		marker:      strings.ToLower(strings.TrimSpace(marker)),
		scannerType: strings.TrimSpace(scannerType),
		logger:      componentLogger(logger, "selector"),
	}
}

// SelectConfig returns the preferred scan configuration, else the first one.
func (s *Selector) SelectConfig(ctx context.Context) (string, error) {
	configs, err := s.client.ScanConfigs(ctx)
	if err != nil {
		return "", Staged(err, StageSelect)
	}
	if len(configs) == 0 {
		return "", errors.ErrNoConfigsAvailable().WithStage(StageSelect)
	}

	chosen := configs[0]
	if s.marker != "" {
		for _, c := range configs {
			if strings.Contains(strings.ToLower(c.Name), s.marker) {
				chosen = c
				break
			}
		}
	}

	s.logger.Info("Using scan config", "name", chosen.Name, "config_id", chosen.ID, "available", len(configs))
	return chosen.ID, nil
}

// SelectScanner returns the first scanner of the preferred type, else the first one.
func (s *Selector) SelectScanner(ctx context.Context) (string, error) {
	scanners, err := s.client.Scanners(ctx)
	if err != nil {
		return "", Staged(err, StageSelect)
	}
	if len(scanners) == 0 {
		return "", errors.ErrNoScannersAvailable().WithStage(StageSelect)
	}

	chosen := scanners[0]
	for _, sc := range scanners {
		if sc.Type == s.scannerType {
			chosen = sc
			break
		}
	}

	s.logger.Info("Using scanner", "name", chosen.Name, "scanner_id", chosen.ID, "type", chosen.Type)
	return chosen.ID, nil
}
