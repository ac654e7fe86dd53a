package assessment

import (
	"context"
	"net/netip"
	"strings"
	"sync"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/gmp"
	"github.com/anstrom/assessor/internal/logging"
)

// TargetResolver finds or creates the scan target for a set of alive hosts.
type TargetResolver struct {
	client gmp.Client
	logger *logging.Logger

	// find-then-create is not atomic on the service side
	mu sync.Mutex
}

// NewTargetResolver creates a resolver.
func NewTargetResolver(client gmp.Client, logger *logging.Logger) *TargetResolver {
	return &TargetResolver{
		client: client,
		logger: componentLogger(logger, "resolver"),
	}
}

// TargetName derives the target name from a host: every character other than
// letters, digits and underscore becomes '-'.
func TargetName(host string) string {
	var b strings.Builder
	b.WriteString("Target-")
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ValidHosts returns the hosts that parse as IP addresses, in input order.
func ValidHosts(hosts []string) []string {
	valid := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if addr, err := netip.ParseAddr(h); err == nil {
			valid = append(valid, addr.String())
		}
	}
	return valid
}

// ResolveOrCreate returns the ID of the target named after the first valid
// host, creating it with the "Consider Alive" test when it does not exist.
func (r *TargetResolver) ResolveOrCreate(ctx context.Context, aliveHosts []string) (string, error) {
	valid := ValidHosts(aliveHosts)
	if len(valid) == 0 {
		return "", errors.ErrNoValidHosts(len(aliveHosts)).WithStage(StageResolve)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := TargetName(valid[0])
	logger := r.logger.WithFields("target_name", name)

	targets, err := r.client.Targets(ctx)
	if err != nil {
		return "", Staged(err, StageResolve)
	}
	for _, t := range targets {
		if t.Name == name {
			logger.Info("Existing target found", "target_id", t.ID)
			return t.ID, nil
		}
	}

	portLists, err := r.client.PortLists(ctx)
	if err != nil {
		return "", Staged(err, StageResolve)
	}
	if len(portLists) == 0 {
		return "", errors.ErrNoPortListAvailable().WithStage(StageResolve)
	}

	resp, err := r.client.CreateTarget(ctx, gmp.CreateTargetRequest{
		Name:       name,
		Hosts:      valid,
		PortListID: portLists[0].ID,
		AliveTest:  gmp.AliveTestConsiderAlive,
	})
	if err != nil {
		return "", Staged(err, StageResolve)
	}
	if !resp.OK() {
		return "", errors.ErrRemoteRejection("create_target", resp.Status, resp.StatusText).WithStage(StageResolve)
	}
	if resp.ID == "" {
		return "", errors.NewAssessmentError(errors.CodeProtocol, "create_target returned no id").WithStage(StageResolve)
	}

	logger.Info("Target created", "target_id", resp.ID, "hosts", len(valid), "port_list", portLists[0].Name)
	return resp.ID, nil
}
