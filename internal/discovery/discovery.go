// Package discovery runs the fast host and service discovery pass that precedes
// a vulnerability assessment. It drives nmap through Ullaakut/nmap and
// normalizes the run into a host inventory keyed by address.
package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
)

// StateUp is the liveness state of a responding host.
const StateUp = "up"

// Service is one port/service observation on a host.
type Service struct {
	Port     uint16 `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service"`
	Product  string `json:"product"`
	Version  string `json:"version"`
}

// Host is the inventory of a single scanned host.
type Host struct {
	Hostname string    `json:"hostname"`
	State    string    `json:"state"`
	Services []Service `json:"services"`
}

// Result is the normalized output of one discovery run.
type Result struct {
	Timestamp time.Time       `json:"timestamp"`
	Target    string          `json:"target"`
	Command   string          `json:"command"`
	Hosts     map[string]Host `json:"hosts"`
}

// AliveHosts returns the addresses of hosts in the "up" state. IP addresses
// come first in address order, anything else follows lexically.
func (r *Result) AliveHosts() []string {
	alive := make([]string, 0, len(r.Hosts))
	for id, host := range r.Hosts {
		if host.State == StateUp {
			alive = append(alive, id)
		}
	}

	sort.Slice(alive, func(i, j int) bool {
		a, errA := netip.ParseAddr(alive[i])
		b, errB := netip.ParseAddr(alive[j])
		switch {
		case errA == nil && errB == nil:
			return a.Less(b)
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return alive[i] < alive[j]
		}
	})
	return alive
}

// ServiceCount returns the total number of services across all hosts.
func (r *Result) ServiceCount() int {
	total := 0
	for _, host := range r.Hosts {
		total += len(host.Services)
	}
	return total
}

// Runner executes an nmap scan. The default runner shells out to the nmap binary.
type Runner interface {
	Run(ctx context.Context, options ...nmap.Option) (*nmap.Run, []string, error)
}

type nmapRunner struct{}

func (nmapRunner) Run(ctx context.Context, options ...nmap.Option) (*nmap.Run, []string, error) {
	scanner, err := nmap.NewScanner(ctx, options...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create nmap scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	var warns []string
	if warnings != nil {
		warns = *warnings
	}
	if err != nil {
		return nil, warns, err
	}
	return result, warns, nil
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithServiceDetection enables or disables service version detection (-sV).
func WithServiceDetection(enabled bool) Option {
	return func(s *Scanner) {
		s.serviceDetection = enabled
	}
}

// WithDefaultScripts enables or disables the default script set (-sC).
func WithDefaultScripts(enabled bool) Option {
	return func(s *Scanner) {
		s.defaultScripts = enabled
	}
}

// WithPorts restricts the scan to the given port specification, e.g. "22,80-443".
func WithPorts(ports string) Option {
	return func(s *Scanner) {
		s.ports = strings.TrimSpace(ports)
	}
}

// WithTimeout bounds the whole discovery run. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithRunner replaces the nmap runner.
func WithRunner(r Runner) Option {
	return func(s *Scanner) {
		s.runner = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// Scanner performs discovery scans with a fixed capability profile.
type Scanner struct {
	serviceDetection bool
	defaultScripts   bool
	ports            string
	timeout          time.Duration

	runner Runner
	logger *logging.Logger
	now    func() time.Time
}

// NewScanner creates a scanner. The default profile is service detection plus
// the default script set, matching "nmap -sV -sC".
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		serviceDetection: true,
		defaultScripts:   true,
		runner:           nmapRunner{},
		logger:           logging.Default().WithComponent("discovery"),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// buildOptions constructs nmap options for the configured profile.
func (s *Scanner) buildOptions(target string) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(strings.Fields(target)...),
	}
	if s.serviceDetection {
		options = append(options, nmap.WithServiceInfo())
	}
	if s.defaultScripts {
		options = append(options, nmap.WithDefaultScript())
	}
	if s.ports != "" {
		options = append(options, nmap.WithPorts(s.ports))
	}
	return options
}

// Scan runs discovery against target. Any failure of the underlying tool is
// returned as a DISCOVERY_FAILED error carrying the raw message.
func (s *Scanner) Scan(ctx context.Context, target string) (*Result, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.WrapDiscoveryError(errors.CodeValidation, "empty discovery target", target, nil)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.WithTarget(target)
	logger.Info("Starting discovery scan")

	run, warnings, err := s.runner.Run(ctx, s.buildOptions(target)...)
	if len(warnings) > 0 {
		logger.Warn("Discovery completed with warnings", "warnings", warnings)
	}
	if err != nil {
		logger.Error("Discovery scan failed", "error", err)
		return nil, errors.WrapDiscoveryError(errors.CodeDiscoveryFailed, "discovery scan failed", target, err)
	}
	if run == nil {
		return nil, errors.WrapDiscoveryError(errors.CodeDiscoveryFailed, "discovery scan returned no result", target, nil)
	}

	result := convertRun(run, target, s.now())
	logger.Info("Discovery scan completed", "hosts", len(result.Hosts), "services", result.ServiceCount())
	return result, nil
}

func convertRun(run *nmap.Run, target string, ts time.Time) *Result {
	result := &Result{
		Timestamp: ts,
		Target:    target,
		Command:   run.Args,
		Hosts:     make(map[string]Host, len(run.Hosts)),
	}

	for i := range run.Hosts {
		id, host, ok := convertHost(&run.Hosts[i])
		if !ok {
			continue
		}
		result.Hosts[id] = host
	}
	return result
}

// convertHost keys a host by its first IP address, falling back to any address.
func convertHost(h *nmap.Host) (string, Host, bool) {
	var id string
	for _, addr := range h.Addresses {
		if addr.AddrType == "ipv4" || addr.AddrType == "ipv6" {
			id = addr.Addr
			break
		}
	}
	if id == "" && len(h.Addresses) > 0 {
		id = h.Addresses[0].Addr
	}
	if id == "" {
		return "", Host{}, false
	}

	host := Host{
		State:    h.Status.State,
		Services: make([]Service, 0, len(h.Ports)),
	}
	if len(h.Hostnames) > 0 {
		host.Hostname = h.Hostnames[0].Name
	}

	for i := range h.Ports {
		p := &h.Ports[i]
		host.Services = append(host.Services, Service{
			Port:     p.ID,
			Protocol: p.Protocol,
			State:    p.State.State,
			Service:  p.Service.Name,
			Product:  p.Service.Product,
			Version:  p.Service.Version,
		})
	}
	return id, host, true
}
