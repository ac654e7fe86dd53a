// Package resolve turns a hostname target into IP addresses when discovery
// produced no host inventory and the caller's target string is used instead.
package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultResolvConf = "/etc/resolv.conf"
)

// Resolver looks up A and AAAA records with miekg/dns.
type Resolver struct {
	server  string
	client  *dns.Client
	logger  *logging.Logger
	confErr error
}

// New creates a resolver. An empty server uses the first nameserver in
// /etc/resolv.conf.
func New(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := &Resolver{
		server: server,
		client: &dns.Client{Timeout: timeout},
		logger: logging.Default().WithComponent("resolve"),
	}
	if r.server == "" {
		conf, err := dns.ClientConfigFromFile(defaultResolvConf)
		if err != nil || len(conf.Servers) == 0 {
			r.confErr = fmt.Errorf("no nameserver configured in %s: %v", defaultResolvConf, err)
		} else {
			r.server = net.JoinHostPort(conf.Servers[0], conf.Port)
		}
	}
	return r
}

// Resolve returns the addresses of target. IP literals are returned as-is,
// without a query.
func (r *Resolver) Resolve(ctx context.Context, target string) ([]string, error) {
	if addr, err := netip.ParseAddr(target); err == nil {
		return []string{addr.String()}, nil
	}
	if r.confErr != nil {
		return nil, errors.WrapAssessmentError(errors.CodeResolveFailed, "cannot resolve "+target, r.confErr)
	}

	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		found, err := r.query(ctx, target, qtype)
		if err != nil {
			return nil, errors.WrapAssessmentError(errors.CodeResolveFailed, "cannot resolve "+target, err).
				WithContext("server", r.server)
		}
		addrs = append(addrs, found...)
		// IPv4 is enough for the scan target
		if len(addrs) > 0 {
			break
		}
	}

	if len(addrs) == 0 {
		return nil, errors.NewAssessmentError(errors.CodeResolveFailed, "no addresses found for "+target).
			WithContext("server", r.server)
	}

	r.logger.Debug("Resolved target", "target", target, "addresses", addrs)
	return addrs, nil
}

func (r *Resolver) query(ctx context.Context, name string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, err
	}
	if resp.Rcode == dns.RcodeNameError {
		return nil, nil
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query failed: %s", dns.RcodeToString[resp.Rcode])
	}

	var addrs []string
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			addrs = append(addrs, rec.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rec.AAAA.String())
		}
	}
	return addrs, nil
}
