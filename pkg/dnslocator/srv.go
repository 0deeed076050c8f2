// Package dnslocator builds AD-shaped SRV query names, issues the DNS
// lookup, and applies RFC 2782 priority+weight host selection.
package dnslocator

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
)

// Record is one SRV resource record as returned by DNS.
type Record struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string // as returned by DNS; a trailing dot is possible

	// sum is a transient running total used only during weighted
	// selection within a single priority group; it carries no
	// meaning outside that algorithm.
	sum int
}

// Host is an unresolved (hostname, port) candidate produced by
// Select.
type Host struct {
	Hostname string
	Port     uint16
}

// exchanger is the pluggable DNS transport; the default wraps
// *dns.Client against the system resolver list. Outside this package
// only the resolver address can be changed (WithResolverAddress); the
// interface itself is unexported, so only in-package code (such as the
// tests) substitutes another implementation.
type exchanger interface {
	exchange(ctx context.Context, name string, timeout time.Duration) ([]Record, error)
}

// Locator issues SRV lookups and applies RFC 2782 selection. Build it
// with NewLocatorBuilder; the zero value is not ready to use.
type Locator struct {
	readTimeout time.Duration
	exchanger   exchanger
}

// LocatorBuilder configures a Locator. It is single-threaded and, like
// the teacher's configuration objects, rejects further mutation once
// Build has been called.
type LocatorBuilder struct {
	l    Locator
	done bool
}

// NewLocatorBuilder returns a builder defaulting to the system
// resolver with no read-timeout bound.
func NewLocatorBuilder() *LocatorBuilder {
	return &LocatorBuilder{l: Locator{exchanger: &systemExchanger{}}}
}

func (b *LocatorBuilder) mustNotBeBuilt() {
	if b.done {
		panic("dnslocator: LocatorBuilder mutated after Build")
	}
}

// WithReadTimeoutMillis sets the DNS read timeout in milliseconds; a
// negative value means "use the system default" per spec.md §5.
func (b *LocatorBuilder) WithReadTimeoutMillis(ms int) *LocatorBuilder {
	b.mustNotBeBuilt()
	if ms >= 0 {
		b.l.readTimeout = time.Duration(ms) * time.Millisecond
	}
	return b
}

// WithResolverAddress points the default exchanger at a specific
// resolver ("host:port") instead of the system configuration.
func (b *LocatorBuilder) WithResolverAddress(addr string) *LocatorBuilder {
	b.mustNotBeBuilt()
	if se, ok := b.l.exchanger.(*systemExchanger); ok {
		se.resolver = addr
	}
	return b
}

// Build finalizes the Locator and locks the builder against further
// mutation.
func (b *LocatorBuilder) Build() *Locator {
	b.mustNotBeBuilt()
	b.done = true
	l := b.l
	return &l
}

// Lookup performs the SRV lookup for req and returns the RFC
// 2782-selected, ordered candidate list.
func (l *Locator) Lookup(ctx context.Context, req Request) ([]Host, error) {
	name, err := QueryName(req)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Configuration, err, "dnslocator: build query name")
	}
	dlog.Debugf(ctx, "dnslocator: looking up %s", name)

	records, err := l.exchanger.exchange(ctx, name, l.readTimeout)
	if err != nil {
		return nil, err
	}

	// RFC 2782 "service not provided" sentinel: a single record
	// whose target is the root.
	if len(records) == 1 && records[0].Target == "." {
		return nil, nil
	}

	return Select(records), nil
}

// Select applies the RFC 2782 priority+weight algorithm (spec.md
// §4.2) and returns the ordered host list; targets are not resolved,
// only their trailing dot is stripped.
func Select(records []Record) []Host {
	if len(records) == 0 {
		return nil
	}

	// Copy so callers can reuse the slice they passed in.
	recs := make([]Record, len(records))
	copy(recs, records)

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority < recs[j].Priority
		}
		// weight 0 sorts before weight>0 within a priority
		// group, per spec.md §4.2.
		return recs[i].Weight < recs[j].Weight
	})

	out := make([]Host, 0, len(recs))
	start := 0
	for start < len(recs) {
		end := start
		for end < len(recs) && recs[end].Priority == recs[start].Priority {
			end++
		}
		out = append(out, selectGroup(recs[start:end])...)
		start = end
	}
	return out
}

// selectGroup runs the weighted draw-without-replacement algorithm
// over a single priority group.
func selectGroup(group []Record) []Host {
	remaining := make([]Record, len(group))
	copy(remaining, group)

	out := make([]Host, 0, len(remaining))
	for len(remaining) > 0 {
		total := 0
		for i := range remaining {
			total += int(remaining[i].Weight)
			remaining[i].sum = total
		}

		// r is drawn from [1, total] so that weight-0 records, whose
		// running sum is 0, are only picked once no weighted record
		// remains in the group.
		var r int
		if total > 0 {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(total)))
			if err != nil {
				r = 1
			} else {
				r = int(n.Int64()) + 1
			}
		}

		idx := 0
		for i := range remaining {
			if remaining[i].sum >= r {
				idx = i
				break
			}
		}

		picked := remaining[idx]
		out = append(out, Host{
			Hostname: strings.TrimSuffix(picked.Target, "."),
			Port:     picked.Port,
		})
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out
}

// systemExchanger is the default exchanger, backed by *dns.Client
// against the system resolver configuration (/etc/resolv.conf), the
// same lookup pattern as the teacher's pkg/dnsproxy.Lookup and
// internal/pkg/dns.Server.
type systemExchanger struct {
	resolver string // host:port; empty means use system resolv.conf
}

func (e *systemExchanger) exchange(ctx context.Context, name string, timeout time.Duration) ([]Record, error) {
	addr := e.resolver
	if addr == "" {
		cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || len(cfg.Servers) == 0 {
			return nil, dcerr.Wrap(dcerr.Communication, err, "dnslocator: no resolver configured")
		}
		addr = cfg.Servers[0] + ":" + cfg.Port
	}

	c := &dns.Client{Timeout: timeout}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeSRV)
	m.RecursionDesired = true

	in, _, err := c.ExchangeContext(ctx, m, addr)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "dnslocator: SRV exchange failed")
	}
	if in.Rcode == dns.RcodeNameError {
		return nil, dcerr.Newf(dcerr.NameNotFound, "dnslocator: no SRV records for %s", name)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, dcerr.Newf(dcerr.Communication, "dnslocator: SRV lookup for %s returned rcode %s", name, dns.RcodeToString[in.Rcode])
	}

	var recs []Record
	for _, rr := range in.Answer {
		srv, ok := rr.(*dns.SRV)
		if !ok {
			continue
		}
		recs = append(recs, Record{
			Priority: srv.Priority,
			Weight:   srv.Weight,
			Port:     srv.Port,
			Target:   srv.Target,
		})
	}
	if len(recs) == 0 {
		return nil, dcerr.Newf(dcerr.NameNotFound, "dnslocator: no SRV records for %s", name)
	}
	return recs, nil
}
