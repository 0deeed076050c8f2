package dclocator

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dnslocator"
	"github.com/dclocate/dclocator/pkg/flags"
	"github.com/dclocate/dclocator/pkg/netlogon"
)

// srvLookup is the subset of *dnslocator.Locator the orchestrator
// needs; an interface so tests can substitute a fixed candidate list.
type srvLookup interface {
	Lookup(ctx context.Context, req dnslocator.Request) ([]dnslocator.Host, error)
}

// proberFunc performs one LDAP ping against host and returns its
// decoded V5EX response. The real implementation is ldapping.Ping
// followed by netlogon.Decode; tests substitute a table of canned
// responses.
type proberFunc func(ctx context.Context, host string, ntVersion flags.NtVersionSet, dnsDomain, dnsHostName string) (*netlogon.V5ExResponse, error)

// probeVersion builds the NtVersion bit-vector spec.md §4.6 requires
// for a probe: V5EX and VCS always, plus V5EP/VGC/VPDC depending on
// the caller's flags.
func probeVersion(f flags.DcLocatorFlagSet) flags.NtVersionSet {
	nt := flags.NewNtVersionSet(uint32(flags.V5EX | flags.VCS))
	if f.Has(flags.IPRequired) {
		nt = nt.With(flags.V5EP)
	}
	if f.Has(flags.GCServerRequired) {
		nt = nt.With(flags.VGC)
	}
	if f.Has(flags.PDCRequired) {
		nt = nt.With(flags.VPDC)
	}
	return nt
}

// probeList walks candidates in order, pinging each one and accepting
// the first whose response satisfies required. enforceSite, when
// non-empty, additionally requires a PDC-required candidate's
// dcSiteName to case-insensitively match it (spec.md §4.6
// "site-specific path"). Failed probes are logged and folded into a
// multierror for the caller's eventual ServiceUnavailable diagnostic.
func probeList(
	ctx context.Context,
	probe proberFunc,
	candidates []dnslocator.Host,
	required []flags.DsFlag,
	f flags.DcLocatorFlagSet,
	domain, localFQDN, enforceSite string,
) (*netlogon.V5ExResponse, *dnslocator.Host, error) {
	nt := probeVersion(f)
	var errs *multierror.Error
	for i := range candidates {
		host := candidates[i]
		resp, err := probe(ctx, host.Hostname, nt, domain, localFQDN)
		if err != nil {
			dlog.Debugf(ctx, "dclocator: probe of %s failed: %v", host.Hostname, err)
			errs = multierror.Append(errs, err)
			continue
		}
		if !satisfiesRequirements(resp.DsFlags, required) {
			continue
		}
		if enforceSite != "" && f.Has(flags.PDCRequired) && !strings.EqualFold(resp.DCSiteName, enforceSite) {
			continue
		}
		return resp, &host, nil
	}
	return nil, nil, errs.ErrorOrNil()
}
