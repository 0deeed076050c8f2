package dclocator

import (
	"context"
	"os"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
	"github.com/dclocate/dclocator/pkg/dnslocator"
	"github.com/dclocate/dclocator/pkg/flags"
	"github.com/dclocate/dclocator/pkg/ldapping"
	"github.com/dclocate/dclocator/pkg/netlogon"
)

// Orchestrator ties the SRV locator, LDAP ping transport, and
// Netlogon decoder together into the full DC-locator algorithm
// (spec.md §4.6). Build it with NewOrchestratorBuilder.
type Orchestrator struct {
	srv       srvLookup
	probe     proberFunc
	localFQDN func() (string, error)
}

// OrchestratorBuilder configures an Orchestrator. Like
// dnslocator.LocatorBuilder, it is single-threaded and rejects
// mutation once Build has run (spec.md §9 "Builder/config objects").
type OrchestratorBuilder struct {
	o    Orchestrator
	done bool
}

// NewOrchestratorBuilder returns a builder wired to the real SRV
// locator, real LDAP ping transport over UDP, and the local
// machine's hostname.
func NewOrchestratorBuilder() *OrchestratorBuilder {
	return &OrchestratorBuilder{
		o: Orchestrator{
			srv:       dnslocator.NewLocatorBuilder().Build(),
			probe:     defaultProbe(ldapping.TransportUDP, -1, -1),
			localFQDN: defaultLocalFQDN,
		},
	}
}

func (b *OrchestratorBuilder) mustNotBeBuilt() {
	if b.done {
		panic("dclocator: OrchestratorBuilder mutated after Build")
	}
}

// WithTimeouts sets the connect/read timeouts (ms) applied to every
// LDAP ping the orchestrator issues; negative means "system default".
func (b *OrchestratorBuilder) WithTimeouts(connectMillis, readMillis int) *OrchestratorBuilder {
	b.mustNotBeBuilt()
	b.o.probe = defaultProbe(ldapping.TransportUDP, connectMillis, readMillis)
	return b
}

// WithSRVLocator overrides the SRV lookup implementation.
func (b *OrchestratorBuilder) WithSRVLocator(l srvLookup) *OrchestratorBuilder {
	b.mustNotBeBuilt()
	b.o.srv = l
	return b
}

// WithProbe overrides how a single candidate is pinged and decoded.
func (b *OrchestratorBuilder) WithProbe(p proberFunc) *OrchestratorBuilder {
	b.mustNotBeBuilt()
	b.o.probe = p
	return b
}

// WithLocalFQDN overrides local-hostname determination.
func (b *OrchestratorBuilder) WithLocalFQDN(f func() (string, error)) *OrchestratorBuilder {
	b.mustNotBeBuilt()
	b.o.localFQDN = f
	return b
}

// Build finalizes the Orchestrator.
func (b *OrchestratorBuilder) Build() *Orchestrator {
	b.mustNotBeBuilt()
	b.done = true
	o := b.o
	return &o
}

// defaultProbe pings a candidate over LDAP and decodes its Netlogon
// attribute, requiring a V5EX response (every real probe in spec.md
// §4.6 requests V5EX).
func defaultProbe(transport ldapping.Transport, connectMillis, readMillis int) proberFunc {
	return func(ctx context.Context, host string, ntVersion flags.NtVersionSet, dnsDomain, dnsHostName string) (*netlogon.V5ExResponse, error) {
		req := ldapping.Request{
			Hostname:             host,
			NtVersion:            ntVersion,
			Transport:            transport,
			DnsDomain:            dnsDomain,
			DnsHostName:          dnsHostName,
			ConnectTimeoutMillis: connectMillis,
			ReadTimeoutMillis:    readMillis,
		}
		data, err := ldapping.Ping(ctx, req)
		if err != nil {
			return nil, err
		}
		resp, err := netlogon.Decode(ctx, data, ntVersion)
		if err != nil {
			return nil, err
		}
		if resp.V5Ex == nil {
			return nil, dcerr.New(dcerr.Communication, "dclocator: expected a V5EX Netlogon response from "+host)
		}
		return resp.V5Ex, nil
	}
}

func defaultLocalFQDN() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", dcerr.Wrap(dcerr.Configuration, err, "dclocator: determine local hostname")
	}
	if !strings.Contains(host, ".") {
		return "", dcerr.Newf(dcerr.Configuration, "dclocator: local hostname %q is not fully qualified", host)
	}
	return host, nil
}

func localDomainSuffix(localFQDN string) string {
	i := strings.IndexByte(localFQDN, '.')
	if i < 0 {
		return localFQDN
	}
	return localFQDN[i+1:]
}

// Locate runs the full DC-locator algorithm and returns a single
// surviving DomainControllerInfo.
func (o *Orchestrator) Locate(ctx context.Context, req Request) (*DomainControllerInfo, error) {
	f, err := validate(req)
	if err != nil {
		return nil, err
	}

	localFQDN, err := o.localFQDN()
	if err != nil {
		return nil, err
	}

	domain := req.DomainName
	if domain == "" {
		domain = localDomainSuffix(localFQDN)
		if f.Has(flags.GCServerRequired) {
			forest, err := o.determineForestName(ctx, localFQDN, domain)
			if err != nil {
				return nil, err
			}
			domain = forest
		}
	}

	service, dcType := selectService(f)
	required := requiredDsFlags(f)

	if req.SiteName != "" {
		return o.locateSiteSpecific(ctx, service, dcType, domain, req.SiteName, required, f, localFQDN)
	}
	return o.locateSiteDiscovery(ctx, service, dcType, domain, required, f, localFQDN)
}

func (o *Orchestrator) locateSiteSpecific(
	ctx context.Context,
	service dnslocator.Service, dcType dnslocator.DCType,
	domain, siteName string,
	required []flags.DsFlag, f flags.DcLocatorFlagSet, localFQDN string,
) (*DomainControllerInfo, error) {
	hosts, err := o.srv.Lookup(ctx, dnslocator.Request{
		Service: service, Transport: dnslocator.TransportTCP, SiteName: siteName, DCType: dcType, Domain: domain,
	})
	if err != nil {
		return nil, err
	}

	resp, _, probeErrs := probeList(ctx, o.probe, hosts, required, f, domain, localFQDN, siteName)
	if resp == nil {
		return nil, dcerr.Wrapf(dcerr.ServiceUnavailable, probeErrs,
			"dclocator: no DC satisfied requirements among %d candidate(s) for domain %s site %s", len(hosts), domain, siteName)
	}
	return buildResult(resp, f, siteName), nil
}

func (o *Orchestrator) locateSiteDiscovery(
	ctx context.Context,
	service dnslocator.Service, dcType dnslocator.DCType,
	domain string,
	required []flags.DsFlag, f flags.DcLocatorFlagSet, localFQDN string,
) (*DomainControllerInfo, error) {
	hosts, err := o.srv.Lookup(ctx, dnslocator.Request{
		Service: service, Transport: dnslocator.TransportTCP, DCType: dcType, Domain: domain,
	})
	if err != nil {
		return nil, err
	}

	// The initial discovery probe accepts any reachable DC
	// regardless of capability (spec.md §9 Open Question 3); it
	// exists only to learn the client's site.
	discovery, _, _ := probeList(ctx, o.probe, hosts, nil, f, domain, localFQDN, "")
	if discovery == nil {
		return nil, dcerr.Newf(dcerr.ServiceUnavailable, "dclocator: no reachable DC among %d candidate(s) for domain %s", len(hosts), domain)
	}

	// Both re-queries below are attempted in sequence, not as
	// mutually exclusive alternatives: a failed clientSiteName
	// re-query still falls through to nextClosestSiteName when
	// DS_TRY_NEXTCLOSEST_SITE is set, before the final broad
	// fallback (spec.md §8 "Site fallback" scenario).
	if discovery.ClientSiteName != "" {
		if siteHosts, err := o.srv.Lookup(ctx, dnslocator.Request{
			Service: service, Transport: dnslocator.TransportTCP, SiteName: discovery.ClientSiteName, DCType: dcType, Domain: domain,
		}); err == nil {
			if resp, _, _ := probeList(ctx, o.probe, siteHosts, required, f, domain, localFQDN, discovery.ClientSiteName); resp != nil {
				return buildResult(resp, f, discovery.ClientSiteName), nil
			}
		} else {
			dlog.Debugf(ctx, "dclocator: site-specific lookup for %s failed: %v", discovery.ClientSiteName, err)
		}
	}
	if f.Has(flags.TryNextClosestSite) && discovery.NextClosestSiteName != "" {
		if nextHosts, err := o.srv.Lookup(ctx, dnslocator.Request{
			Service: service, Transport: dnslocator.TransportTCP, SiteName: discovery.NextClosestSiteName, DCType: dcType, Domain: domain,
		}); err == nil {
			if resp, _, _ := probeList(ctx, o.probe, nextHosts, required, f, domain, localFQDN, discovery.NextClosestSiteName); resp != nil {
				return buildResult(resp, f, discovery.NextClosestSiteName), nil
			}
		} else {
			dlog.Debugf(ctx, "dclocator: next-closest-site lookup for %s failed: %v", discovery.NextClosestSiteName, err)
		}
	}

	resp, _, probeErrs := probeList(ctx, o.probe, hosts, required, f, domain, localFQDN, "")
	if resp == nil {
		return nil, dcerr.Wrapf(dcerr.ServiceUnavailable, probeErrs,
			"dclocator: no DC satisfied requirements among %d candidate(s) for domain %s", len(hosts), domain)
	}
	return buildResult(resp, f, ""), nil
}

// determineForestName runs the preliminary ldap/dc probe spec.md
// §4.6 requires before a GC lookup with no explicit domain name.
func (o *Orchestrator) determineForestName(ctx context.Context, localFQDN, localDomain string) (string, error) {
	hosts, err := o.srv.Lookup(ctx, dnslocator.Request{
		Service: dnslocator.ServiceLDAP, Transport: dnslocator.TransportTCP, DCType: dnslocator.DCTypeDC, Domain: localDomain,
	})
	if err != nil {
		return "", err
	}
	resp, _, probeErrs := probeList(ctx, o.probe, hosts, nil, flags.DcLocatorFlagSet{}, localDomain, localFQDN, "")
	if resp == nil {
		return "", dcerr.Wrapf(dcerr.ServiceUnavailable, probeErrs, "dclocator: could not determine forest name for domain %s", localDomain)
	}
	return resp.DNSForestName, nil
}

// buildResult synthesizes the DomainControllerInfo from a surviving
// probe response (spec.md §4.6 "Building the result").
func buildResult(resp *netlogon.V5ExResponse, f flags.DcLocatorFlagSet, siteUsedForQuery string) *DomainControllerInfo {
	dsFlags := resp.DsFlags.With(flags.FF)

	var name, domainName string
	if f.Has(flags.ReturnFlatName) {
		name = resp.NetbiosComputerName
		domainName = resp.NetbiosDomainName
	} else {
		name = resp.DNSHostName
		domainName = resp.DNSDomainName
		dsFlags = dsFlags.With(flags.FDNS, flags.FDM)
	}

	if siteUsedForQuery != "" && strings.EqualFold(resp.DCSiteName, siteUsedForQuery) {
		dsFlags = dsFlags.With(flags.FC)
	}

	return &DomainControllerInfo{
		DomainControllerName: name,
		IPAddress:            resp.DCSockAddr,
		DomainGUID:           resp.DomainGUID,
		DomainName:           domainName,
		DNSForestName:        resp.DNSForestName,
		DsFlags:              dsFlags,
		DCSiteName:           resp.DCSiteName,
		ClientSiteName:       resp.ClientSiteName,
	}
}
