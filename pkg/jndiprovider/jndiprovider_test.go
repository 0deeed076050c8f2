package jndiprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
	"github.com/dclocate/dclocator/pkg/dclocator"
	"github.com/dclocate/dclocator/pkg/dnslocator"
	"github.com/dclocate/dclocator/pkg/flags"
	"github.com/dclocate/dclocator/pkg/netlogon"
)

type fakeSRV struct {
	hosts []dnslocator.Host
}

func (f fakeSRV) Lookup(_ context.Context, _ dnslocator.Request) ([]dnslocator.Host, error) {
	return f.hosts, nil
}

func fakeProbe(resp *netlogon.V5ExResponse) func(context.Context, string, flags.NtVersionSet, string, string) (*netlogon.V5ExResponse, error) {
	return func(_ context.Context, _ string, _ flags.NtVersionSet, _, _ string) (*netlogon.V5ExResponse, error) {
		if resp == nil {
			return nil, dcerr.New(dcerr.Communication, "fake: unreachable")
		}
		return resp, nil
	}
}

func testCtx(t *testing.T) context.Context { return dlog.NewTestContext(t, false) }

func TestResolveLdapURLWithDN(t *testing.T) {
	o := dclocator.NewOrchestratorBuilder().
		WithSRVLocator(fakeSRV{hosts: []dnslocator.Host{{Hostname: "dc1.example.com"}}}).
		WithProbe(fakeProbe(&netlogon.V5ExResponse{
			DsFlags:       flags.NewDsFlagSet(uint32(flags.FD)),
			DNSForestName: "example.com",
			DNSDomainName: "example.com",
			DNSHostName:   "dc1.example.com",
			DCSiteName:    "Default-Site",
		})).
		WithLocalFQDN(func() (string, error) { return "client.example.com", nil }).
		Build()

	res := Resolve(testCtx(t), o, "ldap:///dc=com,dc=example")
	assert.Equal(t, "example.com", res.DomainOrForestName)
	assert.Equal(t, "ldap://dc1.example.com/dc=com,dc=example", res.URL)
}

func TestResolveGCSchemeRewritesToLdapAndRequestsGC(t *testing.T) {
	o := dclocator.NewOrchestratorBuilder().
		WithSRVLocator(fakeSRV{hosts: []dnslocator.Host{{Hostname: "dc1.example.com"}}}).
		WithProbe(fakeProbe(&netlogon.V5ExResponse{
			DsFlags:       flags.NewDsFlagSet(uint32(flags.FD | flags.FG)),
			DNSForestName: "forest.example.com",
			DNSDomainName: "example.com",
			DNSHostName:   "dc1.example.com",
			DCSiteName:    "Default-Site",
		})).
		WithLocalFQDN(func() (string, error) { return "client.example.com", nil }).
		Build()

	res := Resolve(testCtx(t), o, "gc:///dc=com,dc=example")
	assert.Equal(t, "forest.example.com", res.DomainOrForestName)
	assert.Equal(t, "ldap://dc1.example.com:3268/dc=com,dc=example", res.URL)
}

func TestResolveGCPortImpliesGCWithoutGCScheme(t *testing.T) {
	o := dclocator.NewOrchestratorBuilder().
		WithSRVLocator(fakeSRV{hosts: []dnslocator.Host{{Hostname: "dc1.example.com"}}}).
		WithProbe(fakeProbe(&netlogon.V5ExResponse{
			DsFlags:       flags.NewDsFlagSet(uint32(flags.FD | flags.FG)),
			DNSForestName: "forest.example.com",
			DNSDomainName: "example.com",
			DNSHostName:   "dc1.example.com",
			DCSiteName:    "Default-Site",
		})).
		WithLocalFQDN(func() (string, error) { return "client.example.com", nil }).
		Build()

	res := Resolve(testCtx(t), o, "ldap://old-dc:3268/dc=com,dc=example")
	assert.Equal(t, "forest.example.com", res.DomainOrForestName)
}

func TestResolveFallsBackOnUnsupportedScheme(t *testing.T) {
	o := dclocator.NewOrchestratorBuilder().Build()
	res := Resolve(testCtx(t), o, "http://example.com/dc=com,dc=example")
	assert.Equal(t, "http://example.com/dc=com,dc=example", res.URL)
	assert.Empty(t, res.DomainOrForestName)
}

func TestResolveFallsBackWhenDNHasNoDCRDNs(t *testing.T) {
	o := dclocator.NewOrchestratorBuilder().Build()
	res := Resolve(testCtx(t), o, "ldap:///cn=users")
	assert.Equal(t, "ldap:///cn=users", res.URL)
	assert.Empty(t, res.DomainOrForestName)
}

func TestResolveFallsBackOnLocateFailure(t *testing.T) {
	o := dclocator.NewOrchestratorBuilder().
		WithSRVLocator(fakeSRV{hosts: nil}).
		WithProbe(fakeProbe(nil)).
		Build()

	raw := "ldap:///dc=com,dc=example"
	res := Resolve(testCtx(t), o, raw)
	assert.Equal(t, raw, res.URL)
	assert.Empty(t, res.DomainOrForestName)
}

func TestResolveFallsBackOnUnparsableURL(t *testing.T) {
	o := dclocator.NewOrchestratorBuilder().Build()
	raw := "ldap://%zz"
	res := Resolve(testCtx(t), o, raw)
	assert.Equal(t, raw, res.URL)
}

func TestDomainFromDNReversesRDNs(t *testing.T) {
	require.Equal(t, "example.com", domainFromDN("/dc=com,dc=example"))
	require.Equal(t, "", domainFromDN(""))
	require.Equal(t, "", domainFromDN("/cn=users,cn=system"))
}
