// Package dclocator implements the DC locator orchestrator (spec.md
// §4.6): request validation, effective-domain and forest-name
// determination, site-aware server selection, and result synthesis
// over the dnslocator/ldapping/netlogon building blocks.
package dclocator

import (
	"net"

	"github.com/google/uuid"

	"github.com/dclocate/dclocator/pkg/flags"
)

// Request is the caller-facing input to Locate (spec.md §3
// DcLocatorRequest).
type Request struct {
	// DomainName is the fully-qualified AD domain to locate a DC
	// for; empty means "use the local machine's domain".
	DomainName string

	// ComputerName, if set, requests RPC-based location against a
	// named computer, which this locator does not implement
	// (spec.md Non-goals).
	ComputerName string

	// SiteName restricts discovery to a specific AD site.
	SiteName string

	// Flags is the set of DS_* capability/behavior flags.
	Flags flags.DcLocatorFlagSet

	// ReadTimeoutMillis is carried on the request but Locate does not
	// apply it: the DNS and LDAP-ping read timeouts are the ones the
	// Orchestrator was built with (OrchestratorBuilder.WithTimeouts and
	// the SRV locator passed to WithSRVLocator).
	ReadTimeoutMillis int
}

// DomainControllerInfo is the result of a successful Locate call
// (spec.md §3).
type DomainControllerInfo struct {
	DomainControllerName string
	IPAddress            net.IP
	DomainGUID           uuid.UUID
	DomainName           string
	DNSForestName        string
	DsFlags              flags.DsFlagSet
	DCSiteName           string
	ClientSiteName       string
}
