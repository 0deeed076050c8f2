package dnslocator

import (
	"strings"

	"github.com/pkg/errors"
)

// Service is one of the AD SRV service tokens a DnsLocatorRequest can
// ask for.
type Service string

const (
	ServiceLDAP      Service = "ldap"
	ServiceKerberos  Service = "kerberos"
	ServiceKpasswd   Service = "kpasswd"
	ServiceGC        Service = "gc"
)

// Transport is the SRV protocol segment; AD only ever publishes tcp
// and udp variants.
type Transport string

const (
	TransportTCP Transport = "tcp"
	TransportUDP Transport = "udp"
)

// DCType is the optional _msdcs role segment.
type DCType string

const (
	DCTypeDC  DCType = "dc"
	DCTypeGC  DCType = "gc"
	DCTypePDC DCType = "pdc"
)

// Request describes one SRV lookup in AD's naming convention
// (spec.md §3 DnsLocatorRequest).
type Request struct {
	Service   Service
	Transport Transport // defaults to TransportTCP when empty
	SiteName  string
	DCType    DCType
	Domain    string // required, fully-qualified
}

// QueryName builds the SRV query name per spec.md §4.2:
//
//	_{service}._{protocol|tcp}[.{siteName}._sites][.{dcType}._msdcs].{domainName}
func QueryName(req Request) (string, error) {
	if req.Service == "" {
		return "", errors.New("dnslocator: service is required")
	}
	if req.Domain == "" {
		return "", errors.New("dnslocator: domain is required")
	}
	transport := req.Transport
	if transport == "" {
		transport = TransportTCP
	}

	var b strings.Builder
	b.WriteString("_")
	b.WriteString(string(req.Service))
	b.WriteString("._")
	b.WriteString(string(transport))
	if req.SiteName != "" {
		b.WriteString(".")
		b.WriteString(req.SiteName)
		b.WriteString("._sites")
	}
	if req.DCType != "" {
		b.WriteString(".")
		b.WriteString(string(req.DCType))
		b.WriteString("._msdcs")
	}
	b.WriteString(".")
	b.WriteString(strings.TrimSuffix(req.Domain, "."))
	return b.String(), nil
}
