// Package jndiprovider adapts the DC locator orchestrator to the
// external consumer contract spec.md §6 describes for the JNDI-style
// LDAP "DNS provider" plugin: a caller hands it an `ldap(s)/gc(s)` URL
// and gets back the resolved domain/forest name plus a rewritten URL
// pointing at a concrete DC. This package is the interface spec.md
// asks to be specified, not a full JNDI SPI implementation.
package jndiprovider

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dclocator"
	"github.com/dclocate/dclocator/pkg/flags"
)

const (
	gcPort  = "3268"
	gcsPort = "3269"
)

// Result is the (domain or forest name, rewritten endpoint URL) pair
// spec.md §6 describes as the provider's output.
type Result struct {
	DomainOrForestName string
	URL                string
}

// Resolve rewrites rawURL to point at a concrete, currently reachable
// DC. Any parse failure, missing domain information, or locate
// failure is swallowed: the provider falls back to returning rawURL
// unchanged, exactly as spec.md §6/§7 requires.
func Resolve(ctx context.Context, locator *dclocator.Orchestrator, rawURL string) Result {
	u, isGC, err := normalize(rawURL)
	if err != nil {
		dlog.Debugf(ctx, "jndiprovider: %v, falling back to original URL", err)
		return Result{URL: rawURL}
	}

	domain := domainFromDN(u.Path)
	if domain == "" {
		dlog.Debugf(ctx, "jndiprovider: no DC RDNs in %q, falling back to original URL", rawURL)
		return Result{URL: rawURL}
	}

	var f flags.DcLocatorFlagSet
	if isGC {
		f = flags.NewDcLocatorFlagSet(uint32(flags.GCServerRequired))
	}

	info, err := locator.Locate(ctx, dclocator.Request{DomainName: domain, Flags: f})
	if err != nil {
		dlog.Debugf(ctx, "jndiprovider: locate failed for domain %s: %v, falling back to original URL", domain, err)
		return Result{URL: rawURL}
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(info.DomainControllerName, port)
	} else {
		u.Host = info.DomainControllerName
	}

	name := info.DomainName
	if isGC {
		name = info.DNSForestName
	}
	return Result{DomainOrForestName: name, URL: u.String()}
}

// normalize parses rawURL, rewrites a gc/gcs scheme to ldap/ldaps with
// a defaulted GC port, and reports whether the request targets a
// Global Catalog (spec.md §6 "GC-vs-LDAP scheme/port mapping").
func normalize(rawURL string) (*url.URL, bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false, fmt.Errorf("jndiprovider: parse URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	isGC := false
	switch scheme {
	case "ldap", "ldaps":
	case "gc":
		isGC = true
		u.Scheme = "ldap"
	case "gcs":
		isGC = true
		u.Scheme = "ldaps"
	default:
		return nil, false, fmt.Errorf("jndiprovider: unsupported scheme %q", u.Scheme)
	}

	switch u.Port() {
	case gcPort, gcsPort:
		isGC = true
	case "":
		if scheme == "gc" || scheme == "gcs" {
			port := gcPort
			if scheme == "gcs" {
				port = gcsPort
			}
			u.Host = net.JoinHostPort(u.Hostname(), port)
		}
	}

	return u, isGC, nil
}

// domainFromDN extracts the domain name from a base-DN path by
// collecting its "dc=" RDNs, reversing them, and joining with '.'
// (spec.md §6).
func domainFromDN(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return ""
	}
	var dcs []string
	for _, rdn := range strings.Split(path, ",") {
		rdn = strings.TrimSpace(rdn)
		if len(rdn) > 3 && strings.EqualFold(rdn[:3], "dc=") {
			dcs = append(dcs, rdn[3:])
		}
	}
	for i, j := 0, len(dcs)-1; i < j; i, j = i+1, j-1 {
		dcs[i], dcs[j] = dcs[j], dcs[i]
	}
	return strings.Join(dcs, ".")
}
