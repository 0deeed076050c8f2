package dclocator

import (
	"github.com/dclocate/dclocator/pkg/dnslocator"
	"github.com/dclocate/dclocator/pkg/flags"
)

// selectService implements the first-match-wins service/DC-type table
// of spec.md §4.6.
func selectService(f flags.DcLocatorFlagSet) (dnslocator.Service, dnslocator.DCType) {
	switch {
	case f.Has(flags.OnlyLDAPNeeded) && f.Has(flags.GCServerRequired):
		return dnslocator.ServiceGC, ""
	case f.Has(flags.OnlyLDAPNeeded):
		return dnslocator.ServiceLDAP, ""
	case f.Has(flags.PDCRequired):
		return dnslocator.ServiceLDAP, dnslocator.DCTypePDC
	case f.Has(flags.GCServerRequired):
		return dnslocator.ServiceLDAP, dnslocator.DCTypeGC
	case f.Has(flags.KDCRequired):
		return dnslocator.ServiceKerberos, dnslocator.DCTypeDC
	default:
		return dnslocator.ServiceLDAP, dnslocator.DCTypeDC
	}
}

// dsFlagRequirement pairs one DC-locator capability flag with the
// DsFlag bit a surviving candidate must report (spec.md §4.6
// "Server-selection requirements").
var dsFlagRequirement = []struct {
	dl flags.DcLocatorFlag
	ds flags.DsFlag
}{
	{flags.DirectoryServiceRequired, flags.FD},
	{flags.GCServerRequired, flags.FG},
	{flags.PDCRequired, flags.FP},
	{flags.KDCRequired, flags.FK},
	{flags.TimeservRequired, flags.FT},
	{flags.WritableRequired, flags.FW},
	{flags.OnlyLDAPNeeded, flags.FL},
	{flags.DirectoryService6Required, flags.FFS},
	{flags.WebServiceRequired, flags.FWS},
	{flags.DirectoryService8Required, flags.FW8},
	{flags.DirectoryService9Required, flags.FW9},
	{flags.DirectoryService10Required, flags.FW10},
	{flags.KeyListSupportRequired, flags.FKL},
}

// requiredDsFlags returns the DsFlag bits a candidate must report
// given the caller's DC-locator flags.
func requiredDsFlags(f flags.DcLocatorFlagSet) []flags.DsFlag {
	var out []flags.DsFlag
	for _, m := range dsFlagRequirement {
		if f.Has(m.dl) {
			out = append(out, m.ds)
		}
	}
	return out
}

func satisfiesRequirements(dsFlags flags.DsFlagSet, required []flags.DsFlag) bool {
	for _, r := range required {
		if !dsFlags.Has(r) {
			return false
		}
	}
	return true
}
