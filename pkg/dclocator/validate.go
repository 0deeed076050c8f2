package dclocator

import (
	"strings"

	"github.com/dclocate/dclocator/pkg/dcerr"
	"github.com/dclocate/dclocator/pkg/flags"
)

// ignoredFlags are silently accepted and dropped per spec.md Non-goals.
var ignoredFlags = []flags.DcLocatorFlag{
	flags.ForceRediscovery,
	flags.BackgroundOnly,
	flags.AvoidSelf,
	flags.DirectoryServicePreferred,
	flags.GoodTimeservPreferred,
}

// onlyLDAPDrops is the set of flags that DS_ONLY_LDAP_NEEDED silently
// clears.
var onlyLDAPDrops = []flags.DcLocatorFlag{
	flags.DirectoryServiceRequired,
	flags.DirectoryServicePreferred,
	flags.PDCRequired,
	flags.KDCRequired,
	flags.TimeservRequired,
	flags.GoodTimeservPreferred,
	flags.DirectoryService6Required,
	flags.DirectoryService8Required,
	flags.DirectoryService9Required,
	flags.DirectoryService10Required,
	flags.WebServiceRequired,
	flags.KeyListSupportRequired,
}

// isFullyQualified reports whether the first '.' in name is neither
// the first nor the last character.
func isFullyQualified(name string) bool {
	i := strings.IndexByte(name, '.')
	return i > 0 && i < len(name)-1
}

// rejectIfMultiple fails if two or more flags of set are present
// together, naming exactly the offending subset in the error.
func rejectIfMultiple(f flags.DcLocatorFlagSet, set ...flags.DcLocatorFlag) error {
	if f.CountSet(set...) < 2 {
		return nil
	}
	subset := flags.NewDcLocatorFlagSet(0).With(presentOf(f, set)...)
	return dcerr.Newf(dcerr.Configuration, "dclocator: flags [%s] cannot be combined", subset.String())
}

func presentOf(f flags.DcLocatorFlagSet, set []flags.DcLocatorFlag) []flags.DcLocatorFlag {
	var out []flags.DcLocatorFlag
	for _, x := range set {
		if f.Has(x) {
			out = append(out, x)
		}
	}
	return out
}

// validate checks req against spec.md §4.6's rejection rules, then
// applies the silent normalizations, returning the effective flag
// set. It must run before any DNS or network I/O.
func validate(req Request) (flags.DcLocatorFlagSet, error) {
	if req.ComputerName != "" {
		return flags.DcLocatorFlagSet{}, dcerr.New(dcerr.NotSupported, "dclocator: RPC location against a named computer is not supported")
	}
	if req.DomainName != "" && !isFullyQualified(req.DomainName) {
		return flags.DcLocatorFlagSet{}, dcerr.Newf(dcerr.Configuration, "dclocator: domain name %q must be fully qualified", req.DomainName)
	}

	f := req.Flags

	if f.Has(flags.IsFlatName) {
		return flags.DcLocatorFlagSet{}, dcerr.New(dcerr.Configuration, "dclocator: DS_IS_FLAT_NAME is not supported")
	}
	if f.Has(flags.KeyListSupportRequired) && !f.Has(flags.KDCRequired) {
		return flags.DcLocatorFlagSet{}, dcerr.New(dcerr.Configuration, "dclocator: DS_KEY_LIST_SUPPORT_REQUIRED requires DS_KDC_REQUIRED")
	}
	if f.Has(flags.TryNextClosestSite) && req.SiteName != "" {
		return flags.DcLocatorFlagSet{}, dcerr.New(dcerr.Configuration, "dclocator: DS_TRY_NEXTCLOSEST_SITE cannot be combined with an explicit site name")
	}
	if err := rejectIfMultiple(f, flags.GCServerRequired, flags.PDCRequired, flags.KDCRequired); err != nil {
		return flags.DcLocatorFlagSet{}, err
	}
	if err := rejectIfMultiple(f, flags.IsDNSName, flags.IsFlatName); err != nil {
		return flags.DcLocatorFlagSet{}, err
	}
	if err := rejectIfMultiple(f, flags.ReturnDNSName, flags.ReturnFlatName); err != nil {
		return flags.DcLocatorFlagSet{}, err
	}
	if err := rejectIfMultiple(f,
		flags.DirectoryServiceRequired, flags.DirectoryService6Required,
		flags.DirectoryService8Required, flags.DirectoryService9Required, flags.DirectoryService10Required,
	); err != nil {
		return flags.DcLocatorFlagSet{}, err
	}
	if f.Has(flags.GoodTimeservPreferred) && f.Any(
		flags.GCServerRequired, flags.PDCRequired, flags.KDCRequired, flags.DirectoryServiceRequired,
	) {
		return flags.DcLocatorFlagSet{}, dcerr.New(dcerr.Configuration, "dclocator: DS_GOOD_TIMESERV_PREFERRED cannot be combined with a required-role flag")
	}

	f = f.Without(ignoredFlags...)
	if f.Has(flags.OnlyLDAPNeeded) {
		f = f.Without(onlyLDAPDrops...)
	}
	if f.Has(flags.PDCRequired) || f.Has(flags.ReturnFlatName) {
		f = f.Without(flags.TryNextClosestSite)
	}
	if f.Has(flags.ReturnDNSName) && !f.Has(flags.IPRequired) {
		f = f.With(flags.IPRequired)
	}

	return f, nil
}
