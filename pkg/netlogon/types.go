package netlogon

import (
	"net"

	"github.com/google/uuid"

	"github.com/dclocate/dclocator/pkg/flags"
)

// Opcode identifies which SAM Logon response layout is on the wire.
type Opcode uint16

const (
	// OpSamLogonResponse covers both the NT40 and V5 layouts; which
	// one applies is decided by the NtVersion bits the caller
	// requested, not by anything on the wire (spec.md §4.5).
	OpSamLogonResponse Opcode = 19
	// OpSamLogonResponseEx is the V5EX layout.
	OpSamLogonResponseEx Opcode = 23
)

// Nt40Response is the legacy (pre-Windows 2000) SAM Logon response.
type Nt40Response struct {
	LogonServer string
	UserName    string
	DomainName  string
	NtVersion   flags.NtVersionSet
}

// V5Response is the Windows 2000-era SAM Logon response, carrying the
// DNS identity of the domain alongside the NT4-style names.
type V5Response struct {
	LogonServer   string
	UserName      string
	DomainName    string
	DomainGUID    uuid.UUID
	DNSForestName string
	DNSDomainName string
	DNSHostName   string
	DCIPAddress   net.IP
	DsFlags       flags.DsFlagSet
	NtVersion     flags.NtVersionSet
}

// V5ExResponse is the current (Windows 2000+ "Ex") SAM Logon
// response.
type V5ExResponse struct {
	DsFlags             flags.DsFlagSet
	DomainGUID          uuid.UUID
	DNSForestName       string
	DNSDomainName       string
	DNSHostName         string
	NetbiosDomainName   string
	NetbiosComputerName string
	UserName            string
	DCSiteName          string
	ClientSiteName      string
	DCSockAddr          net.IP // present only when NtVersion has V5EP
	NextClosestSiteName string // present only when NtVersion has VCS
	NtVersion            flags.NtVersionSet
}

// Response is the decoded SAM Logon response, exactly one of whose
// fields is non-nil depending on the variant the DC returned.
type Response struct {
	Nt40 *Nt40Response
	V5   *V5Response
	V5Ex *V5ExResponse
}
