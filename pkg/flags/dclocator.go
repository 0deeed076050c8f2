package flags

// DcLocatorFlag is the bit-vector of capability/behavior flags a
// caller passes into the DC locator, mirroring the DS_* flags accepted
// by the Windows DsGetDcName family of APIs.
type DcLocatorFlag uint32

const (
	ForceRediscovery           DcLocatorFlag = 0x00000001
	DirectoryServiceRequired   DcLocatorFlag = 0x00000010
	DirectoryServicePreferred  DcLocatorFlag = 0x00000020
	GCServerRequired           DcLocatorFlag = 0x00000040
	PDCRequired                DcLocatorFlag = 0x00000080
	BackgroundOnly             DcLocatorFlag = 0x00000100
	IPRequired                 DcLocatorFlag = 0x00000200
	KDCRequired                DcLocatorFlag = 0x00000400
	TimeservRequired           DcLocatorFlag = 0x00000800
	WritableRequired           DcLocatorFlag = 0x00001000
	GoodTimeservPreferred      DcLocatorFlag = 0x00002000
	AvoidSelf                  DcLocatorFlag = 0x00004000
	OnlyLDAPNeeded             DcLocatorFlag = 0x00008000
	IsFlatName                 DcLocatorFlag = 0x00010000
	IsDNSName                  DcLocatorFlag = 0x00020000
	TryNextClosestSite         DcLocatorFlag = 0x00040000
	DirectoryService6Required  DcLocatorFlag = 0x00080000
	WebServiceRequired         DcLocatorFlag = 0x00100000
	DirectoryService8Required  DcLocatorFlag = 0x00200000
	DirectoryService9Required  DcLocatorFlag = 0x00400000
	DirectoryService10Required DcLocatorFlag = 0x00800000
	KeyListSupportRequired     DcLocatorFlag = 0x01000000
	ReturnDNSName              DcLocatorFlag = 0x40000000
	ReturnFlatName             DcLocatorFlag = 0x80000000
)

// dcLocatorTable lists the enumerators in declaration order; this is
// also the order they're joined in the canonical string form.
var dcLocatorTable = []entry{
	{"DS_FORCE_REDISCOVERY", uint32(ForceRediscovery)},
	{"DS_DIRECTORY_SERVICE_REQUIRED", uint32(DirectoryServiceRequired)},
	{"DS_DIRECTORY_SERVICE_PREFERRED", uint32(DirectoryServicePreferred)},
	{"DS_GC_SERVER_REQUIRED", uint32(GCServerRequired)},
	{"DS_PDC_REQUIRED", uint32(PDCRequired)},
	{"DS_BACKGROUND_ONLY", uint32(BackgroundOnly)},
	{"DS_IP_REQUIRED", uint32(IPRequired)},
	{"DS_KDC_REQUIRED", uint32(KDCRequired)},
	{"DS_TIMESERV_REQUIRED", uint32(TimeservRequired)},
	{"DS_WRITABLE_REQUIRED", uint32(WritableRequired)},
	{"DS_GOOD_TIMESERV_PREFERRED", uint32(GoodTimeservPreferred)},
	{"DS_AVOID_SELF", uint32(AvoidSelf)},
	{"DS_ONLY_LDAP_NEEDED", uint32(OnlyLDAPNeeded)},
	{"DS_IS_FLAT_NAME", uint32(IsFlatName)},
	{"DS_IS_DNS_NAME", uint32(IsDNSName)},
	{"DS_TRY_NEXTCLOSEST_SITE", uint32(TryNextClosestSite)},
	{"DS_DIRECTORY_SERVICE_6_REQUIRED", uint32(DirectoryService6Required)},
	{"DS_WEB_SERVICE_REQUIRED", uint32(WebServiceRequired)},
	{"DS_DIRECTORY_SERVICE_8_REQUIRED", uint32(DirectoryService8Required)},
	{"DS_DIRECTORY_SERVICE_9_REQUIRED", uint32(DirectoryService9Required)},
	{"DS_DIRECTORY_SERVICE_10_REQUIRED", uint32(DirectoryService10Required)},
	{"DS_KEY_LIST_SUPPORT_REQUIRED", uint32(KeyListSupportRequired)},
	{"DS_RETURN_DNS_NAME", uint32(ReturnDNSName)},
	{"DS_RETURN_FLAT_NAME", uint32(ReturnFlatName)},
}

// DcLocatorFlagSet is an immutable set of DcLocatorFlag bits.
type DcLocatorFlagSet struct{ bits uint32 }

// NewDcLocatorFlagSet builds a set from an int bit-vector.
func NewDcLocatorFlagSet(bits uint32) DcLocatorFlagSet {
	return DcLocatorFlagSet{bits: bits}
}

// ParseDcLocatorFlagSet parses a canonical "NAME|NAME" string.
func ParseDcLocatorFlagSet(s string) (DcLocatorFlagSet, error) {
	bits, err := parse(s, dcLocatorTable)
	if err != nil {
		return DcLocatorFlagSet{}, err
	}
	return DcLocatorFlagSet{bits: bits}, nil
}

// Bits returns the underlying int bit-vector.
func (s DcLocatorFlagSet) Bits() uint32 { return s.bits }

// String renders the set in canonical "NAME|NAME" form.
func (s DcLocatorFlagSet) String() string { return format(s.bits, dcLocatorTable) }

// Has reports whether every flag in f is present in the set.
func (s DcLocatorFlagSet) Has(f DcLocatorFlag) bool { return has(s.bits, uint32(f)) }

// Any reports whether at least one flag in mask is present.
func (s DcLocatorFlagSet) Any(mask ...DcLocatorFlag) bool {
	var m uint32
	for _, f := range mask {
		m |= uint32(f)
	}
	return anySet(s.bits, m)
}

// Without returns a copy of the set with the given flags cleared.
func (s DcLocatorFlagSet) Without(fs ...DcLocatorFlag) DcLocatorFlagSet {
	bits := s.bits
	for _, f := range fs {
		bits &^= uint32(f)
	}
	return DcLocatorFlagSet{bits: bits}
}

// With returns a copy of the set with the given flags set.
func (s DcLocatorFlagSet) With(fs ...DcLocatorFlag) DcLocatorFlagSet {
	bits := s.bits
	for _, f := range fs {
		bits |= uint32(f)
	}
	return DcLocatorFlagSet{bits: bits}
}

// CountSet returns how many of the given flags (treated as independent
// single-bit groups) are present in the set; used to detect
// mutually-exclusive combinations.
func (s DcLocatorFlagSet) CountSet(fs ...DcLocatorFlag) int {
	mask := make([]uint32, len(fs))
	for i, f := range fs {
		mask[i] = uint32(f)
	}
	return count(s.bits, mask)
}
