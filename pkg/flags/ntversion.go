package flags

// NetlogonNtVersion is the NtVer bit-vector negotiated in an LDAP ping
// request and echoed (possibly extended) in the Netlogon response; it
// governs which of the three response variants gets decoded.
type NetlogonNtVersion uint32

const (
	V1   NetlogonNtVersion = 0x00000001
	V5   NetlogonNtVersion = 0x00000002
	V5EX NetlogonNtVersion = 0x00000004
	V5EP NetlogonNtVersion = 0x00000008
	VCS  NetlogonNtVersion = 0x00000010
	VNT4 NetlogonNtVersion = 0x01000000
	VPDC NetlogonNtVersion = 0x10000000
	VIP  NetlogonNtVersion = 0x20000000
	VL   NetlogonNtVersion = 0x40000000
	VGC  NetlogonNtVersion = 0x80000000
)

var ntVersionTable = []entry{
	{"V1", uint32(V1)},
	{"V5", uint32(V5)},
	{"V5EX", uint32(V5EX)},
	{"V5EP", uint32(V5EP)},
	{"VCS", uint32(VCS)},
	{"VNT4", uint32(VNT4)},
	{"VPDC", uint32(VPDC)},
	{"VIP", uint32(VIP)},
	{"VL", uint32(VL)},
	{"VGC", uint32(VGC)},
}

// NtVersionSet is an immutable set of NetlogonNtVersion bits.
type NtVersionSet struct{ bits uint32 }

func NewNtVersionSet(bits uint32) NtVersionSet { return NtVersionSet{bits: bits} }

func ParseNtVersionSet(s string) (NtVersionSet, error) {
	bits, err := parse(s, ntVersionTable)
	if err != nil {
		return NtVersionSet{}, err
	}
	return NtVersionSet{bits: bits}, nil
}

func (s NtVersionSet) Bits() uint32 { return s.bits }
func (s NtVersionSet) String() string { return format(s.bits, ntVersionTable) }
func (s NtVersionSet) Has(f NetlogonNtVersion) bool { return has(s.bits, uint32(f)) }

// HasAll reports whether every flag in fs is present.
func (s NtVersionSet) HasAll(fs ...NetlogonNtVersion) bool {
	var m uint32
	for _, f := range fs {
		m |= uint32(f)
	}
	return has(s.bits, m)
}

// With returns a copy of the set with the given flags added.
func (s NtVersionSet) With(fs ...NetlogonNtVersion) NtVersionSet {
	bits := s.bits
	for _, f := range fs {
		bits |= uint32(f)
	}
	return NtVersionSet{bits: bits}
}

// IsSupersetOf reports whether s contains every bit in other. The
// netlogon decoders do not call it: each checks only the bits its own
// variant requires (V1, plus V5 or V5EX), not the full requested set.
func (s NtVersionSet) IsSupersetOf(other NtVersionSet) bool {
	return s.bits&other.bits == other.bits
}
