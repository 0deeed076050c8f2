package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDcLocatorFlagSetRoundTrip(t *testing.T) {
	sets := []DcLocatorFlagSet{
		NewDcLocatorFlagSet(0),
		NewDcLocatorFlagSet(uint32(GCServerRequired)),
		NewDcLocatorFlagSet(uint32(OnlyLDAPNeeded | ReturnDNSName | IPRequired)),
		NewDcLocatorFlagSet(uint32(KDCRequired | KeyListSupportRequired | TryNextClosestSite)),
	}
	for _, s := range sets {
		str := s.String()
		parsed, err := ParseDcLocatorFlagSet(str)
		require.NoError(t, err)
		assert.Equal(t, s.Bits(), parsed.Bits())
	}
}

func TestDcLocatorFlagSetStringOrder(t *testing.T) {
	s := NewDcLocatorFlagSet(uint32(PDCRequired | ForceRediscovery))
	assert.Equal(t, "DS_FORCE_REDISCOVERY|DS_PDC_REQUIRED", s.String())
}

func TestDcLocatorFlagSetParseUnknownToken(t *testing.T) {
	_, err := ParseDcLocatorFlagSet("DS_PDC_REQUIRED|DS_NOT_A_REAL_FLAG")
	require.Error(t, err)
}

func TestDsFlagSetRoundTrip(t *testing.T) {
	sets := []DsFlagSet{
		NewDsFlagSet(0),
		NewDsFlagSet(uint32(FD | FL | FK | FW | FDNS | FDM | FF)),
		NewDsFlagSet(uint32(FP | FC)),
	}
	for _, s := range sets {
		parsed, err := ParseDsFlagSet(s.String())
		require.NoError(t, err)
		assert.Equal(t, s.Bits(), parsed.Bits())
	}
}

func TestNtVersionSetRoundTrip(t *testing.T) {
	sets := []NtVersionSet{
		NewNtVersionSet(uint32(V1 | V5EX)),
		NewNtVersionSet(uint32(V1 | V5 | V5EX | V5EP | VCS | VGC | VPDC)),
	}
	for _, s := range sets {
		parsed, err := ParseNtVersionSet(s.String())
		require.NoError(t, err)
		assert.Equal(t, s.Bits(), parsed.Bits())
	}
}

func TestNtVersionSetIsSupersetOf(t *testing.T) {
	requested := NewNtVersionSet(uint32(V1 | V5EX))
	decoded := NewNtVersionSet(uint32(V1 | V5EX | V5EP | VCS))
	assert.True(t, decoded.IsSupersetOf(requested))
	assert.False(t, requested.IsSupersetOf(decoded))
}

func TestDcLocatorFlagSetCountSet(t *testing.T) {
	s := NewDcLocatorFlagSet(uint32(GCServerRequired | PDCRequired))
	assert.Equal(t, 2, s.CountSet(GCServerRequired, PDCRequired, KDCRequired))
}
