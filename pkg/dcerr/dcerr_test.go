package dcerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesKindAndCause(t *testing.T) {
	root := assert.AnError
	err := Wrap(Communication, root, "dial 10.0.0.5:389")
	require.True(t, Is(err, Communication))
	require.False(t, Is(err, Configuration))
	assert.Equal(t, root, Cause(err))
	assert.Contains(t, err.Error(), "dial 10.0.0.5:389")
	assert.Contains(t, err.Error(), root.Error())
}

func TestNewHasNoCause(t *testing.T) {
	err := New(ServiceUnavailable, "no candidates survived")
	require.True(t, Is(err, ServiceUnavailable))
	assert.Equal(t, "no candidates survived", err.Error())
	assert.Equal(t, err, Cause(err))
}

func TestNewfAndWrapf(t *testing.T) {
	err := Newf(Configuration, "domain %q is not fully qualified", "foo")
	assert.Equal(t, `domain "foo" is not fully qualified`, err.Error())

	wrapped := Wrapf(Communication, assert.AnError, "probe %s failed", "dc1.example.com")
	require.True(t, Is(wrapped, Communication))
	assert.Contains(t, wrapped.Error(), "probe dc1.example.com failed")
}
