package dnslocator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
)

type fakeExchanger struct {
	records []Record
	err     error
}

func (f *fakeExchanger) exchange(ctx context.Context, name string, timeout time.Duration) ([]Record, error) {
	return f.records, f.err
}

func newTestContext(t *testing.T) context.Context {
	return dlog.NewTestContext(t, false)
}

func TestLookupReturnsEmptyForServiceNotProvidedSentinel(t *testing.T) {
	l := &Locator{exchanger: &fakeExchanger{records: []Record{{Target: "."}}}}
	hosts, err := l.Lookup(newTestContext(t), Request{Service: ServiceLDAP, DCType: DCTypeDC, Domain: "example.com"})
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestLookupPropagatesUnderlyingError(t *testing.T) {
	l := &Locator{exchanger: &fakeExchanger{err: dcerr.New(dcerr.NameNotFound, "no such SRV name")}}
	_, err := l.Lookup(newTestContext(t), Request{Service: ServiceLDAP, DCType: DCTypeDC, Domain: "example.com"})
	require.Error(t, err)
	assert.True(t, dcerr.Is(err, dcerr.NameNotFound))
}

func TestLookupAppliesSelection(t *testing.T) {
	l := &Locator{exchanger: &fakeExchanger{records: []Record{
		{Priority: 1, Weight: 0, Port: 389, Target: "dc2.example.com."},
		{Priority: 0, Weight: 0, Port: 389, Target: "dc1.example.com."},
	}}}
	hosts, err := l.Lookup(newTestContext(t), Request{Service: ServiceLDAP, DCType: DCTypeDC, Domain: "example.com"})
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "dc1.example.com", hosts[0].Hostname)
	assert.Equal(t, "dc2.example.com", hosts[1].Hostname)
}

func TestLocatorBuilderRejectsMutationAfterBuild(t *testing.T) {
	b := NewLocatorBuilder().WithReadTimeoutMillis(500)
	b.Build()
	assert.Panics(t, func() {
		b.WithReadTimeoutMillis(1000)
	})
}
