package dnslocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryName(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "ldap tcp dc",
			req:  Request{Service: ServiceLDAP, Transport: TransportTCP, DCType: DCTypeDC, Domain: "example.com"},
			want: "_ldap._tcp.dc._msdcs.example.com",
		},
		{
			name: "ldap gc with site",
			req:  Request{Service: ServiceLDAP, Transport: TransportTCP, SiteName: "Site1", DCType: DCTypeGC, Domain: "example.com"},
			want: "_ldap._tcp.Site1._sites.gc._msdcs.example.com",
		},
		{
			name: "empty transport defaults to tcp",
			req:  Request{Service: ServiceLDAP, DCType: DCTypeDC, Domain: "example.com"},
			want: "_ldap._tcp.dc._msdcs.example.com",
		},
		{
			name: "broad lookup, no site no dctype",
			req:  Request{Service: ServiceLDAP, Transport: TransportTCP, Domain: "example.com"},
			want: "_ldap._tcp.example.com",
		},
		{
			name: "kerberos",
			req:  Request{Service: ServiceKerberos, Transport: TransportUDP, DCType: DCTypeDC, Domain: "corp.example.com"},
			want: "_kerberos._udp.dc._msdcs.corp.example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryName(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryNameRequiresServiceAndDomain(t *testing.T) {
	_, err := QueryName(Request{Domain: "example.com"})
	require.Error(t, err)

	_, err = QueryName(Request{Service: ServiceLDAP})
	require.Error(t, err)
}
