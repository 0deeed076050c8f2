package ldapping

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
)

// Port is the well-known LDAP ping port; AD never publishes this
// service on anything else.
const Port = 389

// udpReadBufferSize is the receive buffer capacity; a response that
// fills it is treated as truncated/malformed (spec.md §4.4).
const udpReadBufferSize = 512

// Send transmits the encoded ping and returns the raw response bytes.
func Send(ctx context.Context, req Request, encoded []byte) ([]byte, error) {
	addr := net.JoinHostPort(req.Hostname, strconv.Itoa(Port))
	switch req.Transport {
	case TransportTCP:
		return sendTCP(ctx, addr, req, encoded)
	default:
		return sendUDP(ctx, addr, req, encoded)
	}
}

func readTimeout(ms int) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func connectTimeout(ms int) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func sendUDP(ctx context.Context, addr string, req Request, encoded []byte) ([]byte, error) {
	dlog.Debugf(ctx, "ldapping: sending UDP ping to %s", addr)

	d := net.Dialer{Timeout: connectTimeout(req.ConnectTimeoutMillis)}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: dial udp "+addr)
	}
	defer conn.Close()

	if _, err := conn.Write(encoded); err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: write udp "+addr)
	}

	if rt := readTimeout(req.ReadTimeoutMillis); rt > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(rt))
	}

	buf := make([]byte, udpReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: read udp "+addr)
	}
	if n == 0 {
		return nil, dcerr.New(dcerr.Communication, "ldapping: empty UDP response from "+addr)
	}
	if n == udpReadBufferSize {
		return nil, dcerr.Newf(dcerr.Communication, "ldapping: UDP response from %s may be truncated", addr)
	}
	return buf[:n], nil
}

func sendTCP(ctx context.Context, addr string, req Request, encoded []byte) ([]byte, error) {
	dlog.Debugf(ctx, "ldapping: sending TCP ping to %s", addr)

	d := net.Dialer{Timeout: connectTimeout(req.ConnectTimeoutMillis)}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: dial tcp "+addr)
	}
	defer conn.Close()

	if rt := readTimeout(req.ReadTimeoutMillis); rt > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(rt))
	}

	if _, err := conn.Write(encoded); err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: write tcp "+addr)
	}

	// AD responses are always small; a single read is sufficient.
	buf := make([]byte, udpReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: read tcp "+addr)
	}
	if n == 0 {
		return nil, dcerr.New(dcerr.Communication, "ldapping: remote closed tcp connection to "+addr)
	}
	return buf[:n], nil
}

// Ping performs a full ping round-trip: encode the request, send it
// over the configured transport, and decode the response down to the
// raw Netlogon attribute value.
func Ping(ctx context.Context, req Request) ([]byte, error) {
	if req.Hostname == "" {
		return nil, dcerr.New(dcerr.Configuration, "ldapping: hostname is required")
	}
	encoded := EncodeRequest(req)
	resp, err := Send(ctx, req, encoded)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(ctx, resp)
}
