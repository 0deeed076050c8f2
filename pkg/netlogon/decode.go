package netlogon

import (
	"context"
	"encoding/binary"
	"net"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
	"github.com/dclocate/dclocator/pkg/flags"
)

// Decode parses a raw Netlogon attribute value into one of the three
// SAM Logon response variants. The wire opcode picks V5EX
// unambiguously, but both the NT40 and V5 layouts share opcode 19;
// disambiguating those two is done from the NtVersion bits the caller
// originally requested, exactly as the DC itself decides which
// layout to send (spec.md §4.5).
func Decode(ctx context.Context, data []byte, requested flags.NtVersionSet) (Response, error) {
	if len(data) < 2 {
		return Response{}, dcerr.New(dcerr.Communication, "netlogon: response shorter than opcode field")
	}
	opcode := Opcode(binary.LittleEndian.Uint16(data[0:2]))

	switch opcode {
	case OpSamLogonResponseEx:
		v5ex, err := decodeV5Ex(ctx, data)
		if err != nil {
			return Response{}, err
		}
		return Response{V5Ex: v5ex}, nil
	case OpSamLogonResponse:
		if requested.Has(flags.V5) {
			v5, err := decodeV5(ctx, data)
			if err != nil {
				return Response{}, err
			}
			return Response{V5: v5}, nil
		}
		nt40, err := decodeNt40(data)
		if err != nil {
			return Response{}, err
		}
		return Response{Nt40: nt40}, nil
	default:
		return Response{}, dcerr.Newf(dcerr.Communication, "netlogon: unrecognized opcode %d", opcode)
	}
}

func readLmTokens(buf []byte, pos int) (consumed int, err error) {
	if pos+4 > len(buf) {
		return 0, dcerr.New(dcerr.Communication, "netlogon: truncated LmTokens")
	}
	lmNtToken := binary.LittleEndian.Uint16(buf[pos : pos+2])
	lm20Token := binary.LittleEndian.Uint16(buf[pos+2 : pos+4])
	if lmNtToken == 0 || lm20Token == 0 {
		return 0, dcerr.New(dcerr.Communication, "netlogon: LmTokens must both be non-zero")
	}
	return 4, nil
}

func decodeNt40(data []byte) (*Nt40Response, error) {
	pos := 2

	logonServer, n, err := readUnicodeString(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode NT40 UnicodeLogonServer")
	}
	pos += n

	userName, n, err := readUnicodeString(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode NT40 UnicodeUserName")
	}
	pos += n

	domainName, n, err := readUnicodeString(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode NT40 UnicodeDomainName")
	}
	pos += n

	if pos+4 > len(data) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: truncated NT40 NtVersion")
	}
	ntVersion := flags.NewNtVersionSet(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if !ntVersion.Has(flags.V1) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: NT40 response NtVersion missing V1")
	}

	consumed, err := readLmTokens(data, pos)
	if err != nil {
		return nil, err
	}
	pos += consumed

	if pos != len(data) {
		return nil, dcerr.Newf(dcerr.Communication, "netlogon: NT40 response has %d trailing bytes", len(data)-pos)
	}

	return &Nt40Response{
		LogonServer: logonServer,
		UserName:    userName,
		DomainName:  domainName,
		NtVersion:   ntVersion,
	}, nil
}

func decodeV5(ctx context.Context, data []byte) (*V5Response, error) {
	pos := 2

	logonServer, n, err := readUnicodeString(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5 UnicodeLogonServer")
	}
	pos += n

	userName, n, err := readUnicodeString(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5 UnicodeUserName")
	}
	pos += n

	domainName, n, err := readUnicodeString(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5 UnicodeDomainName")
	}
	pos += n

	domainGUID, err := readGUID(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5 DomainGuid")
	}
	pos += 16

	if pos+16 > len(data) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: truncated V5 NullGuid")
	}
	if !isAllZero(data, pos, 16) {
		dlog.Debug(ctx, "netlogon: V5 NullGuid field was not all-zero, ignoring")
	}
	pos += 16

	dnsForestName, n, err := readCompressedName(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5 DnsForestName")
	}
	pos += n

	dnsDomainName, n, err := readCompressedName(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5 DnsDomainName")
	}
	pos += n

	dnsHostName, n, err := readCompressedName(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5 DnsHostName")
	}
	pos += n
	if dnsDomainName == "" || dnsHostName == "" {
		return nil, dcerr.New(dcerr.Communication, "netlogon: V5 response missing required DNS names")
	}

	if pos+4 > len(data) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: truncated V5 DcIpAddress")
	}
	ipBytes := data[pos : pos+4]
	// The address is stored byte-reversed on the wire.
	dcIP := net.IPv4(ipBytes[3], ipBytes[2], ipBytes[1], ipBytes[0])
	pos += 4

	if pos+4 > len(data) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: truncated V5 Flags")
	}
	dsFlags := flags.NewDsFlagSet(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4

	if pos+4 > len(data) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: truncated V5 NtVersion")
	}
	ntVersion := flags.NewNtVersionSet(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if !ntVersion.HasAll(flags.V1, flags.V5) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: V5 response NtVersion missing V1|V5")
	}

	consumed, err := readLmTokens(data, pos)
	if err != nil {
		return nil, err
	}
	pos += consumed

	if pos != len(data) {
		return nil, dcerr.Newf(dcerr.Communication, "netlogon: V5 response has %d trailing bytes", len(data)-pos)
	}

	return &V5Response{
		LogonServer:   logonServer,
		UserName:      userName,
		DomainName:    domainName,
		DomainGUID:    domainGUID,
		DNSForestName: dnsForestName,
		DNSDomainName: dnsDomainName,
		DNSHostName:   dnsHostName,
		DCIPAddress:   dcIP,
		DsFlags:       dsFlags,
		NtVersion:     ntVersion,
	}, nil
}

// decodeV5Ex decodes the V5EX layout. The trailing NtVersion/LmTokens
// pair always occupies the last 8 bytes of the buffer; the optional
// DcSockAddr and NextClosestSiteName fields that precede it are only
// present depending on bits in that trailing NtVersion, so it must be
// peeked before those fields are parsed (spec.md §4.5, §9).
func decodeV5Ex(ctx context.Context, data []byte) (*V5ExResponse, error) {
	pos := 2 // opcode
	pos += 2 // Sbz

	if pos+4 > len(data) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: truncated V5EX Flags")
	}
	dsFlags := flags.NewDsFlagSet(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4

	domainGUID, err := readGUID(data, pos)
	if err != nil {
		return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5EX DomainGuid")
	}
	pos += 16

	names := make([]string, 0, 8)
	for _, label := range []string{
		"DnsForestName", "DnsDomainName", "DnsHostName",
		"NetbiosDomainName", "NetbiosComputerName", "UserName",
		"DcSiteName", "ClientSiteName",
	} {
		name, n, err := readCompressedName(data, pos)
		if err != nil {
			return nil, dcerr.Wrapf(dcerr.Communication, err, "netlogon: decode V5EX %s", label)
		}
		pos += n
		names = append(names, name)
	}
	dnsForestName, dnsDomainName, dnsHostName := names[0], names[1], names[2]
	netbiosDomainName, netbiosComputerName, userName := names[3], names[4], names[5]
	dcSiteName, clientSiteName := names[6], names[7]

	if dnsForestName == "" || dnsDomainName == "" || dnsHostName == "" || dcSiteName == "" {
		return nil, dcerr.New(dcerr.Communication, "netlogon: V5EX response missing required names")
	}

	if len(data) < 8 {
		return nil, dcerr.New(dcerr.Communication, "netlogon: V5EX response too short for trailing NtVersion")
	}
	ntVerOffset := len(data) - 8
	if ntVerOffset < pos {
		return nil, dcerr.New(dcerr.Communication, "netlogon: V5EX response too short for its fixed-position fields")
	}
	peeked := flags.NewNtVersionSet(binary.LittleEndian.Uint32(data[ntVerOffset : ntVerOffset+4]))

	var dcSockAddr net.IP
	if peeked.Has(flags.V5EP) {
		if pos+17 > len(data) {
			return nil, dcerr.New(dcerr.Communication, "netlogon: truncated V5EX DcSockAddr")
		}
		sockAddr := data[pos+1 : pos+17] // skip the 1-byte size prefix
		family := binary.LittleEndian.Uint16(sockAddr[0:2])
		const afINet = 2
		if family == afINet {
			port := sockAddr[2:4]
			_ = port
			addr := sockAddr[4:8]
			dcSockAddr = net.IPv4(addr[0], addr[1], addr[2], addr[3])
		} else {
			dlog.Debugf(ctx, "netlogon: ignoring V5EX DcSockAddr with unsupported family %d", family)
		}
		pos += 17
	}

	var nextClosestSiteName string
	if peeked.Has(flags.VCS) {
		name, n, err := readCompressedName(data, pos)
		if err != nil {
			return nil, dcerr.Wrap(dcerr.Communication, err, "netlogon: decode V5EX NextClosestSiteName")
		}
		nextClosestSiteName = name
		pos += n
	}

	if pos != ntVerOffset {
		return nil, dcerr.Newf(dcerr.Communication, "netlogon: V5EX optional fields consumed to %d, expected %d", pos, ntVerOffset)
	}

	ntVersion := flags.NewNtVersionSet(binary.LittleEndian.Uint32(data[pos : pos+4]))
	if !ntVersion.HasAll(flags.V1, flags.V5EX) {
		return nil, dcerr.New(dcerr.Communication, "netlogon: V5EX response NtVersion missing V1|V5EX")
	}
	pos += 4

	consumed, err := readLmTokens(data, pos)
	if err != nil {
		return nil, err
	}
	pos += consumed

	if pos != len(data) {
		return nil, dcerr.Newf(dcerr.Communication, "netlogon: V5EX response has %d trailing bytes", len(data)-pos)
	}

	return &V5ExResponse{
		DsFlags:             dsFlags,
		DomainGUID:          domainGUID,
		DNSForestName:       dnsForestName,
		DNSDomainName:       dnsDomainName,
		DNSHostName:         dnsHostName,
		NetbiosDomainName:   netbiosDomainName,
		NetbiosComputerName: netbiosComputerName,
		UserName:            userName,
		DCSiteName:          dcSiteName,
		ClientSiteName:      clientSiteName,
		DCSockAddr:          dcSockAddr,
		NextClosestSiteName: nextClosestSiteName,
		NtVersion:           ntVersion,
	}, nil
}
