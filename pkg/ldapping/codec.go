// Package ldapping implements the minimal LDAP "ping" used to probe a
// domain controller: a hand-rolled BER encoder for the SearchRequest
// (spec.md §4.3) and matching decoder for the SearchResultEntry/
// SearchResultDone response stream, plus the UDP/TCP transport that
// carries them (spec.md §4.4).
package ldapping

import (
	"context"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
	"github.com/dclocate/dclocator/pkg/flags"
)

// Request is the input to a single LDAP ping (spec.md §3
// LdapPingRequest).
type Request struct {
	Hostname    string
	NtVersion   flags.NtVersionSet
	Transport   Transport // defaults to TransportUDP
	DnsDomain   string
	DnsHostName string

	ConnectTimeoutMillis int // <0 means "use system default"
	ReadTimeoutMillis    int
}

// Transport selects the ping's wire transport.
type Transport int

const (
	TransportUDP Transport = iota
	TransportTCP
)

// EncodeRequest builds the BER-encoded LDAPMessage for req, per
// spec.md §4.3.
func EncodeRequest(req Request) []byte {
	messageID := encodeInteger(tagInteger, 1)

	baseObject := encodeOctetString(tagOctetString, nil)
	scope := encodeInteger(tagEnumerated, 0)
	derefAliases := encodeInteger(tagEnumerated, 0)
	sizeLimit := encodeInteger(tagInteger, 0)
	timeLimit := encodeInteger(tagInteger, 0)
	typesOnly := encodeBoolean(tagBoolean, false)

	filter := encodeFilter(req)

	attrList := tlv(tagOctetString, []byte("Netlogon"))
	attributes := tlv(tagSequence, attrList)

	searchRequestContent := concat(
		baseObject, scope, derefAliases, sizeLimit, timeLimit, typesOnly, filter, attributes,
	)
	searchRequest := tlv(tagSearchRequest, searchRequestContent)

	message := tlv(tagSequence, concat(messageID, searchRequest))
	return message
}

// encodeFilter builds the context-specific "and" filter containing
// one to three equalityMatch terms: NtVer is always present,
// DnsDomain/DnsHostName only when non-empty.
func encodeFilter(req Request) []byte {
	ntVerBytes := []byte{
		byte(req.NtVersion.Bits()),
		byte(req.NtVersion.Bits() >> 8),
		byte(req.NtVersion.Bits() >> 16),
		byte(req.NtVersion.Bits() >> 24),
	}
	terms := [][]byte{equalityMatch("NtVer", ntVerBytes)}
	if req.DnsDomain != "" {
		terms = append(terms, equalityMatch("DnsDomain", []byte(req.DnsDomain)))
	}
	if req.DnsHostName != "" {
		terms = append(terms, equalityMatch("DnsHostName", []byte(req.DnsHostName)))
	}
	return tlv(tagFilterAnd, concat(terms...))
}

func equalityMatch(attr string, value []byte) []byte {
	content := concat(
		encodeOctetString(tagOctetString, []byte(attr)),
		encodeOctetString(tagOctetString, value),
	)
	return tlv(tagFilterEquality, content)
}

// DecodeResponse parses the stream of LDAPMessages in data, up to and
// including the terminating SearchResultDone, and returns the raw
// Netlogon attribute value.
func DecodeResponse(ctx context.Context, data []byte) ([]byte, error) {
	r := newBERReader(data)

	var netlogonValue []byte
	var haveValue bool
	var done bool

	for r.hasMore() && !done {
		_, msgContent, err := r.readTLV() // outer LDAPMessage SEQUENCE
		if err != nil {
			return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode LDAPMessage")
		}
		mr := newBERReader(msgContent)
		if _, _, err := mr.readTLV(); err != nil { // messageID
			return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode messageID")
		}
		opTag, opContent, err := mr.readTLV()
		if err != nil {
			return nil, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode protocolOp")
		}

		switch opTag {
		case tagSearchResultEntry:
			val, found, err := decodeSearchResultEntry(ctx, opContent)
			if err != nil {
				return nil, err
			}
			if found {
				if haveValue {
					dlog.Debug(ctx, "ldapping: duplicate Netlogon attribute value ignored")
				} else {
					netlogonValue = val
					haveValue = true
				}
			}
		case tagSearchResultDone:
			if err := checkResultDone(opContent); err != nil {
				return nil, err
			}
			done = true
		default:
			return nil, dcerr.Newf(dcerr.Communication, "ldapping: unexpected protocolOp tag 0x%02x", opTag)
		}
	}

	if !done {
		return nil, dcerr.New(dcerr.Communication, "ldapping: response stream ended without SearchResultDone")
	}
	if !haveValue {
		return nil, dcerr.New(dcerr.NoSuchAttribute, "ldapping: no Netlogon attribute in response")
	}
	return netlogonValue, nil
}

// decodeSearchResultEntry skips objectName and scans the
// PartialAttributeList for a case-insensitive "Netlogon" attribute,
// returning its first value.
func decodeSearchResultEntry(ctx context.Context, content []byte) (value []byte, found bool, err error) {
	er := newBERReader(content)
	if _, _, err := er.readTLV(); err != nil { // objectName
		return nil, false, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode objectName")
	}
	_, attrListContent, err := er.readTLV() // PartialAttributeList SEQUENCE
	if err != nil {
		return nil, false, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode PartialAttributeList")
	}

	ar := newBERReader(attrListContent)
	for ar.hasMore() {
		_, attrContent, err := ar.readTLV() // PartialAttribute SEQUENCE
		if err != nil {
			return nil, false, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode PartialAttribute")
		}
		pr := newBERReader(attrContent)
		_, typeBytes, err := pr.readTLV() // type OCTET STRING
		if err != nil {
			return nil, false, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode attribute type")
		}
		_, valsContent, err := pr.readTLV() // vals SET OF OCTET STRING
		if err != nil {
			return nil, false, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode attribute values")
		}
		if !strings.EqualFold(string(typeBytes), "Netlogon") {
			continue
		}
		vr := newBERReader(valsContent)
		if !vr.hasMore() {
			continue
		}
		_, first, err := vr.readTLV()
		if err != nil {
			return nil, false, dcerr.Wrap(dcerr.Communication, err, "ldapping: decode Netlogon value")
		}
		if found {
			dlog.Debug(ctx, "ldapping: duplicate Netlogon value within entry ignored")
			continue
		}
		value = first
		found = true
	}
	return value, found, nil
}

// checkResultDone validates the LDAPResult embedded in a
// SearchResultDone, failing with a protocol error if resultCode != 0.
func checkResultDone(content []byte) error {
	dr := newBERReader(content)
	_, codeBytes, err := dr.readTLV()
	if err != nil {
		return dcerr.Wrap(dcerr.Communication, err, "ldapping: decode resultCode")
	}
	code, err := decodeInteger(codeBytes)
	if err != nil {
		return dcerr.Wrap(dcerr.Communication, err, "ldapping: decode resultCode")
	}
	if code == 0 {
		return nil
	}
	var diag string
	if _, _, err := dr.readTLV(); err == nil { // matchedDN
		if dr.hasMore() {
			if _, diagBytes, err := dr.readTLV(); err == nil { // diagnosticMessage
				diag = string(diagBytes)
			}
		}
	}
	if diag != "" {
		return dcerr.Newf(dcerr.Communication, "ldapping: SearchResultDone resultCode=%d: %s", code, diag)
	}
	return dcerr.Newf(dcerr.Communication, "ldapping: SearchResultDone resultCode=%d", code)
}
