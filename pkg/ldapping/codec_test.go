package ldapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/dlib/dlog"

	"github.com/dclocate/dclocator/pkg/dcerr"
	"github.com/dclocate/dclocator/pkg/flags"
)

func TestEncodeRequestV1V5EX(t *testing.T) {
	req := Request{
		Hostname:  "dc1.example.com",
		NtVersion: flags.NewNtVersionSet(uint32(flags.V1 | flags.V5EX)),
	}
	got := EncodeRequest(req)

	want := tlv(tagSequence, concat(
		encodeInteger(tagInteger, 1),
		tlv(tagSearchRequest, concat(
			encodeOctetString(tagOctetString, nil),
			encodeInteger(tagEnumerated, 0),
			encodeInteger(tagEnumerated, 0),
			encodeInteger(tagInteger, 0),
			encodeInteger(tagInteger, 0),
			encodeBoolean(tagBoolean, false),
			tlv(tagFilterAnd, tlv(tagFilterEquality, concat(
				encodeOctetString(tagOctetString, []byte("NtVer")),
				encodeOctetString(tagOctetString, []byte{0x05, 0x00, 0x00, 0x00}),
			))),
			tlv(tagSequence, tlv(tagOctetString, []byte("Netlogon"))),
		)),
	))
	assert.Equal(t, want, got)
}

func TestEncodeRequestIncludesDnsDomainAndHostName(t *testing.T) {
	req := Request{
		Hostname:    "dc1.example.com",
		NtVersion:   flags.NewNtVersionSet(uint32(flags.V1)),
		DnsDomain:   "example.com",
		DnsHostName: "client.example.com",
	}
	got := EncodeRequest(req)

	// 3 filter terms means the "and" filter content contains 3
	// concatenated equalityMatch TLVs.
	r := newBERReader(got)
	_, msg, err := r.readTLV()
	require.NoError(t, err)
	mr := newBERReader(msg)
	_, _, err = mr.readTLV() // messageID
	require.NoError(t, err)
	_, sr, err := mr.readTLV() // SearchRequest
	require.NoError(t, err)

	sreq := newBERReader(sr)
	for i := 0; i < 6; i++ { // skip baseObject..typesOnly
		_, _, err := sreq.readTLV()
		require.NoError(t, err)
	}
	filterTag, filterContent, err := sreq.readTLV()
	require.NoError(t, err)
	assert.Equal(t, byte(tagFilterAnd), filterTag)

	fr := newBERReader(filterContent)
	count := 0
	for fr.hasMore() {
		tag, _, err := fr.readTLV()
		require.NoError(t, err)
		assert.Equal(t, byte(tagFilterEquality), tag)
		count++
	}
	assert.Equal(t, 3, count)
}

func buildLDAPMessage(msgID int64, opTag byte, opContent []byte) []byte {
	return tlv(tagSequence, concat(encodeInteger(tagInteger, msgID), tlv(opTag, opContent)))
}

func buildSearchResultEntryWithNetlogon(value []byte) []byte {
	partialAttribute := concat(
		encodeOctetString(tagOctetString, []byte("Netlogon")),
		tlv(tagSet, encodeOctetString(tagOctetString, value)),
	)
	attrList := tlv(tagSequence, tlv(tagSequence, partialAttribute))
	entryContent := concat(encodeOctetString(tagOctetString, nil), attrList)
	return entryContent
}

func buildSearchResultDone(resultCode int64, diagnostic string) []byte {
	parts := []([]byte){
		encodeInteger(tagEnumerated, resultCode),
		encodeOctetString(tagOctetString, nil), // matchedDN
	}
	if diagnostic != "" {
		parts = append(parts, encodeOctetString(tagOctetString, []byte(diagnostic)))
	}
	return concat(parts...)
}

func testCtx(t *testing.T) context.Context { return dlog.NewTestContext(t, false) }

func TestDecodeResponseHappyPath(t *testing.T) {
	netlogonValue := []byte{0x01, 0x02, 0x03}
	entry := buildLDAPMessage(1, tagSearchResultEntry, buildSearchResultEntryWithNetlogon(netlogonValue))
	done := buildLDAPMessage(1, tagSearchResultDone, buildSearchResultDone(0, ""))

	got, err := DecodeResponse(testCtx(t), concat(entry, done))
	require.NoError(t, err)
	assert.Equal(t, netlogonValue, got)
}

func TestDecodeResponseKeepsFirstDuplicate(t *testing.T) {
	first := buildLDAPMessage(1, tagSearchResultEntry, buildSearchResultEntryWithNetlogon([]byte{0xAA}))
	second := buildLDAPMessage(1, tagSearchResultEntry, buildSearchResultEntryWithNetlogon([]byte{0xBB}))
	done := buildLDAPMessage(1, tagSearchResultDone, buildSearchResultDone(0, ""))

	got, err := DecodeResponse(testCtx(t), concat(first, second, done))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, got)
}

func TestDecodeResponseNoSuchAttribute(t *testing.T) {
	done := buildLDAPMessage(1, tagSearchResultDone, buildSearchResultDone(0, ""))
	_, err := DecodeResponse(testCtx(t), done)
	require.Error(t, err)
	assert.True(t, dcerr.Is(err, dcerr.NoSuchAttribute))
}

func TestDecodeResponseProtocolError(t *testing.T) {
	done := buildLDAPMessage(1, tagSearchResultDone, buildSearchResultDone(32, "no such object"))
	_, err := DecodeResponse(testCtx(t), done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such object")
	assert.Contains(t, err.Error(), "32")
}

func TestDecodeResponseMissingDone(t *testing.T) {
	entry := buildLDAPMessage(1, tagSearchResultEntry, buildSearchResultEntryWithNetlogon([]byte{0x01}))
	_, err := DecodeResponse(testCtx(t), entry)
	require.Error(t, err)
	assert.True(t, dcerr.Is(err, dcerr.Communication))
}

func TestDecodeResponseUnexpectedOp(t *testing.T) {
	bogus := buildLDAPMessage(1, 0x7F, []byte{0x00})
	_, err := DecodeResponse(testCtx(t), bogus)
	require.Error(t, err)
	assert.True(t, dcerr.Is(err, dcerr.Communication))
}
