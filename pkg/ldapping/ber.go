package ldapping

import "github.com/pkg/errors"

// Minimal BER primitives for the one message shape this package ever
// needs to speak: an LDAPMessage wrapping a SearchRequest, and the
// LDAPMessage stream wrapping SearchResultEntry/SearchResultDone.
// Nothing here is a general-purpose ASN.1 library; every tag this
// codec produces or consumes is spelled out in spec.md §4.3.

// Universal/context/application tag bytes used by the LDAP ping wire
// format.
const (
	tagInteger        = 0x02
	tagOctetString    = 0x04
	tagBoolean        = 0x01
	tagEnumerated     = 0x0A
	tagSequence       = 0x30
	tagSet            = 0x31
	tagFilterAnd      = 0xA0 // context-specific, constructed, tag 0
	tagFilterEquality = 0xA3 // context-specific, constructed, tag 3

	tagSearchRequest      = 0x63 // application, constructed, tag 3
	tagSearchResultEntry  = 0x64 // application, constructed, tag 4
	tagSearchResultDone   = 0x65 // application, constructed, tag 5
)

// encodeLength renders n in BER definite-length form.
func encodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var tmp []byte
	for v := n; v > 0; v >>= 8 {
		tmp = append([]byte{byte(v)}, tmp...)
	}
	return append([]byte{byte(0x80 | len(tmp))}, tmp...)
}

// tlv wraps content in a tag+length+value header.
func tlv(tag byte, content []byte) []byte {
	out := make([]byte, 0, 2+len(content))
	out = append(out, tag)
	out = append(out, encodeLength(len(content))...)
	out = append(out, content...)
	return out
}

// concat is a small helper for building SEQUENCE/constructed content
// from several already-encoded TLVs.
func concat(parts ...[]byte) []byte {
	var total int
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func encodeOctetString(tag byte, data []byte) []byte {
	return tlv(tag, data)
}

func encodeInteger(tag byte, v int64) []byte {
	if v == 0 {
		return tlv(tag, []byte{0x00})
	}
	var b []byte
	neg := v < 0
	for v != 0 && v != -1 {
		b = append([]byte{byte(v)}, b...)
		v >>= 8
	}
	if neg && (len(b) == 0 || b[0]&0x80 == 0) {
		b = append([]byte{0xFF}, b...)
	}
	if !neg && len(b) > 0 && b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	return tlv(tag, b)
}

func encodeBoolean(tag byte, v bool) []byte {
	if v {
		return tlv(tag, []byte{0xFF})
	}
	return tlv(tag, []byte{0x00})
}

// berReader walks a flat byte slice one TLV at a time.
type berReader struct {
	buf []byte
	pos int
}

func newBERReader(buf []byte) *berReader { return &berReader{buf: buf} }

func (r *berReader) hasMore() bool { return r.pos < len(r.buf) }

// peekTag returns the next tag byte without consuming it.
func (r *berReader) peekTag() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errors.New("ldapping: unexpected end of message")
	}
	return r.buf[r.pos], nil
}

// readTLV consumes and returns the next tag and its content.
func (r *berReader) readTLV() (tag byte, content []byte, err error) {
	if r.pos >= len(r.buf) {
		return 0, nil, errors.New("ldapping: unexpected end of message")
	}
	tag = r.buf[r.pos]
	r.pos++
	length, err := r.readLength()
	if err != nil {
		return 0, nil, err
	}
	if r.pos+length > len(r.buf) {
		return 0, nil, errors.New("ldapping: truncated TLV content")
	}
	content = r.buf[r.pos : r.pos+length]
	r.pos += length
	return tag, content, nil
}

func (r *berReader) readLength() (int, error) {
	if r.pos >= len(r.buf) {
		return 0, errors.New("ldapping: unexpected end of length")
	}
	first := r.buf[r.pos]
	r.pos++
	if first&0x80 == 0 {
		return int(first), nil
	}
	n := int(first &^ 0x80)
	if n == 0 || r.pos+n > len(r.buf) {
		return 0, errors.New("ldapping: invalid long-form length")
	}
	length := 0
	for i := 0; i < n; i++ {
		length = length<<8 | int(r.buf[r.pos])
		r.pos++
	}
	return length, nil
}

// decodeInteger decodes a BER INTEGER/ENUMERATED content as a signed
// int64.
func decodeInteger(content []byte) (int64, error) {
	if len(content) == 0 {
		return 0, errors.New("ldapping: empty INTEGER content")
	}
	var v int64
	if content[0]&0x80 != 0 {
		v = -1
	}
	for _, b := range content {
		v = v<<8 | int64(b)
	}
	return v, nil
}
