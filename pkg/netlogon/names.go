// Package netlogon decodes the three variants of the Microsoft
// NETLOGON_SAM_LOGON_RESPONSE* binary structure (spec.md §4.5):
// NT40, V5, and V5EX. All multi-byte scalars are little-endian unless
// otherwise noted.
package netlogon

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/dclocate/dclocator/pkg/dcerr"
)

// readCompressedName decodes a DNS-label-compressed name starting at
// pos in buf (RFC 1035 §4.1.4, as used by spec.md §4.5). It returns
// the joined name (empty string for an empty label list, per the
// "null" convention) and the number of bytes consumed from pos for
// the purpose of the CALLER's outer position tracker: once a pointer
// is followed, further length bytes do not advance that count, which
// is exactly the "cursor plus pointer-mode flag" construction spec.md
// §9 calls for.
func readCompressedName(buf []byte, pos int) (name string, consumed int, err error) {
	var labels []string
	cur := pos
	outerConsumed := -1 // -1 means "not yet fixed"

	for {
		if cur >= len(buf) {
			return "", 0, dcerr.New(dcerr.Communication, "netlogon: compressed name runs past end of buffer")
		}
		lengthByte := buf[cur]

		if lengthByte == 0 {
			if outerConsumed < 0 {
				outerConsumed = cur + 1 - pos
			}
			break
		}

		if lengthByte&0xC0 == 0xC0 {
			if cur+1 >= len(buf) {
				return "", 0, dcerr.New(dcerr.Communication, "netlogon: truncated compression pointer")
			}
			offset := int(lengthByte&0x3F)<<8 | int(buf[cur+1])
			if outerConsumed < 0 {
				outerConsumed = cur + 2 - pos
			}
			if offset >= cur-2 {
				return "", 0, dcerr.Newf(dcerr.Communication, "netlogon: invalid compression pointer offset %d at position %d", offset, cur)
			}
			cur = offset
			continue
		}

		length := int(lengthByte)
		if cur+1+length > len(buf) {
			return "", 0, dcerr.New(dcerr.Communication, "netlogon: truncated label")
		}
		labels = append(labels, string(buf[cur+1:cur+1+length]))
		cur += 1 + length
	}

	if len(labels) == 0 {
		return "", outerConsumed, nil
	}
	return strings.Join(labels, "."), outerConsumed, nil
}

// readUnicodeString reads a UTF-16LE string terminated by a 0x0000
// pair starting at pos. A bare terminator (no preceding pairs) is the
// "null" string.
func readUnicodeString(buf []byte, pos int) (str string, consumed int, err error) {
	var units []uint16
	cur := pos
	for {
		if cur+2 > len(buf) {
			return "", 0, dcerr.New(dcerr.Communication, "netlogon: unicode string runs past end of buffer")
		}
		u := binary.LittleEndian.Uint16(buf[cur : cur+2])
		cur += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	if len(units) == 0 {
		return "", cur - pos, nil
	}
	return string(utf16.Decode(units)), cur - pos, nil
}

// readGUID reads a 16-byte GUID in the NETLOGON wire layout (Data1
// uint32 LE, Data2 uint16 LE, Data3 uint16 LE, Data4 8 bytes in
// network order) and presents it as a standard UUID whose
// most-significant 64 bits are Data1|Data2|Data3.
func readGUID(buf []byte, pos int) (uuid.UUID, error) {
	if pos+16 > len(buf) {
		return uuid.UUID{}, dcerr.New(dcerr.Communication, "netlogon: truncated GUID")
	}
	var out [16]byte
	data1 := binary.LittleEndian.Uint32(buf[pos : pos+4])
	data2 := binary.LittleEndian.Uint16(buf[pos+4 : pos+6])
	data3 := binary.LittleEndian.Uint16(buf[pos+6 : pos+8])
	binary.BigEndian.PutUint32(out[0:4], data1)
	binary.BigEndian.PutUint16(out[4:6], data2)
	binary.BigEndian.PutUint16(out[6:8], data3)
	copy(out[8:16], buf[pos+8:pos+16])
	return uuid.FromBytes(out[:])
}

// isAllZero reports whether the 16 bytes at pos are the NullGuid
// field in the V5 layout.
func isAllZero(buf []byte, pos, n int) bool {
	if pos+n > len(buf) {
		return false
	}
	for _, b := range buf[pos : pos+n] {
		if b != 0 {
			return false
		}
	}
	return true
}
