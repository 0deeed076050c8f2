// Package flags implements the three bit-flag enumerations used by the
// DC locator: DC-locator request flags, the DS capability flags a
// domain controller reports back, and the Netlogon NT version bits
// negotiated on the wire. Each enumeration is a plain bitmask integer
// type with a canonical pipe-delimited string form.
package flags

import (
	"strings"

	"github.com/pkg/errors"
)

// entry pairs a single bit with its symbolic name, in declaration
// order. Declaration order is also the order names appear in the
// canonical string form.
type entry struct {
	name  string
	value uint32
}

// format renders bits as "NAME|NAME|..." in table order, skipping any
// bits not present. Bits not covered by the table are silently dropped
// from the string form (sets never carry unrelated bits per the
// invariant in spec.md §3, so this never loses information in
// practice).
func format(bits uint32, table []entry) string {
	var names []string
	for _, e := range table {
		if bits&e.value == e.value && e.value != 0 {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "|")
}

// parse is the strict inverse of format: unknown tokens fail.
func parse(s string, table []entry) (uint32, error) {
	var bits uint32
	if s == "" {
		return 0, nil
	}
	lookup := make(map[string]uint32, len(table))
	for _, e := range table {
		lookup[e.name] = e.value
	}
	for _, tok := range strings.Split(s, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, ok := lookup[tok]
		if !ok {
			return 0, errors.Errorf("flags: unknown flag token %q", tok)
		}
		bits |= v
	}
	return bits, nil
}

// has reports whether all bits in mask are set in bits.
func has(bits, mask uint32) bool {
	return bits&mask == mask
}

// anySet reports whether at least one bit in mask is set in bits.
func anySet(bits, mask uint32) bool {
	return bits&mask != 0
}

// count returns the number of bits in mask that are also set in bits,
// used by the orchestrator's mutually-exclusive-group validation.
func count(bits uint32, mask []uint32) int {
	n := 0
	for _, m := range mask {
		if bits&m == m {
			n++
		}
	}
	return n
}
