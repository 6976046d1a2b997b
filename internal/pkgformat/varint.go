// Package pkgformat implements the VM's binary package file codec (spec
// §6): little-endian, byte-addressed, unsigned base-128 varints
// throughout, with a string pool, a name pool, and per-definition tables
// built on top.
package pkgformat

import "fmt"

// PutUvarint appends the base-128 varint encoding of v to buf (spec
// §6 "readVbn" / writeVbn, unsigned form: reads/writes extend with
// zero).
func PutUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// PutVarint appends the zig-zag-free signed varint encoding used by the
// format: the same base-128 stream, but the final byte's value is sign
// extended from its top data bit (spec §6: "signed reads sign-extend from
// the high bit of the final byte").
func PutVarint(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// Uvarint decodes an unsigned varint from the start of buf, returning the
// value and the number of bytes consumed.
func Uvarint(buf []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, b := range buf {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("pkgformat: varint overflows 64 bits")
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("pkgformat: truncated varint")
}

// Varint decodes a signed varint, sign-extending from the final byte's
// high data bit per spec §6.
func Varint(buf []byte) (int64, int, error) {
	var v int64
	var shift uint
	for i, b := range buf {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("pkgformat: varint overflows 64 bits")
		}
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				v |= -1 << shift
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("pkgformat: truncated varint")
}
