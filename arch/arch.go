// Package arch contains architecture-specific definitions used by the
// native call bridge (§4.9) to marshal arguments and return values across
// the host ABI boundary.
package arch

import (
	"encoding/binary"
)

// Architecture describes the calling-convention and addressing details of
// one target machine. The native bridge consults it to decide, for a given
// native call, which arguments ride in registers and which spill to the
// stack.
type Architecture struct {
	// PointerSize is the size of a pointer, in bytes.
	PointerSize int
	// WordSize is the size of a stack/locals slot, in bytes. Equal to
	// PointerSize on every architecture this VM targets.
	WordSize int
	// ByteOrder is the byte order for ints, floats and pointers.
	ByteOrder binary.ByteOrder
	// IntRegs is the number of integer-class argument registers available
	// for a native call before arguments spill to the stack.
	IntRegs int
	// FloatRegs is the number of float-class argument registers available
	// for a native call before arguments spill to the stack.
	FloatRegs int
}

func (a *Architecture) Uint(buf []byte) uint64 {
	switch len(buf) {
	case 4:
		return uint64(a.ByteOrder.Uint32(buf))
	case 8:
		return a.ByteOrder.Uint64(buf)
	}
	panic("arch: Uint: bad buffer length")
}

func (a *Architecture) PutUint(buf []byte, v uint64) {
	switch len(buf) {
	case 4:
		a.ByteOrder.PutUint32(buf, uint32(v))
	case 8:
		a.ByteOrder.PutUint64(buf, v)
	default:
		panic("arch: PutUint: bad buffer length")
	}
}

// AMD64 is the System V AMD64 calling convention: 6 integer registers
// (rdi, rsi, rdx, rcx, r8, r9) and 8 float registers (xmm0-xmm7) before
// arguments spill to the stack.
var AMD64 = Architecture{
	PointerSize: 8,
	WordSize:    8,
	ByteOrder:   binary.LittleEndian,
	IntRegs:     6,
	FloatRegs:   8,
}

// ARM64 is the AAPCS64 calling convention: 8 integer registers and 8 float
// registers before arguments spill to the stack.
var ARM64 = Architecture{
	PointerSize: 8,
	WordSize:    8,
	ByteOrder:   binary.LittleEndian,
	IntRegs:     8,
	FloatRegs:   8,
}

// Host is the Architecture of the machine the VM itself is running on. It
// is what the native bridge uses unless a cross-target Architecture is
// supplied explicitly.
var Host = AMD64
