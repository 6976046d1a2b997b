package objmodel

import (
	"encoding/binary"

	"github.com/charygao/gypsum/internal/memory"
	"github.com/charygao/gypsum/internal/types"
)

// gcBits are packed into the low bits of a block's header word, alongside
// its identifying tag (spec §4.3: "every block begins with (meta-pointer,
// gc-bits)"). A *types.Meta is a plain Go-heap object managed by the Go
// runtime's own collector, not by this VM's heap, so it would be unsound
// to store a raw Go pointer's bit pattern inside VM-managed bytes (Go's
// GC could move or reclaim it independently, and an unsafe.Pointer<->
// uintptr round trip through foreign memory is not guaranteed to survive
// that). Instead the header stores a MetaID: a stable small integer that
// indexes a *types.Meta registry the Heap owns. MetaID 0 is never
// assigned, so a forwarded block (whose header instead holds a
// forwarding Address) can never be misread as MetaID 0.
type MetaID uint32

const (
	gcBitMark      uint64 = 1 << 0
	gcBitForwarded uint64 = 1 << 1
	gcBitsShift           = 2
)

// Header is the first word of every heap block: either a MetaID (not yet
// forwarded) or a forwarding Address (after a GC relocates the block),
// with two low GC-control bits packed in.
type Header uint64

func MakeHeader(id MetaID) Header {
	return Header(uint64(id) << gcBitsShift)
}

func (h Header) MetaID() MetaID {
	if h.Forwarded() {
		panic("objmodel: Header.MetaID: block has been forwarded")
	}
	return MetaID(uint64(h) >> gcBitsShift)
}

func (h Header) Marked() bool    { return uint64(h)&gcBitMark != 0 }
func (h Header) Forwarded() bool { return uint64(h)&gcBitForwarded != 0 }

func (h Header) WithMark(v bool) Header {
	return setBit(h, gcBitMark, v)
}

// WithForwardingAddr returns a header recording that this block has been
// relocated to address to. The address's low 2 bits must be free, which
// holds because addresses are always word-aligned and word size exceeds 4.
func (h Header) WithForwardingAddr(to memory.Address) Header {
	return Header(uint64(to) | gcBitForwarded)
}

func (h Header) ForwardingAddr() memory.Address {
	if !h.Forwarded() {
		panic("objmodel: Header.ForwardingAddr: block is not forwarded")
	}
	return memory.Address(uint64(h) &^ (gcBitForwarded | gcBitMark))
}

func setBit(h Header, bit uint64, v bool) Header {
	if v {
		return Header(uint64(h) | bit)
	}
	return Header(uint64(h) &^ bit)
}

// HeaderSize is the size, in bytes, of a block's header word.
const HeaderSize = 8

// LengthFieldSize is the size, in bytes, of an array-like block's length
// header word, which immediately follows the block header.
const LengthFieldSize = 8

// ReadHeader reads the header word at the start of the block at address
// a.
func ReadHeader(raw []byte) Header {
	return Header(binary.LittleEndian.Uint64(raw[:HeaderSize]))
}

func WriteHeader(raw []byte, h Header) {
	binary.LittleEndian.PutUint64(raw[:HeaderSize], uint64(h))
}

func ReadLength(raw []byte) int64 {
	return int64(binary.LittleEndian.Uint64(raw[HeaderSize : HeaderSize+LengthFieldSize]))
}

func WriteLength(raw []byte, n int64) {
	binary.LittleEndian.PutUint64(raw[HeaderSize:HeaderSize+LengthFieldSize], uint64(n))
}

// InstanceSize returns the total size in bytes of a block described by
// meta, including its header (and length word, for array-like classes),
// given its element count (ignored for non-array-like classes).
func InstanceSize(meta *types.Meta, length int64) int64 {
	size := HeaderSize + meta.InstanceSize
	if meta.Class.IsArrayLike() {
		size += LengthFieldSize + length*meta.ElementSize
	}
	return alignWord(size)
}

func alignWord(n int64) int64 {
	const w = types.WordSize
	return (n + w - 1) &^ (w - 1)
}

// FieldOffset returns the byte offset of field f's storage within a
// block, accounting for the header word(s) preceding the instance area.
func FieldOffset(f *types.Field) int64 {
	return HeaderSize + f.Offset
}

// ElementOffset returns the byte offset of element i's storage within an
// array-like block described by meta.
func ElementOffset(meta *types.Meta, i int64) int64 {
	return HeaderSize + LengthFieldSize + i*meta.ElementSize
}
