package pkgformat

import "encoding/binary"

// Writer accumulates a package file's bytes. Used both by tooling that
// produces packages for testing and by the round-trip property in
// internal/pkgformat's tests (spec §8 "Package round-trip").
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Raw(b[:])
}

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Raw(b[:])
}

func (w *Writer) Uvarint(v uint64) {
	w.buf = PutUvarint(w.buf, v)
}

func (w *Writer) Varint(v int64) {
	w.buf = PutVarint(w.buf, v)
}

func (w *Writer) Count(n int) {
	w.Uvarint(uint64(n))
}

func (w *Writer) String(s string) {
	w.Count(len(s))
	w.Raw([]byte(s))
}
