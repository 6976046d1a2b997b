package pkgformat

import (
	"encoding/binary"
	"fmt"
)

// Reader is a forward-only cursor over a package file's bytes.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Pos() int { return r.pos }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("pkgformat: unexpected end of file at offset %d, need %d more bytes", r.pos, n)
	}
	return nil
}

func (r *Reader) Byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uvarint() (uint64, error) {
	v, n, err := Uvarint(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("pkgformat: at offset %d: %w", r.pos, err)
	}
	r.pos += n
	return v, nil
}

func (r *Reader) Varint() (int64, error) {
	v, n, err := Varint(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("pkgformat: at offset %d: %w", r.pos, err)
	}
	r.pos += n
	return v, nil
}

// Count reads a varint-encoded count and range-checks it fits in an int.
func (r *Reader) Count() (int, error) {
	v, err := r.Uvarint()
	if err != nil {
		return 0, err
	}
	if v > 1<<31 {
		return 0, fmt.Errorf("pkgformat: implausible count %d at offset %d", v, r.pos)
	}
	return int(v), nil
}

func (r *Reader) String() (string, error) {
	n, err := r.Count()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
