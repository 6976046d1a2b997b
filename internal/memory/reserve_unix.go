//go:build unix

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// reserveAligned reserves a size-byte region of anonymous memory aligned
// to align (a power of two), returning the backing slice. It over-maps and
// trims the slop on either side, the usual trick for getting aligned
// mappings out of an allocator (mmap itself only guarantees page
// alignment).
func reserveAligned(size int64, align int64) ([]byte, error) {
	raw, err := unix.Mmap(-1, 0, int(size+align), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("memory: mmap %d bytes: %w", size+align, err)
	}
	base := uintptr(alignUp(addressOf(raw), uintptr(align)))
	off := int(base - addressOf(raw))
	if off > 0 {
		if err := unix.Munmap(raw[:off]); err != nil {
			return nil, fmt.Errorf("memory: munmap leading slop: %w", err)
		}
	}
	if tail := len(raw) - off - int(size); tail > 0 {
		if err := unix.Munmap(raw[off+int(size):]); err != nil {
			return nil, fmt.Errorf("memory: munmap trailing slop: %w", err)
		}
	}
	return raw[off : off+int(size) : off+int(size)], nil
}

func releaseReserved(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	return unix.Munmap(raw)
}
