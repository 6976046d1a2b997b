//go:build !unix

package memory

// reserveAligned backs a chunk with a plain Go slice, over-allocated and
// trimmed to the required alignment. No portable third-party mmap wrapper
// exists outside golang.org/x/sys/unix, so non-unix GOOS falls back to the
// runtime allocator; the VM still works, it just gives up returning chunk
// memory to the OS individually.
func reserveAligned(size int64, align int64) ([]byte, error) {
	raw := make([]byte, size+align)
	base := uintptr(alignUp(addressOf(raw), uintptr(align)))
	off := int(base - addressOf(raw))
	return raw[off : off+int(size) : off+int(size)], nil
}

func releaseReserved(raw []byte) error {
	return nil
}
