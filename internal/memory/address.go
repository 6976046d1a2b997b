// Package memory implements the VM's memory substrate (spec §4.1): a
// page-aligned chunk allocator sitting directly atop the OS, exposing
// bump-pointer allocation ranges and O(1) address-to-chunk lookup.
package memory

import "fmt"

// Address is a byte address in the VM's managed heap space. It is a
// distinct type from uintptr so that arithmetic on addresses can't be
// confused with arithmetic on raw Go pointers.
type Address uintptr

func (a Address) Add(n int64) Address {
	return Address(int64(a) + n)
}

func (a Address) Sub(b Address) int64 {
	return int64(a) - int64(b)
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uintptr(a))
}

// IsZero reports whether a is the nil address.
func (a Address) IsZero() bool {
	return a == 0
}

// align rounds n up to the next multiple of m, where m is a power of two.
func align(n int64, m int64) int64 {
	return (n + m - 1) &^ (m - 1)
}
