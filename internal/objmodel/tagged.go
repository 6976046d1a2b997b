// Package objmodel implements the VM's object model (spec §4.3): the
// block header every heap object carries, and the Tagged word
// representation used for slots that may hold either a small integer or a
// block pointer.
package objmodel

import "github.com/charygao/gypsum/internal/memory"

// Tagged is a machine word holding either a small integer or a block
// pointer (spec §3 "Tagged word"). The low bit distinguishes the two: 1
// means the payload is a number (shifted left by one), 0 means the
// payload is a block Address, which is always word-aligned and so
// naturally has its low bit clear.
type Tagged uint64

// TagNumber builds a Tagged word holding the small integer n. n must fit
// in 63 bits; the VM's compiler is responsible for boxing integers that
// don't (spec §4.3: "references to primitive wrapper types... are normal
// blocks").
func TagNumber(n int64) Tagged {
	return Tagged(uint64(n)<<1 | 1)
}

func TagPointer(a memory.Address) Tagged {
	if uintptr(a)&1 != 0 {
		panic("objmodel: TagPointer: address is not word-aligned")
	}
	return Tagged(a)
}

func (t Tagged) IsNumber() bool {
	return t&1 != 0
}

func (t Tagged) IsPointer() bool {
	return t&1 == 0
}

// GetNumber returns the integer payload of t. Panics if t is not a
// number.
func (t Tagged) GetNumber() int64 {
	if !t.IsNumber() {
		panic("objmodel: Tagged.GetNumber: not a number")
	}
	return int64(t) >> 1
}

// GetPointer returns the address payload of t. Panics if t is not a
// pointer.
func (t Tagged) GetPointer() memory.Address {
	if !t.IsPointer() {
		panic("objmodel: Tagged.GetPointer: not a pointer")
	}
	return memory.Address(t)
}
