// Package bytecode decodes one function's instruction stream into a
// sequence of Instr values, shared by internal/pointermap (which performs
// the abstract interpretation of spec §4.6) and internal/interp (which
// executes it). Keeping decoding in one place guarantees both agree on
// operand layout.
package bytecode

import (
	"fmt"

	"github.com/charygao/gypsum/internal/pkgformat"
)

// Instr is one decoded instruction: its opcode, the byte offset it starts
// at, its raw operands (meaning depends on Op), and the offset of the
// next instruction.
type Instr struct {
	Op       pkgformat.Opcode
	PC       int64
	Operands []int64
	Next     int64
}

// numOperands gives the varint operand count for every opcode that isn't
// a contiguous arithmetic/conversion opcode (those take none; see
// IsArithmetic/IsConversion below). F32/F64/STRING operands are the raw
// bit pattern / string-pool index, still varint-encoded here for
// uniformity — not IEEE-754 bytes — since this format is self-contained
// and owes no other implementation binary compatibility.
func numOperands(op pkgformat.Opcode) (int, bool) {
	switch op {
	case pkgformat.NOP, pkgformat.RET, pkgformat.LABEL, pkgformat.POPTRY, pkgformat.THROW,
		pkgformat.DUP, pkgformat.SWAP, pkgformat.SWAP2, pkgformat.DROP,
		pkgformat.UNIT, pkgformat.TRUE, pkgformat.FALSE, pkgformat.NUL, pkgformat.UNINITIALIZED,
		pkgformat.LDE, pkgformat.STE, pkgformat.EXTUNIT, pkgformat.NOTB:
		return 0, true
	case pkgformat.BRANCH, pkgformat.BRANCHIF, pkgformat.BRANCHL,
		pkgformat.DUPI, pkgformat.DROPI,
		pkgformat.I8, pkgformat.I16, pkgformat.I32, pkgformat.I64,
		pkgformat.F32, pkgformat.F64, pkgformat.STRING,
		pkgformat.LDLOCAL, pkgformat.STLOCAL,
		pkgformat.LDG, pkgformat.STG,
		pkgformat.LDF, pkgformat.STF, pkgformat.LDFF, pkgformat.STFF,
		pkgformat.ALLOCOBJ, pkgformat.ALLOCARR,
		pkgformat.TYS, pkgformat.TYD,
		pkgformat.CAST, pkgformat.CASTC,
		pkgformat.CALLG, pkgformat.CALLV,
		pkgformat.PKG:
		return 1, true
	case pkgformat.PUSHTRY,
		pkgformat.LDGF, pkgformat.STGF,
		pkgformat.ALLOCOBJF, pkgformat.ALLOCARRF,
		pkgformat.CASTCBR,
		pkgformat.CALLGF, pkgformat.CALLVF:
		return 2, true
	}
	if IsArithmetic(op) || IsConversion(op) {
		return 0, true
	}
	return 0, false
}

// IsArithmetic reports whether op is one of the type-suffixed
// arithmetic/bitwise/compare/negate/invert opcodes, which all take zero
// operands and whose stack effect depends only on arity (unary vs
// binary) and result type, both derivable from the opcode itself.
func IsArithmetic(op pkgformat.Opcode) bool {
	return op >= pkgformat.ADDI8 && op <= pkgformat.NOTB
}

// IsConversion reports whether op is one of the TRUNC/SEXT/ZEXT/FCVT/
// ICVT/ITOF/FTOI family: pop one, push one of the converted type.
func IsConversion(op pkgformat.Opcode) bool {
	return op >= pkgformat.TRUNCI16I8 && op <= pkgformat.FTOII64F64
}

// Decode reads one instruction starting at pc.
func Decode(code []byte, pc int64) (Instr, error) {
	if pc < 0 || pc >= int64(len(code)) {
		return Instr{}, fmt.Errorf("bytecode: pc %d out of range", pc)
	}
	op := pkgformat.Opcode(code[pc])
	n, ok := numOperands(op)
	if !ok {
		return Instr{}, fmt.Errorf("bytecode: unknown opcode %d at pc %d", op, pc)
	}
	cur := pc + 1
	operands := make([]int64, n)
	for i := 0; i < n; i++ {
		v, adv, err := pkgformat.Varint(code[cur:])
		if err != nil {
			return Instr{}, fmt.Errorf("bytecode: pc %d operand %d: %w", pc, i, err)
		}
		operands[i] = v
		cur += int64(adv)
	}
	return Instr{Op: op, PC: pc, Operands: operands, Next: cur}, nil
}

// DecodeAll decodes every instruction in code, in order.
func DecodeAll(code []byte) ([]Instr, error) {
	var out []Instr
	var pc int64
	for pc < int64(len(code)) {
		in, err := Decode(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		pc = in.Next
	}
	return out, nil
}
