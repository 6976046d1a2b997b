package pointermap

import (
	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
)

var arith6 = []*types.Type{types.I8, types.I16, types.I32, types.I64, types.F32, types.F64}
var arith4 = []*types.Type{types.I8, types.I16, types.I32, types.I64}

// applyArithmetic handles every type-suffixed arithmetic/bitwise/compare/
// negate/invert opcode (spec §6): binary forms pop two and push one of
// the result type, unary forms pop one and push one, compares always
// push Boolean regardless of operand type.
func applyArithmetic(st *state, op pkgformat.Opcode) {
	switch {
	case op >= pkgformat.ADDI8 && op <= pkgformat.ADDF64:
		binary(st, arith6[op-pkgformat.ADDI8])
	case op >= pkgformat.SUBI8 && op <= pkgformat.SUBF64:
		binary(st, arith6[op-pkgformat.SUBI8])
	case op >= pkgformat.MULI8 && op <= pkgformat.MULF64:
		binary(st, arith6[op-pkgformat.MULI8])
	case op >= pkgformat.DIVI8 && op <= pkgformat.DIVF64:
		binary(st, arith6[op-pkgformat.DIVI8])
	case op >= pkgformat.MODI8 && op <= pkgformat.MODI64:
		binary(st, arith4[op-pkgformat.MODI8])
	case op >= pkgformat.ANDI8 && op <= pkgformat.ANDI64:
		binary(st, arith4[op-pkgformat.ANDI8])
	case op >= pkgformat.ORI8 && op <= pkgformat.ORI64:
		binary(st, arith4[op-pkgformat.ORI8])
	case op >= pkgformat.XORI8 && op <= pkgformat.XORI64:
		binary(st, arith4[op-pkgformat.XORI8])
	case op >= pkgformat.SHLI8 && op <= pkgformat.SHLI64:
		binary(st, arith4[op-pkgformat.SHLI8])
	case op >= pkgformat.SHRI8 && op <= pkgformat.SHRI64:
		binary(st, arith4[op-pkgformat.SHRI8])
	case op >= pkgformat.EQI8 && op <= pkgformat.EQF64,
		op >= pkgformat.NEI8 && op <= pkgformat.NEF64,
		op >= pkgformat.LTI8 && op <= pkgformat.LTF64,
		op >= pkgformat.LEI8 && op <= pkgformat.LEF64,
		op >= pkgformat.GTI8 && op <= pkgformat.GTF64,
		op >= pkgformat.GEI8 && op <= pkgformat.GEF64:
		binary(st, types.Boolean)
	case op >= pkgformat.NEGI8 && op <= pkgformat.NEGF64:
		unary(st, arith6[op-pkgformat.NEGI8])
	case op >= pkgformat.INVI8 && op <= pkgformat.INVI64:
		unary(st, arith4[op-pkgformat.INVI8])
	}
}

func binary(st *state, result *types.Type) {
	st.pop()
	st.pop()
	st.push(result)
}

func unary(st *state, result *types.Type) {
	st.pop()
	st.push(result)
}

// conversionResult maps each TRUNC/SEXT/ZEXT/FCVT/ICVT/ITOF/FTOI opcode to
// its destination type; every one pops one value and pushes one of this
// type.
var conversionResult = map[pkgformat.Opcode]*types.Type{
	pkgformat.TRUNCI16I8:  types.I8,
	pkgformat.TRUNCI32I8:  types.I8,
	pkgformat.TRUNCI32I16: types.I16,
	pkgformat.TRUNCI64I8:  types.I8,
	pkgformat.TRUNCI64I16: types.I16,
	pkgformat.TRUNCI64I32: types.I32,

	pkgformat.SEXTI8I16:  types.I16,
	pkgformat.SEXTI8I32:  types.I32,
	pkgformat.SEXTI8I64:  types.I64,
	pkgformat.SEXTI16I32: types.I32,
	pkgformat.SEXTI16I64: types.I64,
	pkgformat.SEXTI32I64: types.I64,

	pkgformat.ZEXTI8I16:  types.I16,
	pkgformat.ZEXTI8I32:  types.I32,
	pkgformat.ZEXTI8I64:  types.I64,
	pkgformat.ZEXTI16I32: types.I32,
	pkgformat.ZEXTI16I64: types.I64,
	pkgformat.ZEXTI32I64: types.I64,

	pkgformat.FCVTF32F64: types.F64,
	pkgformat.FCVTF64F32: types.F32,

	pkgformat.ICVTI8I16: types.I16,
	pkgformat.ICVTI8I32: types.I32,

	pkgformat.ITOFI32F32: types.F32,
	pkgformat.ITOFI32F64: types.F64,
	pkgformat.ITOFI64F32: types.F32,
	pkgformat.ITOFI64F64: types.F64,

	pkgformat.FTOII32F32: types.I32,
	pkgformat.FTOII32F64: types.I32,
	pkgformat.FTOII64F32: types.I64,
	pkgformat.FTOII64F64: types.I64,
}

func applyConversion(st *state, op pkgformat.Opcode) {
	dest, ok := conversionResult[op]
	if !ok {
		dest = types.Unit
	}
	unary(st, dest)
}
