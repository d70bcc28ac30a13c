package types

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-plugin-sdk/abi"
)

// ValType is a WebAssembly value kind.
type ValType uint32

const (
	I32       = ValType(abi.KindI32)
	I64       = ValType(abi.KindI64)
	F32       = ValType(abi.KindF32)
	F64       = ValType(abi.KindF64)
	V128      = ValType(abi.KindV128)
	FuncRef   = ValType(abi.KindFuncRef)
	ExternRef = ValType(abi.KindExternRef)
)

func (t ValType) String() string {
	return abi.Kind(t).String()
}

// Valid reports whether t is a known value kind.
func (t ValType) Valid() bool {
	return abi.Kind(t).Valid()
}

// IsRef reports whether t is a reference kind.
func (t ValType) IsRef() bool {
	return t == FuncRef || t == ExternRef
}

// Val is a WebAssembly value: a kind plus its bit pattern.
// Floats are stored as raw bits so NaN payloads survive every conversion.
// References use zero as the null sentinel.
type Val struct {
	lo   uint64
	hi   uint64
	kind ValType
}

// NewI32 creates an i32. It is stored as its two's complement bits.
func NewI32(v int32) Val {
	return Val{kind: I32, lo: uint64(uint32(v))}
}

// NewI64 creates an i64.
func NewI64(v int64) Val {
	return Val{kind: I64, lo: uint64(v)}
}

// NewF32 creates an f32 from a Go float.
func NewF32(v float32) Val {
	return NewF32Bits(math.Float32bits(v))
}

// NewF32Bits creates an f32 from its IEEE-754 bit pattern.
func NewF32Bits(bits uint32) Val {
	return Val{kind: F32, lo: uint64(bits)}
}

// NewF64 creates an f64 from a Go float.
func NewF64(v float64) Val {
	return NewF64Bits(math.Float64bits(v))
}

// NewF64Bits creates an f64 from its IEEE-754 bit pattern.
func NewF64Bits(bits uint64) Val {
	return Val{kind: F64, lo: bits}
}

// NewV128 creates a v128 from its low and high 64-bit halves.
func NewV128(lo, hi uint64) Val {
	return Val{kind: V128, lo: lo, hi: hi}
}

// NewFuncRef creates a funcref. Zero is the null reference.
func NewFuncRef(ref uintptr) Val {
	return Val{kind: FuncRef, lo: uint64(ref)}
}

// NewExternRef creates an externref. Zero is the null reference.
func NewExternRef(ref uintptr) Val {
	return Val{kind: ExternRef, lo: uint64(ref)}
}

// NullRef returns the null reference of a reference kind.
func NullRef(t ValType) Val {
	return Val{kind: t}
}

// Type returns the value kind.
func (v Val) Type() ValType {
	return v.kind
}

// I32 returns the value as int32. The result is meaningless for other kinds;
// check Type first.
func (v Val) I32() int32 {
	return int32(uint32(v.lo))
}

// I64 returns the value as int64.
func (v Val) I64() int64 {
	return int64(v.lo)
}

// F32 returns the value as float32.
func (v Val) F32() float32 {
	return math.Float32frombits(v.F32Bits())
}

// F32Bits returns the raw f32 bit pattern.
func (v Val) F32Bits() uint32 {
	return uint32(v.lo)
}

// F64 returns the value as float64.
func (v Val) F64() float64 {
	return math.Float64frombits(v.lo)
}

// F64Bits returns the raw f64 bit pattern.
func (v Val) F64Bits() uint64 {
	return v.lo
}

// V128 returns the low and high halves.
func (v Val) V128() (lo, hi uint64) {
	return v.lo, v.hi
}

// Ref returns the opaque reference payload.
func (v Val) Ref() uintptr {
	return uintptr(v.lo)
}

// IsNull reports whether v is a null reference.
func (v Val) IsNull() bool {
	return v.kind.IsRef() && v.lo == 0
}

// Equal compares kind and bit pattern. NaNs with equal bits are equal.
func (v Val) Equal(o Val) bool {
	return v == o
}

func (v Val) String() string {
	switch v.kind {
	case I32:
		return fmt.Sprintf("i32:%d", v.I32())
	case I64:
		return fmt.Sprintf("i64:%d", v.I64())
	case F32:
		return fmt.Sprintf("f32:%v", v.F32())
	case F64:
		return fmt.Sprintf("f64:%v", v.F64())
	case V128:
		return fmt.Sprintf("v128:%016x%016x", v.hi, v.lo)
	case FuncRef, ExternRef:
		if v.IsNull() {
			return v.kind.String() + ":null"
		}
		return fmt.Sprintf("%s:0x%x", v.kind, v.lo)
	default:
		return "invalid"
	}
}
