package wasmtest

const (
	opUnreachable = 0x00
	opDrop        = 0x1A
	opEnd         = 0x0B
	opCall        = 0x10
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load8U   = 0x2D
	opI32Store8   = 0x3A
	opMemorySize  = 0x3F
	opMemoryGrow  = 0x40
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI32Add      = 0x6A
	opI32Sub      = 0x6B
	opI32DivS     = 0x6D
)

func leb(v uint32) []byte {
	var w writer
	w.u32(v)
	return w.bytes()
}

func op(code byte, imm ...byte) []byte {
	return append([]byte{code}, imm...)
}

// Unreachable traps unconditionally.
func Unreachable() []byte { return op(opUnreachable) }

func Drop() []byte { return op(opDrop) }

func Call(funcIndex uint32) []byte { return op(opCall, leb(funcIndex)...) }

func LocalGet(i uint32) []byte { return op(opLocalGet, leb(i)...) }

func LocalSet(i uint32) []byte { return op(opLocalSet, leb(i)...) }

func GlobalGet(i uint32) []byte { return op(opGlobalGet, leb(i)...) }

func GlobalSet(i uint32) []byte { return op(opGlobalSet, leb(i)...) }

// I32Load8U loads one byte with zero offset and alignment.
func I32Load8U() []byte { return op(opI32Load8U, 0x00, 0x00) }

// I32Store8 stores one byte with zero offset and alignment.
func I32Store8() []byte { return op(opI32Store8, 0x00, 0x00) }

// MemorySize pushes the current size of memory 0 in pages.
func MemorySize() []byte { return op(opMemorySize, 0x00) }

// MemoryGrow grows memory 0 and pushes the old size, or -1.
func MemoryGrow() []byte { return op(opMemoryGrow, 0x00) }

func I32Const(v int32) []byte {
	var w writer
	w.byte(opI32Const)
	w.s64(int64(v))
	return w.bytes()
}

func I64Const(v int64) []byte {
	var w writer
	w.byte(opI64Const)
	w.s64(v)
	return w.bytes()
}

func I32Add() []byte { return op(opI32Add) }

func I32Sub() []byte { return op(opI32Sub) }

// I32DivS traps on a zero divisor.
func I32DivS() []byte { return op(opI32DivS) }

// Bump returns a malloc body over the mutable i32 global g: it returns the
// current value of g and advances g by the requested size. A zero result
// models allocation failure when g starts at zero.
func Bump(g uint32) [][]byte {
	return [][]byte{
		GlobalGet(g),
		GlobalGet(g),
		LocalGet(0),
		I32Add(),
		GlobalSet(g),
	}
}
