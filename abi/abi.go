package abi

import "fmt"

// Kind is the raw value kind tag carried by a Slot.
// Tags use the WebAssembly binary value type encoding.
type Kind uint32

const (
	KindI32       Kind = 0x7F
	KindI64       Kind = 0x7E
	KindF32       Kind = 0x7D
	KindF64       Kind = 0x7C
	KindV128      Kind = 0x7B
	KindFuncRef   Kind = 0x70
	KindExternRef Kind = 0x6F
)

// Valid reports whether k is one of the known kind tags.
func (k Kind) Valid() bool {
	switch k {
	case KindI32, KindI64, KindF32, KindF64, KindV128, KindFuncRef, KindExternRef:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindV128:
		return "v128"
	case KindFuncRef:
		return "funcref"
	case KindExternRef:
		return "externref"
	default:
		return fmt.Sprintf("kind(0x%x)", uint32(k))
	}
}

// Slot is the host's value record: a kind tag and a 128-bit payload,
// low word first. Narrow kinds occupy the low bits of Payload[0].
type Slot struct {
	Kind    Kind
	Payload [2]uint64
}

// Instance is the host's handle to the instance that called a host function.
// Implementations are only valid for the duration of that call.
type Instance interface {
	// FindExport resolves an exported function of the instance by name.
	FindExport(name string) (Function, bool)
}

// Function is an exported guest function reachable from a host call.
type Function interface {
	Params() []Kind
	Results() []Kind
	// Invoke runs the guest function. args and results have the declared
	// lengths. A non-nil error means the guest trapped.
	Invoke(args, results []Slot) error
}

// Memory is the host's handle to the calling instance's linear memory.
type Memory interface {
	// Data returns the full current byte region of linear memory. The slice
	// aliases guest memory and is invalidated by growth. Nil means the
	// instance has no memory.
	Data() []byte
}

// PageSize is the WebAssembly linear memory page size in bytes.
const PageSize = 65536
