package abi

import "fmt"

// Result is the status code a trampoline returns to the host.
// Zero is success; any other value aborts the current guest call.
// Layout: category in the top 8 bits, code in the low 24 bits.
type Result uint32

// Category selects who defines a Result's code.
type Category uint8

const (
	CategoryCore Category = 0 // codes defined by the host runtime
	CategoryUser Category = 1 // codes defined by the plugin
)

// Core result codes.
const (
	CodeSuccess           uint32 = 0x00
	CodeTerminated        uint32 = 0x01
	CodeRuntimeError      uint32 = 0x02
	CodeFuncNotFound      uint32 = 0x05
	CodeFuncSigMismatch   uint32 = 0x83
	CodeMemoryOutOfBounds uint32 = 0x88
	CodeUnreachable       uint32 = 0x89
	CodeCoreExecution     uint32 = 0x8A
	CodeResultMismatch    uint32 = 0x8B
)

const codeMask = 0x00FFFFFF

// Success is the zero Result.
const Success Result = 0

// NewResult packs a category and code.
func NewResult(cat Category, code uint32) Result {
	return Result(uint32(cat)<<24 | code&codeMask)
}

// CoreResult returns a host-defined result code.
func CoreResult(code uint32) Result {
	return NewResult(CategoryCore, code)
}

// UserResult returns a plugin-defined result code.
func UserResult(code uint32) Result {
	return NewResult(CategoryUser, code)
}

// OK reports whether r is Success.
func (r Result) OK() bool {
	return r == Success
}

// Category returns the top 8 bits.
func (r Result) Category() Category {
	return Category(uint32(r) >> 24)
}

// Code returns the low 24 bits.
func (r Result) Code() uint32 {
	return uint32(r) & codeMask
}

func (r Result) String() string {
	if r.OK() {
		return "success"
	}
	if r.Category() == CategoryUser {
		return fmt.Sprintf("user error %d", r.Code())
	}
	switch r.Code() {
	case CodeTerminated:
		return "terminated"
	case CodeRuntimeError:
		return "runtime error"
	case CodeFuncNotFound:
		return "function not found"
	case CodeFuncSigMismatch:
		return "function signature mismatch"
	case CodeMemoryOutOfBounds:
		return "out of bounds memory access"
	case CodeUnreachable:
		return "unreachable"
	case CodeCoreExecution:
		return "core execution error"
	case CodeResultMismatch:
		return "result signature mismatch"
	default:
		return fmt.Sprintf("core error 0x%x", r.Code())
	}
}
