package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where at the plugin boundary the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // module and descriptor assembly
	PhaseLoad     Phase = "load"     // host binding load
	PhaseDecode   Phase = "decode"   // host slots to Go values
	PhaseEncode   Phase = "encode"   // Go values to host slots
	PhaseMemory   Phase = "memory"   // linear memory access
	PhaseCall     Phase = "call"     // re-entry into the calling instance
	PhaseCallback Phase = "callback" // user callback
	PhaseParse    Phase = "parse"    // WIT declaration parsing
)

// Kind categorizes the error
type Kind string

const (
	KindParam             Kind = "param"
	KindResultMismatch    Kind = "result_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindOverflow          Kind = "overflow"
	KindReleased          Kind = "released"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindNoSuchExport      Kind = "no_such_export"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindTrap              Kind = "trap"
	KindAllocation        Kind = "allocation"
	KindDuplicateName     Kind = "duplicate_name"
	KindInvalidName       Kind = "invalid_name"
	KindFrozen            Kind = "frozen"
	KindUnsupported       Kind = "unsupported"
	KindInvalidData       Kind = "invalid_data"
	KindNotFound          Kind = "not_found"
	KindUser              Kind = "user"
	KindInternal          Kind = "internal"
)

// TrapKind is the category of a guest trap observed through a re-entrant call.
type TrapKind string

const (
	TrapUnreachable          TrapKind = "unreachable"
	TrapOutOfBoundsMemory    TrapKind = "out_of_bounds_memory"
	TrapDivideByZero         TrapKind = "divide_by_zero"
	TrapIntegerOverflow      TrapKind = "integer_overflow"
	TrapInvalidConversion    TrapKind = "invalid_conversion"
	TrapStackOverflow        TrapKind = "stack_overflow"
	TrapInvalidTableAccess   TrapKind = "invalid_table_access"
	TrapIndirectCallMismatch TrapKind = "indirect_call_mismatch"
	TrapExit                 TrapKind = "exit"
	TrapHost                 TrapKind = "host" // a host function failed inside the guest call
	TrapUnknown              TrapKind = "unknown"
)

// Error is the structured error type used throughout the SDK
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Trap   TrapKind
	Func   string
	Detail string
	Code   uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Func != "" {
		b.WriteString(" at ")
		b.WriteString(e.Func)
	}

	if e.Trap != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Trap))
		b.WriteByte(')')
	}

	if e.Kind == KindUser {
		fmt.Fprintf(&b, " code %d", e.Code)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Empty Phase or Trap on the target match any value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if t.Trap != "" && t.Trap != e.Trap {
		return false
	}
	return true
}

// Sentinels for errors.Is checks.
var (
	ErrParam             = &Error{Kind: KindParam}
	ErrResultMismatch    = &Error{Kind: KindResultMismatch}
	ErrOutOfBounds       = &Error{Kind: KindOutOfBounds}
	ErrReleased          = &Error{Kind: KindReleased}
	ErrNoSuchExport      = &Error{Kind: KindNoSuchExport}
	ErrSignatureMismatch = &Error{Kind: KindSignatureMismatch}
	ErrTrap              = &Error{Kind: KindTrap}
	ErrDuplicateName     = &Error{Kind: KindDuplicateName}
	ErrFrozen            = &Error{Kind: KindFrozen}
	ErrAllocation        = &Error{Kind: KindAllocation}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Func sets the host function or export name
func (b *Builder) Func(name string) *Builder {
	b.err.Func = name
	return b
}

// Trap sets the trap category
func (b *Builder) Trap(kind TrapKind) *Builder {
	b.err.Trap = kind
	return b
}

// Code sets the plugin-defined code
func (b *Builder) Code(code uint32) *Builder {
	b.err.Code = code
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsMemory reports whether err is a linear memory access error.
func IsMemory(err error) bool {
	e, ok := As(err)
	return ok && e.Phase == PhaseMemory
}

// IsParam reports whether err is a parameter shape error.
func IsParam(err error) bool {
	return stderrors.Is(err, ErrParam)
}

// TrapOf returns the trap category carried by err, if any.
func TrapOf(err error) (TrapKind, bool) {
	e, ok := As(err)
	if !ok || e.Kind != KindTrap {
		return "", false
	}
	return e.Trap, true
}

// Convenience constructors for common error patterns

// ParamArity creates an argument count mismatch error
func ParamArity(phase Phase, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindParam,
		Detail: fmt.Sprintf("expected %d values, got %d", want, got),
		Value:  got,
	}
}

// ParamType creates a kind mismatch error for the value at index
func ParamType(phase Phase, index int, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindParam,
		Detail: fmt.Sprintf("value %d: expected %s, got %s", index, want, got),
		Value:  index,
	}
}

// ResultMismatch creates an error for callback results that disagree with
// the declared result signature
func ResultMismatch(fn string, detail string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindResultMismatch,
		Func:   fn,
		Detail: detail,
	}
}

// OutOfBounds creates a memory out of bounds error
func OutOfBounds(offset, length, size uint64) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d+%d) exceeds memory size %d", offset, offset, length, size),
		Value:  offset,
	}
}

// Overflow creates an offset arithmetic overflow error
func Overflow(offset, length uint64) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("offset %d + length %d overflows", offset, length),
		Value:  offset,
	}
}

// Released creates an error for use of a handle after its call returned
func Released(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: what + " used after its host call returned",
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// NoSuchExport creates a missing export error
func NoSuchExport(name string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNoSuchExport,
		Func:   name,
		Detail: fmt.Sprintf("export %q not found", name),
	}
}

// SignatureMismatch creates an error for arguments that do not fit an export
func SignatureMismatch(name, detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindSignatureMismatch,
		Func:   name,
		Detail: detail,
	}
}

// Trap creates a guest trap error
func Trap(name string, kind TrapKind, cause error) *Error {
	return &Error{
		Phase: PhaseCall,
		Kind:  KindTrap,
		Trap:  kind,
		Func:  name,
		Cause: cause,
	}
}

// AllocationFailed creates a guest allocation failure error
func AllocationFailed(size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindAllocation,
		Func:   "malloc",
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// DuplicateName creates a duplicate registration error
func DuplicateName(module, name string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindDuplicateName,
		Func:   name,
		Detail: fmt.Sprintf("function %q already registered in module %q", name, module),
	}
}

// InvalidName creates an invalid identifier error
func InvalidName(what string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindInvalidName,
		Detail: what + " name cannot be empty",
	}
}

// Frozen creates an error for mutation of a module handed to a descriptor
func Frozen(module string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindFrozen,
		Detail: fmt.Sprintf("module %q is immutable", module),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// User creates a plugin-defined error that reaches the host with code
func User(code uint32, cause error) *Error {
	return &Error{
		Phase: PhaseCallback,
		Kind:  KindUser,
		Code:  code,
		Cause: cause,
	}
}

// Internal converts a recovered panic value into an error
func Internal(fn string, recovered any) *Error {
	e := &Error{
		Phase: PhaseCallback,
		Kind:  KindInternal,
		Func:  fn,
		Value: recovered,
	}
	if err, ok := recovered.(error); ok {
		e.Cause = err
	} else {
		e.Detail = fmt.Sprintf("panic: %v", recovered)
	}
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
