// Package errors provides structured error types for the plugin SDK.
//
// Errors are categorized by Phase (where at the plugin boundary the error
// occurred) and Kind (error category). Traps observed while calling back into
// the guest carry a TrapKind.
//
// The taxonomy follows the boundary contract:
//
//   - Parameter shape errors (KindParam, KindResultMismatch) are plugin
//     protocol violations and surface to the host as a core execution error.
//   - Memory errors (PhaseMemory) are returned to the callback, which decides
//     whether the guest sees a failure.
//   - Host errors from re-entrant calls (PhaseCall) carry the export name and,
//     for traps, the trap category.
//   - User errors (KindUser) carry a plugin-defined code.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindTrap).
//		Func("explode").
//		Trap(errors.TrapUnreachable).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(offset, length, size)
//	err := errors.NoSuchExport("malloc")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
