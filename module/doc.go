// Package module builds the host function modules a plugin exposes.
//
// A PluginModule[T] owns a name, one value of plugin state T and an ordered
// set of host functions. Each function is a typed callback:
//
//	func(inst *InstanceRef, mem *memory.View, state *T, args []types.Val) ([]types.Val, error)
//
// The module wraps every callback in a Func whose Call method is the
// trampoline a host binding invokes. Call decodes the raw argument slots,
// runs the callback with a bounds-checked memory view and a handle to the
// calling instance, checks the results against the declared signature and
// reports a single abi.Result. Panics never cross the boundary.
//
// InstanceRef lets a callback re-enter the guest by export name, for
// example to call the guest's malloc. Guest code may grow memory during
// such a call; take a fresh view with InstanceRef.Memory or View.Reacquire
// afterwards. Both handles are poisoned when the trampoline returns.
//
// Modules are frozen once handed to a plugin descriptor. Frozen modules are
// immutable and safe for concurrent calls; the state value is shared by all
// calls, so mutable state needs its own synchronization.
package module
