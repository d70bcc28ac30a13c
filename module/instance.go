package module

import (
	stderrors "errors"
	"sync/atomic"

	wasmplugin "github.com/wippyai/wasm-plugin-sdk"
	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/memory"
	"github.com/wippyai/wasm-plugin-sdk/types"
)

var _ wasmplugin.Allocator = (*InstanceRef)(nil)

// InstanceRef is a handle to the guest instance that invoked a host
// function. It is valid only for the duration of that call.
type InstanceRef struct {
	host     abi.Instance
	mem      *memory.View
	released atomic.Bool
}

func newInstanceRef(host abi.Instance, mem *memory.View) *InstanceRef {
	return &InstanceRef{host: host, mem: mem}
}

func (r *InstanceRef) release() {
	r.released.Store(true)
}

func (r *InstanceRef) check() error {
	if r.released.Load() {
		return errors.Released(errors.PhaseCall, "instance handle")
	}
	return nil
}

// HasExport reports whether the instance exports a function called name.
func (r *InstanceRef) HasExport(name string) bool {
	if r.check() != nil || r.host == nil {
		return false
	}
	_, ok := r.host.FindExport(name)
	return ok
}

// Call invokes an exported guest function and returns its results.
// The guest may call back into host functions, including the one currently
// running. Memory may have grown when Call returns.
func (r *InstanceRef) Call(name string, args ...types.Val) ([]types.Val, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if r.host == nil {
		return nil, errors.NoSuchExport(name)
	}
	fn, ok := r.host.FindExport(name)
	if !ok {
		return nil, errors.NoSuchExport(name)
	}

	params, err := types.FromKinds(fn.Params())
	if err != nil {
		return nil, errors.New(errors.PhaseCall, errors.KindSignatureMismatch).
			Func(name).
			Cause(err).
			Build()
	}
	results, err := types.FromKinds(fn.Results())
	if err != nil {
		return nil, errors.New(errors.PhaseCall, errors.KindSignatureMismatch).
			Func(name).
			Cause(err).
			Build()
	}
	slots, err := types.EncodeArgs(args, params)
	if err != nil {
		return nil, errors.New(errors.PhaseCall, errors.KindSignatureMismatch).
			Func(name).
			Detail("export takes %s", types.NewSignature(params, results)).
			Cause(err).
			Build()
	}

	out := make([]abi.Slot, len(results))
	if err := fn.Invoke(slots, out); err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) && e.Kind == errors.KindTrap {
			return nil, err
		}
		return nil, errors.Trap(name, errors.TrapUnknown, err)
	}

	vals := make([]types.Val, len(out))
	for i, s := range out {
		v, err := types.Decode(s)
		if err != nil {
			return nil, err
		}
		if v.Type() != results[i] {
			return nil, errors.ParamType(errors.PhaseDecode, i, results[i].String(), v.Type().String())
		}
		vals[i] = v
	}
	return vals, nil
}

// Alloc asks the guest's malloc export for size bytes and returns the
// pointer. Guest memory may have grown afterwards; reacquire any view.
func (r *InstanceRef) Alloc(size uint32) (uint32, error) {
	out, err := r.Call("malloc", types.NewI32(int32(size)))
	if err != nil {
		return 0, errors.AllocationFailed(size, err)
	}
	if len(out) != 1 || out[0].Type() != types.I32 {
		return 0, errors.AllocationFailed(size, errors.InvalidData(errors.PhaseCall, "malloc must return one i32"))
	}
	ptr := uint32(out[0].I32())
	if ptr == 0 {
		return 0, errors.AllocationFailed(size, nil)
	}
	return ptr, nil
}

// Memory returns a view re-derived from the instance's current memory.
// It is released together with the call's own view.
func (r *InstanceRef) Memory() (*memory.View, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.mem.Reacquire()
}
