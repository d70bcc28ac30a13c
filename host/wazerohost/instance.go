package wazerohost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/memory"
	"github.com/wippyai/wasm-plugin-sdk/types"
)

// Instance is a guest module loaded into a Host.
type Instance struct {
	mod      api.Module
	compiled wazero.CompiledModule
}

func (i *Instance) Name() string {
	return i.mod.Name()
}

// HasExport reports whether the guest exports a function called name.
func (i *Instance) HasExport(name string) bool {
	return i.mod.ExportedFunction(name) != nil
}

// Exports returns the guest's exported function signatures by name.
func (i *Instance) Exports() map[string]types.Signature {
	defs := i.mod.ExportedFunctionDefinitions()
	out := make(map[string]types.Signature, len(defs))
	for name, def := range defs {
		params, err := types.FromKinds(kinds(def.ParamTypes()))
		if err != nil {
			continue
		}
		results, err := types.FromKinds(kinds(def.ResultTypes()))
		if err != nil {
			continue
		}
		out[name] = types.NewSignature(params, results)
	}
	return out
}

// Call invokes an exported guest function with typed arguments. Guest traps
// and aborting host functions surface as trap errors; a host function's
// CallError stays reachable through errors.As.
func (i *Instance) Call(ctx context.Context, name string, args ...types.Val) ([]types.Val, error) {
	inst := &guestInstance{ctx: ctx, mod: i.mod}
	fn, ok := inst.FindExport(name)
	if !ok {
		return nil, errors.NoSuchExport(name)
	}
	params, err := types.FromKinds(fn.Params())
	if err != nil {
		return nil, err
	}
	slots, err := types.EncodeArgs(args, params)
	if err != nil {
		return nil, errors.New(errors.PhaseCall, errors.KindSignatureMismatch).
			Func(name).
			Cause(err).
			Build()
	}
	out := make([]abi.Slot, len(fn.Results()))
	if err := fn.Invoke(slots, out); err != nil {
		return nil, err
	}
	vals := make([]types.Val, len(out))
	for j, s := range out {
		v, err := types.Decode(s)
		if err != nil {
			return nil, err
		}
		vals[j] = v
	}
	return vals, nil
}

// Memory returns a view over the guest's memory, or nil if it has none.
// The view is not call-scoped; the caller releases it.
func (i *Instance) Memory() *memory.View {
	m := memoryOf(i.mod)
	if m == nil {
		return nil
	}
	return memory.New(&guestMemory{mem: m})
}

// Close closes the guest module and its compiled form.
func (i *Instance) Close(ctx context.Context) error {
	return multierr.Append(i.mod.Close(ctx), i.compiled.Close(ctx))
}
