package module

import (
	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/memory"
	"github.com/wippyai/wasm-plugin-sdk/types"
	"go.uber.org/zap"
)

// Func is a registered host function. Its Call method is the trampoline a
// host binding invokes for every guest call.
type Func struct {
	invoke func(inst *InstanceRef, mem *memory.View, args []types.Val) ([]types.Val, error)
	module string
	name   string
	sig    types.Signature
}

func (f *Func) Name() string {
	return f.name
}

// Module returns the name of the module that owns f.
func (f *Func) Module() string {
	return f.module
}

// Signature returns a copy of the registered signature.
func (f *Func) Signature() types.Signature {
	return types.NewSignature(f.sig.Params, f.sig.Results)
}

// Params returns the declared parameter kinds in host form.
func (f *Func) Params() []abi.Kind {
	return types.Kinds(f.sig.Params)
}

// Results returns the declared result kinds in host form.
func (f *Func) Results() []abi.Kind {
	return types.Kinds(f.sig.Results)
}

// Call runs the function for the host and reports the outcome as a result
// code. results must have exactly one slot per declared result.
func (f *Func) Call(inst abi.Instance, mem abi.Memory, args, results []abi.Slot) abi.Result {
	res, _ := f.CallErr(inst, mem, args, results)
	return res
}

// CallErr is Call that also returns the error behind a failed result, for
// bindings that can carry it back to the host.
func (f *Func) CallErr(inst abi.Instance, mem abi.Memory, args, results []abi.Slot) (res abi.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = abi.CoreResult(abi.CodeCoreExecution)
			err = errors.Internal(f.name, r)
		}
		if err != nil {
			Logger().Debug("host function failed",
				zap.String("module", f.module),
				zap.String("func", f.name),
				zap.Stringer("result", res),
				zap.Error(err))
		}
	}()

	if len(results) != len(f.sig.Results) {
		return abi.CoreResult(abi.CodeCoreExecution), errors.ParamArity(errors.PhaseEncode, len(f.sig.Results), len(results))
	}
	vals, err := types.DecodeArgs(args, f.sig.Params)
	if err != nil {
		return abi.CoreResult(abi.CodeCoreExecution), err
	}

	view := memory.New(mem)
	ref := newInstanceRef(inst, view)
	defer view.Release()
	defer ref.release()

	out, err := f.invoke(ref, view, vals)
	if err != nil {
		return ResultFor(err), err
	}
	if err := types.EncodeResults(out, f.sig.Results, results); err != nil {
		return abi.CoreResult(abi.CodeResultMismatch), errors.ResultMismatch(f.name, err.Error())
	}
	return abi.Success, nil
}

// ResultFor maps a callback error to the result code reported to the host.
// Errors that are not SDK errors become a runtime error.
func ResultFor(err error) abi.Result {
	if err == nil {
		return abi.Success
	}
	e, ok := errors.As(err)
	if !ok {
		return abi.CoreResult(abi.CodeRuntimeError)
	}
	switch e.Kind {
	case errors.KindUser:
		return abi.UserResult(e.Code)
	case errors.KindParam, errors.KindSignatureMismatch:
		return abi.CoreResult(abi.CodeFuncSigMismatch)
	case errors.KindResultMismatch:
		return abi.CoreResult(abi.CodeResultMismatch)
	case errors.KindNoSuchExport:
		return abi.CoreResult(abi.CodeFuncNotFound)
	case errors.KindTrap:
		if e.Trap == errors.TrapExit {
			return abi.CoreResult(abi.CodeTerminated)
		}
		return abi.CoreResult(abi.CodeUnreachable)
	case errors.KindInternal:
		return abi.CoreResult(abi.CodeCoreExecution)
	}
	if e.Phase == errors.PhaseMemory {
		return abi.CoreResult(abi.CodeMemoryOutOfBounds)
	}
	return abi.CoreResult(abi.CodeRuntimeError)
}
