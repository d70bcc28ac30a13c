package wazerohost

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
)

// CallError is raised into the guest when a trampoline reports a non-zero
// result. The guest traps and the error surfaces from the outermost call.
type CallError struct {
	Err    error
	Module string
	Func   string
	Result abi.Result
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("host function %s.%s: %s: %v", e.Module, e.Func, e.Result, e.Err)
	}
	return fmt.Sprintf("host function %s.%s: %s", e.Module, e.Func, e.Result)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// guestInstance is the calling guest module seen as an abi.Instance.
type guestInstance struct {
	ctx context.Context
	mod api.Module
}

func (g *guestInstance) FindExport(name string) (abi.Function, bool) {
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		return nil, false
	}
	def := fn.Definition()
	return &guestFunction{
		ctx:     g.ctx,
		fn:      fn,
		name:    name,
		params:  kinds(def.ParamTypes()),
		results: kinds(def.ResultTypes()),
	}, true
}

type guestFunction struct {
	ctx     context.Context
	fn      api.Function
	name    string
	params  []abi.Kind
	results []abi.Kind
}

func (g *guestFunction) Params() []abi.Kind  { return g.params }
func (g *guestFunction) Results() []abi.Kind { return g.results }

func (g *guestFunction) Invoke(args, results []abi.Slot) error {
	stack := make([]uint64, max(len(args), len(results)))
	for i, s := range args {
		stack[i] = toStack(s)
	}
	if err := g.fn.CallWithStack(g.ctx, stack); err != nil {
		return classify(g.name, err)
	}
	for i, k := range g.results {
		results[i] = fromStack(k, stack[i])
	}
	return nil
}

// guestMemory adapts a wazero memory. Data re-reads the whole memory on
// every call so growth is observed.
type guestMemory struct {
	mem api.Memory
}

func (g *guestMemory) Data() []byte {
	b, ok := g.mem.Read(0, g.mem.Size())
	if !ok {
		return nil
	}
	return b
}

// memoryOf returns mod's linear memory, or nil when it has none. wazero
// reports a missing memory as a typed nil pointer.
func memoryOf(mod api.Module) api.Memory {
	m := mod.Memory()
	if m == nil {
		return nil
	}
	if v := reflect.ValueOf(m); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return m
}

func kinds(ts []api.ValueType) []abi.Kind {
	out := make([]abi.Kind, len(ts))
	for i, t := range ts {
		out[i] = abi.Kind(t)
	}
	return out
}

func valueTypes(ks []abi.Kind) ([]api.ValueType, error) {
	out := make([]api.ValueType, len(ks))
	for i, k := range ks {
		switch k {
		case abi.KindI32, abi.KindI64, abi.KindF32, abi.KindF64, abi.KindExternRef:
			out[i] = api.ValueType(k)
		default:
			return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("%s host parameters", k))
		}
	}
	return out, nil
}

// fromStack widens a wazero stack value into a slot. Stack values already
// hold the raw bits for every supported kind.
func fromStack(k abi.Kind, v uint64) abi.Slot {
	if k == abi.KindI32 || k == abi.KindF32 {
		v &= 0xFFFFFFFF
	}
	return abi.Slot{Kind: k, Payload: [2]uint64{v, 0}}
}

func toStack(s abi.Slot) uint64 {
	return s.Payload[0]
}
