package module

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	sdkerrors "github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/memory"
	"github.com/wippyai/wasm-plugin-sdk/types"
)

// mallocInstance exports a bump allocator that grows memory by one page on
// every call, the worst case a host function must tolerate.
func mallocInstance(mem *fakeMemory, ret int32) *fakeInstance {
	return &fakeInstance{exports: map[string]*fakeFunction{
		"malloc": {
			params:  []abi.Kind{abi.KindI32},
			results: []abi.Kind{abi.KindI32},
			fn: func(_, results []abi.Slot) error {
				mem.grow(1)
				results[0] = types.Encode(types.NewI32(ret))
				return nil
			},
		},
	}}
}

func callOnce(t *testing.T, inst abi.Instance, mem abi.Memory, fn HostFunc[struct{}]) (abi.Result, error) {
	t.Helper()
	m, _ := Create("m", struct{}{})
	if err := m.AddFunc("f", unit, fn); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	return mustFunc(t, m, "f").CallErr(inst, mem, nil, nil)
}

func TestInstanceRef_AllocAndReacquire(t *testing.T) {
	mem := newFakeMemory()
	inst := mallocInstance(mem, abi.PageSize+16)

	res, err := callOnce(t, inst, mem, func(ref *InstanceRef, view *memory.View, _ *struct{}, _ []types.Val) ([]types.Val, error) {
		if !ref.HasExport("malloc") || ref.HasExport("free") {
			t.Error("HasExport mismatch")
		}
		ptr, err := ref.Alloc(8)
		if err != nil {
			return nil, err
		}
		if ptr != abi.PageSize+16 {
			t.Errorf("ptr = %d", ptr)
		}
		// the call's view keeps its pre-growth length
		if err := view.Write([]byte("guest"), ptr); !sdkerrors.IsMemory(err) {
			t.Errorf("stale view write: %v", err)
		}
		fresh, err := ref.Memory()
		if err != nil {
			return nil, err
		}
		return nil, fresh.Write([]byte("guest"), ptr)
	})
	if err != nil || !res.OK() {
		t.Fatalf("CallErr = %v, %v", res, err)
	}
	if got := string(mem.data[abi.PageSize+16 : abi.PageSize+21]); got != "guest" {
		t.Errorf("memory = %q", got)
	}
}

func TestInstanceRef_AllocZero(t *testing.T) {
	mem := newFakeMemory()
	_, err := callOnce(t, mallocInstance(mem, 0), mem, func(ref *InstanceRef, _ *memory.View, _ *struct{}, _ []types.Val) ([]types.Val, error) {
		_, err := ref.Alloc(16)
		return nil, err
	})
	if !stderrors.Is(err, sdkerrors.ErrAllocation) {
		t.Fatalf("expected allocation error, got %v", err)
	}
}

func TestInstanceRef_CallErrors(t *testing.T) {
	guestErr := stderrors.New("wasm error: unreachable")
	inst := &fakeInstance{exports: map[string]*fakeFunction{
		"takes_i64": {
			params: []abi.Kind{abi.KindI64},
			fn:     func(_, _ []abi.Slot) error { return nil },
		},
		"traps": {
			fn: func(_, _ []abi.Slot) error { return guestErr },
		},
		"classified": {
			fn: func(_, _ []abi.Slot) error {
				return sdkerrors.Trap("classified", sdkerrors.TrapDivideByZero, guestErr)
			},
		},
		"lies": {
			results: []abi.Kind{abi.KindI32},
			fn: func(_, results []abi.Slot) error {
				results[0] = types.Encode(types.NewF64(1))
				return nil
			},
		},
	}}

	tests := []struct {
		name  string
		call  func(ref *InstanceRef) error
		check func(error) bool
	}{
		{
			"missing export",
			func(ref *InstanceRef) error { _, err := ref.Call("missing"); return err },
			func(err error) bool { return stderrors.Is(err, sdkerrors.ErrNoSuchExport) },
		},
		{
			"argument mismatch",
			func(ref *InstanceRef) error { _, err := ref.Call("takes_i64", types.NewI32(1)); return err },
			func(err error) bool { return stderrors.Is(err, sdkerrors.ErrSignatureMismatch) },
		},
		{
			"argument count",
			func(ref *InstanceRef) error { _, err := ref.Call("takes_i64"); return err },
			func(err error) bool { return stderrors.Is(err, sdkerrors.ErrSignatureMismatch) },
		},
		{
			"unclassified trap",
			func(ref *InstanceRef) error { _, err := ref.Call("traps"); return err },
			func(err error) bool {
				kind, ok := sdkerrors.TrapOf(err)
				return ok && kind == sdkerrors.TrapUnknown && stderrors.Is(err, guestErr)
			},
		},
		{
			"classified trap",
			func(ref *InstanceRef) error { _, err := ref.Call("classified"); return err },
			func(err error) bool {
				kind, ok := sdkerrors.TrapOf(err)
				return ok && kind == sdkerrors.TrapDivideByZero
			},
		},
		{
			"bad result kind",
			func(ref *InstanceRef) error { _, err := ref.Call("lies"); return err },
			func(err error) bool { return err != nil },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got error
			_, _ = callOnce(t, inst, newFakeMemory(), func(ref *InstanceRef, _ *memory.View, _ *struct{}, _ []types.Val) ([]types.Val, error) {
				got = tt.call(ref)
				return nil, nil
			})
			if !tt.check(got) {
				t.Errorf("unexpected error: %v", got)
			}
		})
	}
}

func TestInstanceRef_Reentrancy(t *testing.T) {
	// guest export "down" calls host "countdown" again with n-1
	m, _ := Create("m", struct{}{})
	sig := types.NewSignature([]types.ValType{types.I32}, []types.ValType{types.I32})
	var f *Func
	inst := &fakeInstance{exports: map[string]*fakeFunction{}}
	mem := newFakeMemory()
	inst.exports["down"] = &fakeFunction{
		params:  []abi.Kind{abi.KindI32},
		results: []abi.Kind{abi.KindI32},
		fn: func(args, results []abi.Slot) error {
			if res, err := f.CallErr(inst, mem, args, results); !res.OK() {
				return sdkerrors.Trap("down", sdkerrors.TrapHost, err)
			}
			return nil
		},
	}
	err := m.AddFunc("countdown", sig, func(ref *InstanceRef, _ *memory.View, _ *struct{}, args []types.Val) ([]types.Val, error) {
		n := args[0].I32()
		if n == 0 {
			return []types.Val{types.NewI32(0)}, nil
		}
		out, err := ref.Call("down", types.NewI32(n-1))
		if err != nil {
			return nil, err
		}
		return []types.Val{types.NewI32(out[0].I32() + 1)}, nil
	})
	if err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	f = mustFunc(t, m, "countdown")

	results := make([]abi.Slot, 1)
	if res, err := f.CallErr(inst, mem, slots(types.NewI32(50)), results); !res.OK() {
		t.Fatalf("CallErr = %v, %v", res, err)
	}
	if v, _ := types.Decode(results[0]); v.I32() != 50 {
		t.Errorf("depth = %v", v)
	}
}
