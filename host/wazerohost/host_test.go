package wazerohost

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	sdkerrors "github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/internal/wasmtest"
	"github.com/wippyai/wasm-plugin-sdk/memory"
	"github.com/wippyai/wasm-plugin-sdk/module"
	"github.com/wippyai/wasm-plugin-sdk/plugin"
	"github.com/wippyai/wasm-plugin-sdk/types"
)

var (
	i32 = types.I32

	sigVoidI32 = types.NewSignature(nil, []types.ValType{i32})
	sigI32I32  = types.NewSignature([]types.ValType{i32}, []types.ValType{i32})
)

func newHost(t *testing.T) *Host {
	t.Helper()
	ctx := context.Background()
	h, err := New(ctx, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := h.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return h
}

func register[T any](t *testing.T, h *Host, m *module.PluginModule[T]) {
	t.Helper()
	if err := h.Register(context.Background(), m); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func load(t *testing.T, h *Host, name string, g *wasmtest.Module) *Instance {
	t.Helper()
	inst, err := h.Load(context.Background(), name, g.Bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return inst
}

func callI32(t *testing.T, inst *Instance, name string, args ...types.Val) int32 {
	t.Helper()
	out, err := inst.Call(context.Background(), name, args...)
	if err != nil {
		t.Fatalf("Call(%s): %v", name, err)
	}
	if len(out) != 1 || out[0].Type() != i32 {
		t.Fatalf("Call(%s) = %v", name, out)
	}
	return out[0].I32()
}

func TestTrapPropagation(t *testing.T) {
	h := newHost(t)
	var trap sdkerrors.TrapKind
	m, _ := module.Create("hooks", struct{}{})
	_ = m.AddFunc("detonate", sigVoidI32, func(inst *module.InstanceRef, _ *memory.View, _ *struct{}, _ []types.Val) ([]types.Val, error) {
		_, err := inst.Call("explode")
		kind, ok := sdkerrors.TrapOf(err)
		if !ok {
			return nil, err
		}
		trap = kind
		return []types.Val{types.NewI32(-1)}, nil
	})
	register(t, h, m)

	g := wasmtest.New()
	detonate := g.ImportFunc("hooks", "detonate", wasmtest.Sig().To(wasmtest.I32))
	g.Export("explode", g.Func(wasmtest.Sig(), wasmtest.Unreachable()))
	g.Export("run", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.Call(detonate)))
	inst := load(t, h, "guest", g)

	if got := callI32(t, inst, "run"); got != -1 {
		t.Errorf("run = %d, want -1", got)
	}
	if trap != sdkerrors.TrapUnreachable {
		t.Errorf("trap kind = %q", trap)
	}
}

func TestTrapKinds(t *testing.T) {
	h := newHost(t)
	g := wasmtest.New()
	g.Memory(1)
	g.Export("unreachable", g.Func(wasmtest.Sig(), wasmtest.Unreachable()))
	g.Export("div", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.I32Const(1), wasmtest.I32Const(0), wasmtest.I32DivS()))
	g.Export("oob", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.I32Const(1<<20), wasmtest.I32Load8U()))
	inst := load(t, h, "traps", g)

	tests := map[string]sdkerrors.TrapKind{
		"unreachable": sdkerrors.TrapUnreachable,
		"div":         sdkerrors.TrapDivideByZero,
		"oob":         sdkerrors.TrapOutOfBoundsMemory,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := inst.Call(context.Background(), name)
			kind, ok := sdkerrors.TrapOf(err)
			if !ok || kind != want {
				t.Errorf("trap = %q (%v), want %q", kind, err, want)
			}
		})
	}
}

func TestMemoryGrowth(t *testing.T) {
	h := newHost(t)
	var before, stale, fresh uint64
	m, _ := module.Create("hooks", struct{}{})
	_ = m.AddFunc("observe", sigVoidI32, func(inst *module.InstanceRef, mem *memory.View, _ *struct{}, _ []types.Val) ([]types.Val, error) {
		if _, err := mem.ReadExact(0, 4); err != nil {
			return nil, err
		}
		before = mem.Len()
		out, err := inst.Call("grow", types.NewI32(1))
		if err != nil {
			return nil, err
		}
		stale = mem.Len()
		view, err := inst.Memory()
		if err != nil {
			return nil, err
		}
		fresh = view.Len()
		if err := view.WriteU8(uint32(before), 0x5A); err != nil {
			return nil, err
		}
		return out, nil
	})
	register(t, h, m)

	g := wasmtest.New()
	observe := g.ImportFunc("hooks", "observe", wasmtest.Sig().To(wasmtest.I32))
	g.Memory(1)
	g.Export("grow", g.Func(wasmtest.Sig(wasmtest.I32).To(wasmtest.I32), wasmtest.LocalGet(0), wasmtest.MemoryGrow()))
	g.Export("run", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.Call(observe)))
	inst := load(t, h, "guest", g)

	if got := callI32(t, inst, "run"); got != 1 {
		t.Errorf("grow returned %d, want old size 1", got)
	}
	if before != abi.PageSize || stale != abi.PageSize {
		t.Errorf("stale view length = %d/%d", before, stale)
	}
	if fresh != 2*abi.PageSize {
		t.Errorf("fresh view length = %d", fresh)
	}
	if b, _ := inst.Memory().ReadU8(abi.PageSize); b != 0x5A {
		t.Errorf("write through fresh view lost: %x", b)
	}
}

func TestReentrancy(t *testing.T) {
	h := newHost(t)
	m, _ := module.Create("hooks", struct{}{})
	_ = m.AddFunc("countdown", sigI32I32, func(inst *module.InstanceRef, _ *memory.View, _ *struct{}, args []types.Val) ([]types.Val, error) {
		n := args[0].I32()
		if n == 0 {
			return []types.Val{types.NewI32(0)}, nil
		}
		out, err := inst.Call("down", types.NewI32(n-1))
		if err != nil {
			return nil, err
		}
		return []types.Val{types.NewI32(out[0].I32() + 1)}, nil
	})
	register(t, h, m)

	g := wasmtest.New()
	countdown := g.ImportFunc("hooks", "countdown", wasmtest.Sig(wasmtest.I32).To(wasmtest.I32))
	g.Export("down", g.Func(wasmtest.Sig(wasmtest.I32).To(wasmtest.I32), wasmtest.LocalGet(0), wasmtest.Call(countdown)))
	inst := load(t, h, "guest", g)

	if got := callI32(t, inst, "down", types.NewI32(100)); got != 100 {
		t.Errorf("down(100) = %d", got)
	}
}

func TestHostErrorAbortsGuest(t *testing.T) {
	h := newHost(t)
	quota := stderrors.New("quota exceeded")
	m, _ := module.Create("hooks", struct{}{})
	_ = m.AddFunc("fail", sigVoidI32, func(*module.InstanceRef, *memory.View, *struct{}, []types.Val) ([]types.Val, error) {
		return nil, sdkerrors.User(7, quota)
	})
	_ = m.AddFunc("lie", sigVoidI32, func(*module.InstanceRef, *memory.View, *struct{}, []types.Val) ([]types.Val, error) {
		return []types.Val{types.NewI64(1)}, nil
	})
	register(t, h, m)

	g := wasmtest.New()
	fail := g.ImportFunc("hooks", "fail", wasmtest.Sig().To(wasmtest.I32))
	lie := g.ImportFunc("hooks", "lie", wasmtest.Sig().To(wasmtest.I32))
	g.Export("fail", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.Call(fail)))
	g.Export("lie", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.Call(lie)))
	inst := load(t, h, "guest", g)

	tests := []struct {
		export string
		want   abi.Result
	}{
		{"fail", abi.UserResult(7)},
		{"lie", abi.CoreResult(abi.CodeResultMismatch)},
	}
	for _, tt := range tests {
		t.Run(tt.export, func(t *testing.T) {
			_, err := inst.Call(context.Background(), tt.export)
			var ce *CallError
			if !stderrors.As(err, &ce) {
				t.Fatalf("expected CallError, got %v", err)
			}
			if ce.Result != tt.want || ce.Func != tt.export {
				t.Errorf("CallError = %+v", ce)
			}
			if kind, _ := sdkerrors.TrapOf(err); kind != sdkerrors.TrapHost {
				t.Errorf("trap kind = %q", kind)
			}
		})
	}

	_, err := inst.Call(context.Background(), "fail")
	if !stderrors.Is(err, quota) {
		t.Errorf("callback error lost: %v", err)
	}
}

func TestSignatureEnforcedAtLink(t *testing.T) {
	h := newHost(t)
	m, _ := module.Create("hooks", struct{}{})
	_ = m.AddFunc("f", types.NewSignature([]types.ValType{i32, i32}, []types.ValType{i32}),
		func(*module.InstanceRef, *memory.View, *struct{}, []types.Val) ([]types.Val, error) {
			t.Error("callback must not run")
			return nil, nil
		})
	register(t, h, m)

	g := wasmtest.New()
	g.ImportFunc("hooks", "f", wasmtest.Sig(wasmtest.I32).To(wasmtest.I32))
	if _, err := h.Load(context.Background(), "guest", g.Bytes()); err == nil {
		t.Fatal("import with the wrong arity should not link")
	}
}

func TestRegisterErrors(t *testing.T) {
	h := newHost(t)
	m, _ := module.Create("hooks", struct{}{})
	register(t, h, m)
	if !m.Frozen() {
		t.Error("registered module must be frozen")
	}

	dup, _ := module.Create("hooks", struct{}{})
	if err := h.Register(context.Background(), dup); err == nil {
		t.Error("duplicate module name should fail")
	}

	vec, _ := module.Create("vec", struct{}{})
	_ = vec.AddFunc("f", types.NewSignature([]types.ValType{types.V128}, nil),
		func(*module.InstanceRef, *memory.View, *struct{}, []types.Val) ([]types.Val, error) {
			return nil, nil
		})
	err := h.Register(context.Background(), vec)
	if !stderrors.Is(err, &sdkerrors.Error{Kind: sdkerrors.KindUnsupported}) {
		t.Errorf("v128 parameter: %v", err)
	}
}

func TestInstanceCallErrors(t *testing.T) {
	h := newHost(t)
	g := wasmtest.New()
	g.Export("id", g.Func(wasmtest.Sig(wasmtest.I32).To(wasmtest.I32), wasmtest.LocalGet(0)))
	inst := load(t, h, "guest", g)

	if _, err := inst.Call(context.Background(), "missing"); !stderrors.Is(err, sdkerrors.ErrNoSuchExport) {
		t.Errorf("missing export: %v", err)
	}
	if _, err := inst.Call(context.Background(), "id", types.NewI64(1)); !stderrors.Is(err, sdkerrors.ErrSignatureMismatch) {
		t.Errorf("wrong kind: %v", err)
	}
	if got := callI32(t, inst, "id", types.NewI32(-9)); got != -9 {
		t.Errorf("id = %d", got)
	}
	if !inst.HasExport("id") || inst.HasExport("missing") {
		t.Error("HasExport mismatch")
	}
	if sig, ok := inst.Exports()["id"]; !ok || sig.String() != "(i32)->(i32)" {
		t.Errorf("Exports = %v", inst.Exports())
	}
	if inst.Memory() != nil {
		t.Error("guest without memory should have no view")
	}
}

func TestMemorylessGuestCallsHost(t *testing.T) {
	h := newHost(t)
	var sawMemory bool
	var ran atomic.Bool
	m, _ := module.Create("arith", struct{}{})
	_ = m.AddFunc("seven", sigVoidI32, func(inst *module.InstanceRef, mem *memory.View, _ *struct{}, _ []types.Val) ([]types.Val, error) {
		ran.Store(true)
		sawMemory = mem.Len() != 0
		out, err := inst.Call("six")
		if err != nil {
			return nil, err
		}
		return []types.Val{types.NewI32(out[0].I32() + 1)}, nil
	})
	register(t, h, m)

	g := wasmtest.New()
	seven := g.ImportFunc("arith", "seven", wasmtest.Sig().To(wasmtest.I32))
	g.Export("six", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.I32Const(6)))
	g.Export("run", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.Call(seven)))
	inst := load(t, h, "guest", g)

	if got := callI32(t, inst, "run"); got != 7 {
		t.Errorf("run = %d, want 7", got)
	}
	if !ran.Load() {
		t.Fatal("host function did not run")
	}
	if sawMemory {
		t.Error("guest without memory should see an empty view")
	}
	if inst.Memory() != nil {
		t.Error("Memory() should be nil for a guest without memory")
	}
}

func TestRegisterPlugin(t *testing.T) {
	h := newHost(t)
	factory := func() (module.Module, error) {
		m, err := module.Create("env_hooks", struct{}{})
		if err != nil {
			return nil, err
		}
		err = m.AddFuncWIT("answer: func() -> s32", func(*module.InstanceRef, *memory.View, *struct{}, []types.Val) ([]types.Val, error) {
			return []types.Val{types.NewI32(42)}, nil
		})
		return m, err
	}
	d, err := plugin.New(plugin.Define("hooks_plugin", "", plugin.Version{Major: 1},
		plugin.ModuleSpec{Name: "env_hooks", Factory: factory}))
	if err != nil {
		t.Fatalf("plugin.New: %v", err)
	}
	if err := h.RegisterPlugin(context.Background(), d); err != nil {
		t.Fatalf("RegisterPlugin: %v", err)
	}

	g := wasmtest.New()
	answer := g.ImportFunc("env_hooks", "answer", wasmtest.Sig().To(wasmtest.I32))
	g.Export("run", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.Call(answer)))
	if got := callI32(t, load(t, h, "guest", g), "run"); got != 42 {
		t.Errorf("run = %d", got)
	}
}

func TestConcurrentInstances(t *testing.T) {
	h := newHost(t)
	var count atomic.Int64
	m, _ := module.Create("hooks", &count)
	_ = m.AddFunc("inc", sigVoidI32, func(_ *module.InstanceRef, _ *memory.View, c **atomic.Int64, _ []types.Val) ([]types.Val, error) {
		return []types.Val{types.NewI32(int32((*c).Add(1)))}, nil
	})
	register(t, h, m)

	const workers = 8
	insts := make([]*Instance, workers)
	for i := range insts {
		g := wasmtest.New()
		inc := g.ImportFunc("hooks", "inc", wasmtest.Sig().To(wasmtest.I32))
		g.Export("run", g.Func(wasmtest.Sig().To(wasmtest.I32), wasmtest.Call(inc)))
		insts[i] = load(t, h, fmt.Sprintf("guest%d", i), g)
	}

	var wg sync.WaitGroup
	for _, inst := range insts {
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := inst.Call(context.Background(), "run"); err != nil {
					t.Errorf("run: %v", err)
					return
				}
			}
		}(inst)
	}
	wg.Wait()
	if got := count.Load(); got != workers*50 {
		t.Errorf("count = %d", got)
	}
}

func TestWASI(t *testing.T) {
	ctx := context.Background()
	h, err := New(ctx, Config{WASI: true, MemoryLimitPages: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer h.Close(ctx)

	g := wasmtest.New()
	exit := g.ImportFunc("wasi_snapshot_preview1", "proc_exit", wasmtest.Sig(wasmtest.I32))
	g.Export("quit", g.Func(wasmtest.Sig(), wasmtest.I32Const(3), wasmtest.Call(exit)))
	inst, err := h.Load(ctx, "guest", g.Bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = inst.Call(ctx, "quit")
	if kind, ok := sdkerrors.TrapOf(err); !ok || kind != sdkerrors.TrapExit {
		t.Errorf("proc_exit: %v", err)
	}
}
