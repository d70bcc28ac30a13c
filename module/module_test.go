package module

import (
	"errors"
	"testing"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	sdkerrors "github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/memory"
	"github.com/wippyai/wasm-plugin-sdk/types"
)

func noop(*InstanceRef, *memory.View, *struct{}, []types.Val) ([]types.Val, error) {
	return nil, nil
}

var unit = types.NewSignature(nil, nil)

func TestCreate(t *testing.T) {
	if _, err := Create("", struct{}{}); !errors.Is(err, &sdkerrors.Error{Kind: sdkerrors.KindInvalidName}) {
		t.Fatalf("empty name: %v", err)
	}

	m, err := Create("counter", 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Name() != "counter" {
		t.Errorf("Name = %q", m.Name())
	}
	*m.State() = 6
	if *m.State() != 6 {
		t.Error("State must point at the module's own value")
	}
	if len(m.Funcs()) != 0 {
		t.Error("new module should have no functions")
	}
}

func TestAddFunc_Order(t *testing.T) {
	m, _ := Create("m", struct{}{})
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if err := m.AddFunc(n, unit, noop); err != nil {
			t.Fatalf("AddFunc(%s): %v", n, err)
		}
	}
	funcs := m.Funcs()
	if len(funcs) != len(names) {
		t.Fatalf("len(Funcs) = %d", len(funcs))
	}
	for i, f := range funcs {
		if f.Name() != names[i] {
			t.Errorf("Funcs[%d] = %s, want %s", i, f.Name(), names[i])
		}
		if f.Module() != "m" {
			t.Errorf("Module = %s", f.Module())
		}
	}
	if f, ok := m.Func("alpha"); !ok || f.Name() != "alpha" {
		t.Error("Func(alpha) lookup failed")
	}
	if _, ok := m.Func("missing"); ok {
		t.Error("Func(missing) should fail")
	}
}

func TestAddFunc_Errors(t *testing.T) {
	m, _ := Create("m", struct{}{})
	if err := m.AddFunc("f", types.NewSignature([]types.ValType{types.I32}, nil), noop); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}

	err := m.AddFunc("f", unit, noop)
	if !errors.Is(err, sdkerrors.ErrDuplicateName) {
		t.Fatalf("duplicate: %v", err)
	}
	f, _ := m.Func("f")
	if len(f.Signature().Params) != 1 || len(m.Funcs()) != 1 {
		t.Error("failed AddFunc must leave the module unchanged")
	}

	if err := m.AddFunc("", unit, noop); !errors.Is(err, &sdkerrors.Error{Kind: sdkerrors.KindInvalidName}) {
		t.Errorf("empty name: %v", err)
	}
	if err := m.AddFunc("nil", unit, nil); err == nil {
		t.Error("nil callback should fail")
	}
	if err := m.AddFunc("bad", types.NewSignature([]types.ValType{0x01}, nil), noop); err == nil {
		t.Error("invalid signature should fail")
	}

	m.Freeze()
	m.Freeze()
	if !m.Frozen() {
		t.Fatal("Frozen() = false")
	}
	if err := m.AddFunc("late", unit, noop); !errors.Is(err, sdkerrors.ErrFrozen) {
		t.Errorf("frozen: %v", err)
	}
}

func TestAddFuncWIT(t *testing.T) {
	m, _ := Create("m", struct{}{})
	if err := m.AddFuncWIT("to_uppercase: func(ptr: s32, len: s32) -> s32", noop); err != nil {
		t.Fatalf("AddFuncWIT: %v", err)
	}
	f, ok := m.Func("to_uppercase")
	if !ok {
		t.Fatal("function not registered")
	}
	if got := f.Signature().String(); got != "(i32,i32)->(i32)" {
		t.Errorf("signature = %s", got)
	}
	if err := m.AddFuncWIT("broken(", noop); err == nil {
		t.Error("malformed declaration should fail")
	}
}

func TestSignatureIsCopied(t *testing.T) {
	m, _ := Create("m", struct{}{})
	params := []types.ValType{types.I32}
	if err := m.AddFunc("f", types.Signature{Params: params}, noop); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	params[0] = types.F64
	f, _ := m.Func("f")
	if f.Signature().Params[0] != types.I32 {
		t.Error("registered signature must not alias the caller's slice")
	}
}

func TestSignatureAccessorReturnsCopy(t *testing.T) {
	m, _ := Create("m", struct{}{})
	sig := types.NewSignature([]types.ValType{types.I32}, []types.ValType{types.I32})
	if err := m.AddFunc("f", sig, noop); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	m.Freeze()

	f, _ := m.Func("f")
	got := f.Signature()
	got.Params[0] = types.F64
	got.Results[0] = types.I64

	if s := f.Signature().String(); s != "(i32)->(i32)" {
		t.Errorf("registered signature changed to %s", s)
	}
	if p := f.Params(); p[0] != abi.KindI32 {
		t.Errorf("Params() = %v", p)
	}
}
