package module

import (
	"sync"

	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/memory"
	"github.com/wippyai/wasm-plugin-sdk/types"
	"go.uber.org/zap"
)

// HostFunc is the callback behind a host function. state points at the
// module's state value. The returned values must match the declared result
// signature.
type HostFunc[T any] func(inst *InstanceRef, mem *memory.View, state *T, args []types.Val) ([]types.Val, error)

// Module is the type-erased view of a PluginModule used by descriptors and
// host bindings.
type Module interface {
	Name() string
	Funcs() []*Func
	Func(name string) (*Func, bool)
	Freeze()
	Frozen() bool
}

// PluginModule is a named collection of host functions sharing one state
// value of type T.
type PluginModule[T any] struct {
	state  *T
	index  map[string]int
	name   string
	funcs  []*Func
	mu     sync.RWMutex
	frozen bool
}

// Create returns an empty module that owns state.
func Create[T any](name string, state T) (*PluginModule[T], error) {
	if name == "" {
		return nil, errors.InvalidName("module")
	}
	return &PluginModule[T]{
		name:  name,
		state: &state,
		index: make(map[string]int),
	}, nil
}

func (m *PluginModule[T]) Name() string {
	return m.name
}

// State returns the module's state value. It is shared by every call.
func (m *PluginModule[T]) State() *T {
	return m.state
}

// AddFunc registers a host function. On error the module is unchanged.
func (m *PluginModule[T]) AddFunc(name string, sig types.Signature, fn HostFunc[T]) error {
	if name == "" {
		return errors.InvalidName("function")
	}
	if fn == nil {
		return errors.New(errors.PhaseRegister, errors.KindInvalidData).
			Func(name).
			Detail("nil callback").
			Build()
	}
	if err := sig.Validate(); err != nil {
		return errors.Wrap(errors.PhaseRegister, errors.KindInvalidData, err, "function "+name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return errors.Frozen(m.name)
	}
	if _, ok := m.index[name]; ok {
		return errors.DuplicateName(m.name, name)
	}

	state := m.state
	f := &Func{
		module: m.name,
		name:   name,
		sig:    types.NewSignature(sig.Params, sig.Results),
		invoke: func(inst *InstanceRef, mem *memory.View, args []types.Val) ([]types.Val, error) {
			return fn(inst, mem, state, args)
		},
	}
	m.index[name] = len(m.funcs)
	m.funcs = append(m.funcs, f)

	Logger().Debug("registered host function",
		zap.String("module", m.name),
		zap.String("func", name),
		zap.Stringer("signature", f.sig))
	return nil
}

// AddFuncWIT registers a host function from a WIT-style declaration such as
// "to_uppercase: func(ptr: s32, len: s32) -> s32".
func (m *PluginModule[T]) AddFuncWIT(decl string, fn HostFunc[T]) error {
	name, sig, err := types.ParseFuncDecl(decl)
	if err != nil {
		return err
	}
	return m.AddFunc(name, sig, fn)
}

// Freeze makes the module immutable. It is idempotent.
func (m *PluginModule[T]) Freeze() {
	m.mu.Lock()
	m.frozen = true
	m.mu.Unlock()
}

func (m *PluginModule[T]) Frozen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frozen
}

// Funcs returns the registered functions in insertion order.
func (m *PluginModule[T]) Funcs() []*Func {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Func, len(m.funcs))
	copy(out, m.funcs)
	return out
}

// Func looks up a function by name.
func (m *PluginModule[T]) Func(name string) (*Func, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.funcs[i], true
}

var _ Module = (*PluginModule[struct{}])(nil)
