package wazerohost

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/module"
	"github.com/wippyai/wasm-plugin-sdk/plugin"
)

// Config holds configuration for a Host.
type Config struct {
	// Logger receives binding diagnostics. Nil means no logging.
	Logger *zap.Logger

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 so guests built for WASI load.
	WASI bool

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	EnableThreads bool
}

// Host owns a wazero runtime with plugin modules registered as host modules.
type Host struct {
	runtime   wazero.Runtime
	logger    *zap.Logger
	wasi      api.Closer
	modules   map[string]api.Module
	instances []*Instance
	mu        sync.Mutex
}

// New creates a host with a fresh wazero runtime.
func New(ctx context.Context, cfg Config) (*Host, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.EnableThreads {
		runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}

	h := &Host{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		logger:  cfg.Logger,
		modules: make(map[string]api.Module),
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	if cfg.WASI {
		closer, err := wasi_snapshot_preview1.Instantiate(ctx, h.runtime)
		if err != nil {
			return nil, multierr.Append(
				errors.Wrap(errors.PhaseLoad, errors.KindInternal, err, "instantiate WASI"),
				h.runtime.Close(ctx))
		}
		h.wasi = closer
	}
	return h, nil
}

// Register exposes mod to guests under its own name. The module is frozen.
func (h *Host) Register(ctx context.Context, mod module.Module) error {
	mod.Freeze()

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.modules[mod.Name()]; ok {
		return errors.New(errors.PhaseLoad, errors.KindDuplicateName).
			Detail("host module %q already registered", mod.Name()).
			Build()
	}

	b := h.runtime.NewHostModuleBuilder(mod.Name())
	for _, f := range mod.Funcs() {
		params, err := valueTypes(f.Params())
		if err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindUnsupported, err, mod.Name()+"."+f.Name())
		}
		results, err := valueTypes(f.Results())
		if err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindUnsupported, err, mod.Name()+"."+f.Name())
		}
		b.NewFunctionBuilder().
			WithGoModuleFunction(h.trampoline(f), params, results).
			WithName(f.Name()).
			Export(f.Name())
	}

	inst, err := b.Instantiate(ctx)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInternal, err, "instantiate host module "+mod.Name())
	}
	h.modules[mod.Name()] = inst

	h.logger.Debug("registered host module",
		zap.String("module", mod.Name()),
		zap.Int("funcs", len(mod.Funcs())))
	return nil
}

// RegisterPlugin instantiates every module of d and registers it.
func (h *Host) RegisterPlugin(ctx context.Context, d *plugin.Descriptor) error {
	for i := 0; i < d.NumModules(); i++ {
		mod, err := d.Instantiate(i)
		if err != nil {
			return err
		}
		if err := h.Register(ctx, mod); err != nil {
			return err
		}
	}
	h.logger.Info("plugin loaded",
		zap.String("plugin", d.Name()),
		zap.Stringer("version", d.Version()),
		zap.Int("modules", d.NumModules()))
	return nil
}

// Load compiles and instantiates a guest module. name may be empty for an
// anonymous instance; a named instance can be imported by later guests.
func (h *Host) Load(ctx context.Context, name string, wasm []byte) (*Instance, error) {
	compiled, err := h.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "compile guest")
	}
	mod, err := h.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, multierr.Append(
			errors.Wrap(errors.PhaseLoad, errors.KindInternal, err, "instantiate guest"),
			compiled.Close(ctx))
	}

	inst := &Instance{mod: mod, compiled: compiled}
	h.mu.Lock()
	h.instances = append(h.instances, inst)
	h.mu.Unlock()
	return inst, nil
}

// Close closes every guest instance, the host modules and the runtime.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	instances := h.instances
	h.instances = nil
	modules := h.modules
	h.modules = make(map[string]api.Module)
	h.mu.Unlock()

	var err error
	for _, inst := range instances {
		err = multierr.Append(err, inst.Close(ctx))
	}
	for _, m := range modules {
		err = multierr.Append(err, m.Close(ctx))
	}
	if h.wasi != nil {
		err = multierr.Append(err, h.wasi.Close(ctx))
	}
	return multierr.Append(err, h.runtime.Close(ctx))
}

func (h *Host) trampoline(f *module.Func) api.GoModuleFunc {
	params := f.Params()
	results := f.Results()
	return func(ctx context.Context, caller api.Module, stack []uint64) {
		args := make([]abi.Slot, len(params))
		for i, k := range params {
			args[i] = fromStack(k, stack[i])
		}
		out := make([]abi.Slot, len(results))

		var mem abi.Memory
		if m := memoryOf(caller); m != nil {
			mem = &guestMemory{mem: m}
		}
		res, err := f.CallErr(&guestInstance{ctx: ctx, mod: caller}, mem, args, out)
		if !res.OK() {
			h.logger.Debug("host function aborted guest call",
				zap.String("module", f.Module()),
				zap.String("func", f.Name()),
				zap.String("caller", caller.Name()),
				zap.Stringer("result", res),
				zap.Error(err))
			panic(&CallError{Module: f.Module(), Func: f.Name(), Result: res, Err: err})
		}
		for i, s := range out {
			stack[i] = toStack(s)
		}
	}
}
