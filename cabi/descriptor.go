//go:build cgo

package cabi

/*
#include "host.h"
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-plugin-sdk/module"
	"github.com/wippyai/wasm-plugin-sdk/plugin"
)

var (
	descOnce sync.Once
	desc     *C.WasmPluginDescriptor
	source   *plugin.Descriptor

	modulesMu sync.Mutex
	modules   = map[moduleKey]*C.WasmPluginModule{}
)

// moduleKey identifies a C function table. Tables bind the host API they
// were created with, so each API gets its own table over the same module.
type moduleKey struct {
	index int
	api   uintptr
}

// WasmPlugin_GetDescriptor is the plugin's load-time entry point. The
// descriptor is built on the first call and the same pointer is returned
// afterwards. It returns NULL when no plugin is registered.
//
//export WasmPlugin_GetDescriptor
func WasmPlugin_GetDescriptor() *C.WasmPluginDescriptor {
	descOnce.Do(func() {
		d, err := plugin.Current()
		if err != nil {
			Logger().Error("no plugin descriptor", zap.Error(err))
			return
		}
		source = d
		desc = newDescriptor(d)
		Logger().Debug("descriptor assembled",
			zap.String("plugin", d.Name()),
			zap.Stringer("version", d.Version()),
			zap.Int("modules", d.NumModules()))
	})
	return desc
}

// newDescriptor copies d into C memory. It lives until the process exits.
func newDescriptor(d *plugin.Descriptor) *C.WasmPluginDescriptor {
	c := (*C.WasmPluginDescriptor)(C.calloc(1, C.sizeof_WasmPluginDescriptor))
	c.name = C.CString(d.Name())
	c.description = C.CString(d.Description())
	v := d.Version()
	c.version[0] = C.uint32_t(v.Major)
	c.version[1] = C.uint32_t(v.Minor)
	c.version[2] = C.uint32_t(v.Patch)
	c.version[3] = C.uint32_t(v.Build)

	mods := d.Modules()
	c.module_count = C.uint32_t(len(mods))
	if len(mods) == 0 {
		return c
	}
	arr := (*C.WasmPluginModuleDescriptor)(C.calloc(C.size_t(len(mods)), C.sizeof_WasmPluginModuleDescriptor))
	entries := unsafe.Slice(arr, len(mods))
	for i, m := range mods {
		entries[i].name = C.CString(m.Name)
		entries[i].description = C.CString(m.Description)
		entries[i].create = C.wasmplugin_factory()
	}
	c.modules = arr
	return c
}

// moduleIndex finds self's position in the descriptor's module array.
func moduleIndex(self *C.WasmPluginModuleDescriptor) (int, bool) {
	if desc == nil || self == nil || desc.module_count == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(desc.modules))
	p := uintptr(unsafe.Pointer(self))
	size := uintptr(C.sizeof_WasmPluginModuleDescriptor)
	if p < base || (p-base)%size != 0 {
		return 0, false
	}
	i := int((p - base) / size)
	if i >= int(desc.module_count) {
		return 0, false
	}
	return i, true
}

// wasmPluginCreateModule is the factory behind every module entry. The Go
// module is built once. Later calls with the same host API return the same
// table.
//
//export wasmPluginCreateModule
func wasmPluginCreateModule(self *C.WasmPluginModuleDescriptor, api *C.WasmPluginHostAPI) (out *C.WasmPluginModule) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("module factory panicked", zap.Any("panic", r))
			out = nil
		}
	}()

	i, ok := moduleIndex(self)
	if !ok {
		Logger().Error("factory called with unknown module descriptor")
		return nil
	}

	key := moduleKey{index: i, api: uintptr(unsafe.Pointer(api))}
	modulesMu.Lock()
	defer modulesMu.Unlock()
	if m, ok := modules[key]; ok {
		return m
	}

	mod, err := source.Instantiate(i)
	if err != nil {
		Logger().Error("module factory failed", zap.Int("index", i), zap.Error(err))
		return nil
	}
	m := newModule(mod, api)
	modules[key] = m
	return m
}

// newModule copies mod's function table into C memory.
func newModule(mod module.Module, api *C.WasmPluginHostAPI) *C.WasmPluginModule {
	c := (*C.WasmPluginModule)(C.calloc(1, C.sizeof_WasmPluginModule))
	c.name = C.CString(mod.Name())

	funcs := mod.Funcs()
	c.function_count = C.uint32_t(len(funcs))
	if len(funcs) == 0 {
		return c
	}
	arr := (*C.WasmPluginFunction)(C.calloc(C.size_t(len(funcs)), C.sizeof_WasmPluginFunction))
	entries := unsafe.Slice(arr, len(funcs))
	for i, f := range funcs {
		params := f.Params()
		results := f.Results()
		entries[i].name = C.CString(f.Name())
		entries[i].param_count = C.uint32_t(len(params))
		entries[i].params = kindArray(params)
		entries[i].result_count = C.uint32_t(len(results))
		entries[i].results = kindArray(results)
		entries[i].trampoline = C.wasmplugin_trampoline()
		entries[i].cookie = C.uintptr_t(cgo.NewHandle(&binding{
			fn:      f,
			api:     api,
			params:  len(params),
			results: len(results),
		}))
	}
	c.functions = arr
	return c
}
