//go:build cgo

package cabi

/*
#include "host.h"
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/plugin"
	"github.com/wippyai/wasm-plugin-sdk/types"
)

// FuncInfo describes one entry of a C function table.
type FuncInfo struct {
	Name      string
	Signature types.Signature
}

// Manifest reads the C descriptor back the way a host sees it.
func Manifest() (plugin.Manifest, error) {
	c := WasmPlugin_GetDescriptor()
	if c == nil {
		return plugin.Manifest{}, errors.NotFound(errors.PhaseLoad, "plugin", "descriptor")
	}
	m := plugin.Manifest{
		Name:        C.GoString(c.name),
		Description: C.GoString(c.description),
		Version: plugin.Version{
			Major: uint32(c.version[0]),
			Minor: uint32(c.version[1]),
			Patch: uint32(c.version[2]),
			Build: uint32(c.version[3]),
		},
	}
	if c.module_count > 0 {
		for _, e := range unsafe.Slice(c.modules, int(c.module_count)) {
			m.Modules = append(m.Modules, plugin.ModuleInfo{
				Name:        C.GoString(e.name),
				Description: C.GoString(e.description),
			})
		}
	}
	return m, nil
}

// Functions runs module i's C factory without host services and reads the
// resulting function table. The table is kept apart from the ones handed to
// hosts.
func Functions(i int) ([]FuncInfo, error) {
	c, err := createModule(i, nil)
	if err != nil {
		return nil, err
	}
	if c.function_count == 0 {
		return nil, nil
	}
	var out []FuncInfo
	for _, f := range unsafe.Slice(c.functions, int(c.function_count)) {
		params, err := types.FromKinds(kindsFromC(f.params, int(f.param_count)))
		if err != nil {
			return nil, err
		}
		results, err := types.FromKinds(kindsFromC(f.results, int(f.result_count)))
		if err != nil {
			return nil, err
		}
		out = append(out, FuncInfo{Name: C.GoString(f.name), Signature: types.NewSignature(params, results)})
	}
	return out, nil
}

func createModule(i int, api *C.WasmPluginHostAPI) (*C.WasmPluginModule, error) {
	d := WasmPlugin_GetDescriptor()
	if d == nil || i < 0 || i >= int(d.module_count) {
		return nil, errors.NotFound(errors.PhaseLoad, "module", "index")
	}
	entry := &unsafe.Slice(d.modules, int(d.module_count))[i]
	c := C.wasmplugin_create(entry, api)
	if c == nil {
		return nil, errors.InvalidData(errors.PhaseLoad, "module factory returned NULL")
	}
	return (*C.WasmPluginModule)(unsafe.Pointer(c)), nil
}

// callDetached calls function name of module i through its C trampoline
// with no instance and no memory.
func callDetached(i int, name string, args []abi.Slot, nresults int) (abi.Result, []abi.Slot, error) {
	c, err := createModule(i, nil)
	if err != nil {
		return 0, nil, err
	}
	return callTable(c, name, nil, nil, args, nresults)
}

// callTable calls function name of table c through its C trampoline.
func callTable(c *C.WasmPluginModule, name string, inst, mem unsafe.Pointer, args []abi.Slot, nresults int) (abi.Result, []abi.Slot, error) {
	if c.function_count > 0 {
		for idx := range unsafe.Slice(c.functions, int(c.function_count)) {
			f := &unsafe.Slice(c.functions, int(c.function_count))[idx]
			if C.GoString(f.name) != name {
				continue
			}
			cargs := make([]C.WasmPluginValue, len(args)+1)
			toC(args, &cargs[0])
			cres := make([]C.WasmPluginValue, nresults+1)
			rc := C.wasmplugin_call(f, inst, mem, &cargs[0], &cres[0])
			return abi.Result(rc), fromC(&cres[0], nresults), nil
		}
	}
	return 0, nil, errors.NotFound(errors.PhaseLoad, "function", name)
}
