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
)

// cMemory is the calling instance's memory reached through the host API.
type cMemory struct {
	api *C.WasmPluginHostAPI
	mem unsafe.Pointer
}

func (m *cMemory) Data() []byte {
	var n C.uint64_t
	p := C.wasmplugin_memory_data(m.api, m.mem, &n)
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

// cInstance is the calling instance reached through the host API.
type cInstance struct {
	api  *C.WasmPluginHostAPI
	inst unsafe.Pointer
}

func (i *cInstance) FindExport(name string) (abi.Function, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var e C.WasmPluginExport
	if C.wasmplugin_find_export(i.api, i.inst, cname, &e) == 0 {
		return nil, false
	}
	return &cFunction{
		api:     i.api,
		inst:    i.inst,
		handle:  e.handle,
		name:    name,
		params:  kindsFromC(e.params, int(e.param_count)),
		results: kindsFromC(e.results, int(e.result_count)),
	}, true
}

type cFunction struct {
	api     *C.WasmPluginHostAPI
	inst    unsafe.Pointer
	handle  unsafe.Pointer
	name    string
	params  []abi.Kind
	results []abi.Kind
}

func (f *cFunction) Params() []abi.Kind  { return f.params }
func (f *cFunction) Results() []abi.Kind { return f.results }

func (f *cFunction) Invoke(args, results []abi.Slot) error {
	cargs := make([]C.WasmPluginValue, len(args))
	for i, s := range args {
		cargs[i].kind = C.uint32_t(s.Kind)
		cargs[i].payload[0] = C.uint64_t(s.Payload[0])
		cargs[i].payload[1] = C.uint64_t(s.Payload[1])
	}
	cres := make([]C.WasmPluginValue, len(results))

	var argp, resp *C.WasmPluginValue
	if len(cargs) > 0 {
		argp = &cargs[0]
	}
	if len(cres) > 0 {
		resp = &cres[0]
	}
	rc := abi.Result(C.wasmplugin_invoke(f.api, f.inst, f.handle,
		argp, C.uint32_t(len(cargs)), resp, C.uint32_t(len(cres))))
	if !rc.OK() {
		return errors.Trap(f.name, trapKind(rc), errors.New(errors.PhaseCall, errors.KindInternal).
			Detail("host returned %s", rc).
			Code(uint32(rc)).
			Build())
	}
	for i, v := range cres {
		results[i] = abi.Slot{
			Kind:    abi.Kind(v.kind),
			Payload: [2]uint64{uint64(v.payload[0]), uint64(v.payload[1])},
		}
	}
	return nil
}

func trapKind(r abi.Result) errors.TrapKind {
	if r.Category() != abi.CategoryCore {
		return errors.TrapHost
	}
	switch r.Code() {
	case abi.CodeUnreachable:
		return errors.TrapUnreachable
	case abi.CodeMemoryOutOfBounds:
		return errors.TrapOutOfBoundsMemory
	case abi.CodeTerminated:
		return errors.TrapExit
	default:
		return errors.TrapUnknown
	}
}

func kindsFromC(p *C.uint32_t, n int) []abi.Kind {
	if p == nil || n == 0 {
		return nil
	}
	out := make([]abi.Kind, n)
	for i, k := range unsafe.Slice(p, n) {
		out[i] = abi.Kind(k)
	}
	return out
}
