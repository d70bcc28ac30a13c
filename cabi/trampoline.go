//go:build cgo

package cabi

/*
#include "host.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/module"
)

// binding is the record a function cookie points at.
type binding struct {
	fn      *module.Func
	api     *C.WasmPluginHostAPI
	params  int
	results int
}

// wasmPluginTrampoline is the single C entry point for every host function.
// The argument and result arrays hold exactly as many slots as the
// function declares.
//
//export wasmPluginTrampoline
func wasmPluginTrampoline(cookie C.uintptr_t, instance, mem unsafe.Pointer, args, results *C.WasmPluginValue) (status C.uint32_t) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("trampoline panicked", zap.Any("panic", r))
			status = C.uint32_t(abi.CoreResult(abi.CodeCoreExecution))
		}
	}()

	b, ok := cgo.Handle(cookie).Value().(*binding)
	if !ok {
		return C.uint32_t(abi.CoreResult(abi.CodeCoreExecution))
	}

	in := fromC(args, b.params)
	out := make([]abi.Slot, b.results)

	var hostMem abi.Memory
	if mem != nil {
		hostMem = &cMemory{api: b.api, mem: mem}
	}
	var hostInst abi.Instance
	if instance != nil {
		hostInst = &cInstance{api: b.api, inst: instance}
	}

	res := b.fn.Call(hostInst, hostMem, in, out)
	if res.OK() {
		toC(out, results)
	}
	return C.uint32_t(res)
}

func fromC(p *C.WasmPluginValue, n int) []abi.Slot {
	if n == 0 {
		return nil
	}
	vals := unsafe.Slice(p, n)
	out := make([]abi.Slot, n)
	for i, v := range vals {
		out[i] = abi.Slot{
			Kind:    abi.Kind(v.kind),
			Payload: [2]uint64{uint64(v.payload[0]), uint64(v.payload[1])},
		}
	}
	return out
}

func toC(slots []abi.Slot, p *C.WasmPluginValue) {
	if len(slots) == 0 {
		return
	}
	vals := unsafe.Slice(p, len(slots))
	for i, s := range slots {
		vals[i].kind = C.uint32_t(s.Kind)
		vals[i].payload[0] = C.uint64_t(s.Payload[0])
		vals[i].payload[1] = C.uint64_t(s.Payload[1])
	}
}

func kindArray(ks []abi.Kind) *C.uint32_t {
	if len(ks) == 0 {
		return nil
	}
	arr := (*C.uint32_t)(C.calloc(C.size_t(len(ks)), C.size_t(unsafe.Sizeof(C.uint32_t(0)))))
	vals := unsafe.Slice(arr, len(ks))
	for i, k := range ks {
		vals[i] = C.uint32_t(k)
	}
	return arr
}
