//go:build cgo

package cabi

/*
#include <string.h>
#include "host.h"

// One block serves as both the instance and the memory handle.
typedef struct WasmPluginLoopback {
	uint8_t *data;
	uint64_t length;
	int32_t malloc_result;
	uint32_t invokes;
} WasmPluginLoopback;

#define LOOPBACK_MALLOC ((void *)1)
#define LOOPBACK_EXPLODE ((void *)2)

static const uint32_t loopback_i32[1] = {0x7F};

static uint8_t *loopback_memory_data(void *memory, uint64_t *length) {
	WasmPluginLoopback *l = memory;
	*length = l->length;
	return l->data;
}

static int loopback_find_export(void *instance, const char *name, WasmPluginExport *out) {
	memset(out, 0, sizeof(*out));
	if (strcmp(name, "malloc") == 0) {
		out->handle = LOOPBACK_MALLOC;
		out->param_count = 1;
		out->params = loopback_i32;
		out->result_count = 1;
		out->results = loopback_i32;
		return 1;
	}
	if (strcmp(name, "explode") == 0) {
		out->handle = LOOPBACK_EXPLODE;
		return 1;
	}
	return 0;
}

static uint32_t loopback_invoke(void *instance, void *handle,
	const WasmPluginValue *args, uint32_t arg_count,
	WasmPluginValue *results, uint32_t result_count) {
	WasmPluginLoopback *l = instance;
	l->invokes++;
	if (handle == LOOPBACK_EXPLODE) {
		return 0x89;
	}
	if (handle != LOOPBACK_MALLOC || arg_count != 1 || result_count != 1) {
		return 0x83;
	}
	results[0].kind = 0x7F;
	results[0].payload[0] = (uint32_t)l->malloc_result;
	results[0].payload[1] = 0;
	return 0;
}

static const WasmPluginHostAPI loopback_api = {
	loopback_memory_data,
	loopback_find_export,
	loopback_invoke,
};

static WasmPluginHostAPI *wasmplugin_loopback_api(void) {
	return (WasmPluginHostAPI *)&loopback_api;
}
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/wasm-plugin-sdk/abi"
)

// loopback is an in-process host behind the C API. Its guest has a fixed
// size memory and exports malloc, which returns a preset pointer, and
// explode, which traps with unreachable.
type loopback struct {
	l *C.WasmPluginLoopback
}

func newLoopback(size int) *loopback {
	l := (*C.WasmPluginLoopback)(C.calloc(1, C.sizeof_WasmPluginLoopback))
	l.data = (*C.uint8_t)(C.calloc(C.size_t(size), 1))
	l.length = C.uint64_t(size)
	return &loopback{l: l}
}

func (lb *loopback) free() {
	C.free(unsafe.Pointer(lb.l.data))
	C.free(unsafe.Pointer(lb.l))
}

// memory aliases the guest memory buffer.
func (lb *loopback) memory() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(lb.l.data)), int(lb.l.length))
}

func (lb *loopback) setMalloc(ptr int32) {
	lb.l.malloc_result = C.int32_t(ptr)
}

func (lb *loopback) invokes() int {
	return int(lb.l.invokes)
}

// call creates module i's table for the loopback host API and calls
// function name with the loopback as both instance and memory.
func (lb *loopback) call(i int, name string, args []abi.Slot, nresults int) (abi.Result, []abi.Slot, error) {
	c, err := createModule(i, C.wasmplugin_loopback_api())
	if err != nil {
		return 0, nil, err
	}
	p := unsafe.Pointer(lb.l)
	return callTable(c, name, p, p, args, nresults)
}
