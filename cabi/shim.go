//go:build cgo

package cabi

/*
#include "host.h"

extern uint32_t wasmPluginTrampoline(uintptr_t, void *, void *, WasmPluginValue *, WasmPluginValue *);
extern WasmPluginModule *wasmPluginCreateModule(WasmPluginModuleDescriptor *, WasmPluginHostAPI *);

uint8_t *wasmplugin_memory_data(const WasmPluginHostAPI *api, void *memory, uint64_t *length) {
	*length = 0;
	if (api == NULL || api->memory_data == NULL || memory == NULL) {
		return NULL;
	}
	return api->memory_data(memory, length);
}

int wasmplugin_find_export(const WasmPluginHostAPI *api, void *instance, const char *name, WasmPluginExport *out) {
	if (api == NULL || api->find_export == NULL || instance == NULL) {
		return 0;
	}
	return api->find_export(instance, name, out);
}

uint32_t wasmplugin_invoke(const WasmPluginHostAPI *api, void *instance, void *handle,
	const WasmPluginValue *args, uint32_t arg_count,
	WasmPluginValue *results, uint32_t result_count) {
	if (api == NULL || api->invoke == NULL) {
		return 0x05;
	}
	return api->invoke(instance, handle, args, arg_count, results, result_count);
}

WasmPluginTrampoline wasmplugin_trampoline(void) {
	return (WasmPluginTrampoline)wasmPluginTrampoline;
}

WasmPluginModuleFactory wasmplugin_factory(void) {
	return (WasmPluginModuleFactory)wasmPluginCreateModule;
}

const WasmPluginModule *wasmplugin_create(const WasmPluginModuleDescriptor *d, const WasmPluginHostAPI *api) {
	return d->create(d, api);
}

uint32_t wasmplugin_call(const WasmPluginFunction *f, void *instance, void *memory,
	const WasmPluginValue *args, WasmPluginValue *results) {
	return f->trampoline(f->cookie, instance, memory, args, results);
}
*/
import "C"
