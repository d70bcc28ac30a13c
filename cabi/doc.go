// Package cabi exposes the registered plugin to a native host through a
// C ABI. Import it for side effects from the main package of a plugin built
// with -buildmode=c-shared:
//
//	import _ "github.com/wippyai/wasm-plugin-sdk/cabi"
//
// The host calls WasmPlugin_GetDescriptor once at load time and reads the
// WasmPluginDescriptor declared in host.h. Each module entry carries a
// factory; calling it builds the module's function table. Every function
// entry points at the same exported trampoline and carries a cgo.Handle
// cookie naming the Go function behind it.
//
// The host supplies a WasmPluginHostAPI to each factory. Trampolines use it
// to reach linear memory and to re-enter guest exports.
//
// Without cgo only the logger hooks are compiled.
package cabi
