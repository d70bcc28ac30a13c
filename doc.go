// Package wasmplugin is an SDK for writing native plugin modules for a
// WebAssembly runtime host.
//
// A plugin exposes one descriptor: a name, a description, a version
// quadruple and an ordered list of module factories. Each module is a named
// set of host functions that guest code imports. Host functions receive
// typed arguments, a bounds-checked view of the caller's linear memory and a
// handle for calling back into the caller's exports.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmplugin/          Root package with Memory and Allocator interfaces
//	├── abi/             Raw host contract: value slots, result codes, host handles
//	├── types/           Value marshalling between slots and typed values
//	├── memory/          Call-scoped, bounds-checked linear memory view
//	├── module/          Module builder, function registry, trampolines, instance handle
//	├── plugin/          Plugin descriptor and process-wide registration
//	├── errors/          Structured error types for the plugin boundary
//	├── cabi/            cgo C entry point for shared-object plugins
//	├── host/wazerohost/ Host binding that loads plugins into wazero
//	└── cmd/plugrun/     Runs guest modules against a linked plugin
//
// # Quick Start
//
// Declare a module and register the plugin:
//
//	func createModule() (module.Module, error) {
//	    mod, err := module.Create("math_module", struct{}{})
//	    if err != nil {
//	        return nil, err
//	    }
//	    err = mod.AddFunc("add", types.NewSignature(
//	        []types.ValType{types.I32, types.I32}, []types.ValType{types.I32}),
//	        func(inst *module.InstanceRef, mem *memory.View, _ *struct{}, args []types.Val) ([]types.Val, error) {
//	            return []types.Val{types.NewI32(args[0].I32() + args[1].I32())}, nil
//	        })
//	    return mod, err
//	}
//
//	func init() {
//	    plugin.Register(plugin.Define("math_plugin", "adds numbers", plugin.Version{},
//	        plugin.ModuleSpec{Name: "math_module", Description: "math", Factory: createModule}))
//	}
//
// Build a shared object by importing the cabi package from a main package
// compiled with -buildmode=c-shared, or load the plugin into a Go host with
// host/wazerohost.
//
// # Thread Safety
//
// The host may call trampolines concurrently from several threads, including
// for the same module. The SDK holds no mutable process-wide state beyond the
// immutable descriptor; a module's user state is shared by all its callbacks
// and must be synchronized by the plugin author.
//
// # Memory Model
//
// Memory views and instance handles are valid only for the host call that
// created them and are released when it returns. Linear memory may grow
// during a re-entrant call; reacquire the view afterwards.
package wasmplugin
