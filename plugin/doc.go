// Package plugin declares a plugin and assembles the descriptor a host reads
// when it loads the plugin.
//
// A plugin is declared once, usually from an init function:
//
//	func init() {
//		plugin.Register(plugin.Define(
//			"memory_access_plugin", "a demo plugin",
//			plugin.Version{},
//			plugin.ModuleSpec{
//				Name:        "memory_access_module",
//				Description: "a demo of module",
//				Factory:     memoryaccess.NewModule,
//			},
//		))
//	}
//
// Current builds the process-wide Descriptor on first use and returns the
// same value afterwards. Module factories run lazily, at most once each,
// and the modules they return are frozen before anyone sees them.
//
// The descriptor has a canonical byte form (see Descriptor.Bytes) that
// mirrors the load-time layout: NUL-terminated name and description, four
// little-endian uint32 version components, a uint32 module count and one
// NUL-terminated name and description per module.
package plugin
