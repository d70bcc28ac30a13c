// Package abi defines the raw call-time contract between a host runtime and
// plugin trampolines.
//
// A host passes values as Slots (a kind tag plus a 128-bit payload) and
// receives a Result status code. The capabilities a trampoline needs from the
// host (export lookup and invocation on the calling instance, access to its
// linear memory) are expressed as the Instance, Function and Memory
// interfaces, implemented by each host binding.
//
// This package has no dependencies on the rest of the SDK; the typed view of
// slots lives in the types package.
package abi
