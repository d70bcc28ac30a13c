// Package types maps between the host's raw value slots and typed
// WebAssembly values.
//
// Val is a tagged union over the core value kinds (i32, i64, f32, f64, v128,
// funcref, externref). Floats are carried as bit patterns, so NaN payloads
// survive Encode and Decode unchanged; references use zero as null.
//
//	slot := types.Encode(types.NewI32(-1))
//	v, err := types.Decode(slot)
//
// DecodeArgs and EncodeResults validate a whole buffer against a Signature
// and are what trampolines use on every host call. The marshaller is purely
// representational: sign interpretation and arithmetic are the caller's job.
//
// ParseFuncDecl accepts WIT-style declarations and flattens primitive WIT
// types to core kinds, which is convenient when a plugin mirrors an
// interface already described in WIT.
package types
