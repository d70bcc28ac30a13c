// Package wazerohost runs plugin modules inside the wazero runtime.
//
// The binding plays the part of the native host: each module.Func becomes
// a wazero host function whose Go body is the function's trampoline, the
// calling guest module becomes the abi.Instance a callback can re-enter,
// and the guest's first memory becomes the abi.Memory behind the view.
//
//	h, err := wazerohost.New(ctx, wazerohost.Config{Logger: log})
//	defer h.Close(ctx)
//	desc, _ := plugin.Current()
//	if err := h.RegisterPlugin(ctx, desc); err != nil { ... }
//	inst, err := h.Load(ctx, "guest", wasmBytes)
//	out, err := inst.Call(ctx, "run", types.NewI32(1))
//
// A trampoline that reports a non-zero result aborts the guest call the way
// a native host would: the guest traps and the caller receives a CallError
// carrying the result code and the callback's error.
//
// wazero has no v128 or funcref host parameters, so modules using those
// kinds are rejected at registration.
package wazerohost
