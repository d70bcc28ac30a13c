package wazerohost

import (
	stderrors "errors"
	"strings"

	"github.com/tetratelabs/wazero/sys"

	"github.com/wippyai/wasm-plugin-sdk/errors"
)

// wazero reports guest traps as "wasm error: <message>".
var trapMessages = []struct {
	msg  string
	kind errors.TrapKind
}{
	{"unreachable", errors.TrapUnreachable},
	{"out of bounds memory access", errors.TrapOutOfBoundsMemory},
	{"integer divide by zero", errors.TrapDivideByZero},
	{"integer overflow", errors.TrapIntegerOverflow},
	{"invalid conversion to integer", errors.TrapInvalidConversion},
	{"stack overflow", errors.TrapStackOverflow},
	{"invalid table access", errors.TrapInvalidTableAccess},
	{"indirect call type mismatch", errors.TrapIndirectCallMismatch},
}

// classify converts an error from a guest call into a trap error.
func classify(name string, err error) *errors.Error {
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		return errors.Trap(name, errors.TrapExit, err)
	}
	var call *CallError
	if stderrors.As(err, &call) {
		return errors.Trap(name, errors.TrapHost, err)
	}
	return errors.Trap(name, trapKind(err.Error()), err)
}

func trapKind(msg string) errors.TrapKind {
	if rest, ok := strings.CutPrefix(msg, "wasm error: "); ok {
		for _, t := range trapMessages {
			if strings.HasPrefix(rest, t.msg) {
				return t.kind
			}
		}
	}
	if strings.Contains(msg, "(recovered by wazero)") {
		return errors.TrapHost
	}
	return errors.TrapUnknown
}
