package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-plugin-sdk/types"
)

// parseArgs splits a comma-separated argument list and converts each entry
// to the matching parameter type.
func parseArgs(s string, params []types.ValType) ([]types.Val, error) {
	var fields []string
	if strings.TrimSpace(s) != "" {
		fields = strings.Split(s, ",")
	}
	if len(fields) != len(params) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(params), len(fields))
	}
	vals := make([]types.Val, len(params))
	for i, t := range params {
		v, err := parseArg(fields[i], t)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// parseArg converts one textual argument. Integers accept any base strconv
// understands and i32 also accepts the unsigned range.
func parseArg(s string, t types.ValType) (types.Val, error) {
	s = strings.TrimSpace(s)
	switch t {
	case types.I32:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil || v < math.MinInt32 || v > math.MaxUint32 {
			return types.Val{}, fmt.Errorf("invalid i32 %q", s)
		}
		return types.NewI32(int32(v)), nil
	case types.I64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(s, 0, 64)
			if uerr != nil {
				return types.Val{}, fmt.Errorf("invalid i64 %q", s)
			}
			v = int64(u)
		}
		return types.NewI64(v), nil
	case types.F32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return types.Val{}, fmt.Errorf("invalid f32 %q", s)
		}
		return types.NewF32(float32(v)), nil
	case types.F64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Val{}, fmt.Errorf("invalid f64 %q", s)
		}
		return types.NewF64(v), nil
	case types.ExternRef:
		if s == "" || s == "null" {
			return types.NullRef(types.ExternRef), nil
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return types.Val{}, fmt.Errorf("invalid externref %q", s)
		}
		return types.NewExternRef(uintptr(v)), nil
	default:
		return types.Val{}, fmt.Errorf("cannot pass %s from the command line", t)
	}
}

// parseRange parses "ptr:len".
func parseRange(s string) (uint32, uint32, error) {
	ptrStr, lenStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q, want ptr:len", s)
	}
	ptr, err := strconv.ParseUint(ptrStr, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pointer %q", ptrStr)
	}
	n, err := strconv.ParseUint(lenStr, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid length %q", lenStr)
	}
	return uint32(ptr), uint32(n), nil
}
