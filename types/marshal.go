package types

import (
	"fmt"

	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
)

// Encode converts a value to a host slot.
func Encode(v Val) abi.Slot {
	return abi.Slot{
		Kind:    abi.Kind(v.kind),
		Payload: [2]uint64{v.lo, v.hi},
	}
}

// Decode converts a host slot to a value. Bits outside the kind's width are
// dropped so that Decode(Encode(v)) == v for every value.
func Decode(s abi.Slot) (Val, error) {
	t := ValType(s.Kind)
	switch t {
	case I32, F32:
		return Val{kind: t, lo: s.Payload[0] & 0xFFFFFFFF}, nil
	case I64, F64, FuncRef, ExternRef:
		return Val{kind: t, lo: s.Payload[0]}, nil
	case V128:
		return Val{kind: t, lo: s.Payload[0], hi: s.Payload[1]}, nil
	default:
		return Val{}, errors.New(errors.PhaseDecode, errors.KindParam).
			Detail("unknown kind tag %s", s.Kind).
			Value(uint32(s.Kind)).
			Build()
	}
}

// DecodeArgs decodes an argument buffer against declared parameter kinds.
// Any arity or kind mismatch is a parameter error.
func DecodeArgs(slots []abi.Slot, params []ValType) ([]Val, error) {
	if len(slots) != len(params) {
		return nil, errors.ParamArity(errors.PhaseDecode, len(params), len(slots))
	}
	vals := make([]Val, len(slots))
	for i, s := range slots {
		if ValType(s.Kind) != params[i] {
			return nil, errors.ParamType(errors.PhaseDecode, i, params[i].String(), s.Kind.String())
		}
		v, err := Decode(s)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// EncodeResults checks vals against the declared result kinds and writes
// them to out, which must have len(results) slots. Nothing is written when
// validation fails.
func EncodeResults(vals []Val, results []ValType, out []abi.Slot) error {
	if len(out) != len(results) {
		return errors.ParamArity(errors.PhaseEncode, len(results), len(out))
	}
	if err := Check(vals, results); err != nil {
		return err
	}
	for i, v := range vals {
		out[i] = Encode(v)
	}
	return nil
}

// EncodeArgs checks vals against declared parameter kinds and returns slots.
func EncodeArgs(vals []Val, params []ValType) ([]abi.Slot, error) {
	if err := Check(vals, params); err != nil {
		return nil, err
	}
	slots := make([]abi.Slot, len(vals))
	for i, v := range vals {
		slots[i] = Encode(v)
	}
	return slots, nil
}

// Check reports whether vals have exactly the kinds in want.
func Check(vals []Val, want []ValType) error {
	if len(vals) != len(want) {
		return errors.ParamArity(errors.PhaseEncode, len(want), len(vals))
	}
	for i, v := range vals {
		if v.kind != want[i] {
			return errors.ParamType(errors.PhaseEncode, i, want[i].String(), v.kind.String())
		}
	}
	return nil
}

// Kinds converts value types to raw kind tags.
func Kinds(ts []ValType) []abi.Kind {
	out := make([]abi.Kind, len(ts))
	for i, t := range ts {
		out[i] = abi.Kind(t)
	}
	return out
}

// FromKinds converts raw kind tags to value types.
func FromKinds(ks []abi.Kind) ([]ValType, error) {
	out := make([]ValType, len(ks))
	for i, k := range ks {
		if !k.Valid() {
			return nil, errors.InvalidData(errors.PhaseDecode, fmt.Sprintf("unknown kind tag %s at %d", k, i))
		}
		out[i] = ValType(k)
	}
	return out, nil
}
