package types

import (
	"slices"
	"strings"
)

// Signature is an ordered list of parameter kinds and result kinds.
// Zero parameters and multiple results are both allowed.
type Signature struct {
	Params  []ValType
	Results []ValType
}

// NewSignature copies params and results so later changes to the caller's
// slices do not affect the signature.
func NewSignature(params, results []ValType) Signature {
	return Signature{
		Params:  slices.Clone(params),
		Results: slices.Clone(results),
	}
}

// Validate reports the first unknown kind in the signature.
func (s Signature) Validate() error {
	if _, err := FromKinds(Kinds(s.Params)); err != nil {
		return err
	}
	_, err := FromKinds(Kinds(s.Results))
	return err
}

// Equal reports whether both signatures have the same kinds in order.
func (s Signature) Equal(o Signature) bool {
	return slices.Equal(s.Params, o.Params) && slices.Equal(s.Results, o.Results)
}

// String renders the signature as (i32,i32)->(i32).
func (s Signature) String() string {
	var b strings.Builder
	writeList(&b, s.Params)
	b.WriteString("->")
	writeList(&b, s.Results)
	return b.String()
}

func writeList(b *strings.Builder, ts []ValType) {
	b.WriteByte('(')
	for i, t := range ts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.String())
	}
	b.WriteByte(')')
}
