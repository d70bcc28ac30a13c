package types

import (
	"fmt"
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-plugin-sdk/errors"
)

var funcDeclPattern = regexp.MustCompile(`^\s*([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?\s*;?\s*$`)

// ParseFuncDecl parses a WIT function declaration such as
//
//	to_uppercase: func(ptr: s32, len: s32) -> s32
//
// and flattens its primitive WIT types to core value kinds.
func ParseFuncDecl(decl string) (string, Signature, error) {
	m := funcDeclPattern.FindStringSubmatch(decl)
	if m == nil {
		return "", Signature{}, errors.InvalidData(errors.PhaseParse, fmt.Sprintf("not a WIT function declaration: %q", decl))
	}
	name := m[1]
	paramsStr := strings.TrimSpace(m[2])
	resultStr := strings.TrimSpace(m[3])

	var sig Signature

	if paramsStr != "" {
		for _, p := range splitParams(paramsStr) {
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = strings.TrimSpace(p[idx+1:])
			}
			t, err := parseCoreType(typStr)
			if err != nil {
				return "", Signature{}, err
			}
			sig.Params = append(sig.Params, t)
		}
	}

	if resultStr != "" && resultStr != "()" {
		parts := []string{resultStr}
		if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
			parts = splitParams(strings.TrimSuffix(strings.TrimPrefix(resultStr, "("), ")"))
		}
		for _, part := range parts {
			typStr := part
			if idx := strings.LastIndex(part, ":"); idx != -1 {
				typStr = strings.TrimSpace(part[idx+1:])
			}
			t, err := parseCoreType(typStr)
			if err != nil {
				return "", Signature{}, err
			}
			sig.Results = append(sig.Results, t)
		}
	}

	return name, sig, nil
}

// FormatFuncDecl renders a signature as a WIT-style declaration. Integer
// kinds are shown as signed WIT types; kinds without a WIT equivalent keep
// their core names.
func FormatFuncDecl(name string, sig Signature) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(": func(")
	for i, p := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "p%d: %s", i, witName(p))
	}
	b.WriteByte(')')
	switch len(sig.Results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(witName(sig.Results[0]))
	default:
		b.WriteString(" -> (")
		for i, r := range sig.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(witName(r))
		}
		b.WriteByte(')')
	}
	return b.String()
}

func witName(t ValType) string {
	switch t {
	case I32:
		return "s32"
	case I64:
		return "s64"
	default:
		return t.String()
	}
}

func parseCoreType(s string) (ValType, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "i32", "i64", "v128", "funcref", "externref":
		// core names pass through; WIT has no spelling for them
		return coreNames[s], nil
	}
	t, err := wit.ParseType(s)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse type "+s)
	}
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return I32, nil
	case wit.U64, wit.S64:
		return I64, nil
	case wit.F32:
		return F32, nil
	case wit.F64:
		return F64, nil
	default:
		return 0, errors.Unsupported(errors.PhaseParse, fmt.Sprintf("WIT type %s has no single core value", s))
	}
}

var coreNames = map[string]ValType{
	"i32":       I32,
	"i64":       I64,
	"v128":      V128,
	"funcref":   FuncRef,
	"externref": ExternRef,
}

// splitParams splits a parameter list, handling nested angle brackets and parens.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}
