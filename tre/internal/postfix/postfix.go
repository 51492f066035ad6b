// Package postfix implements the stack-based postfix (reverse-Polish)
// arithmetic/comparison evaluator used by the TRE cursor to resolve loop
// counts, conditional predicates, and computed lengths.
package postfix

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cocosip/go-nitf-tre/tre/internal/tagfmt"
)

// Lookup resolves a fully-qualified tag to its integer value. The TRE field
// store implements this by trimming ASCII-integer fields and parsing
// signed, and by reading binary-integer fields as big-endian as-is.
type Lookup interface {
	LookupInt(tag string) (value int64, found bool, err error)
}

var operators = map[string]func(a, b int64) (int64, error){
	"+": func(a, b int64) (int64, error) { return a + b, nil },
	"-": func(a, b int64) (int64, error) { return a - b, nil },
	"*": func(a, b int64) (int64, error) { return a * b, nil },
	"/": func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, fmt.Errorf("postfix: division by zero")
		}
		return a / b, nil
	},
	"%": func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, fmt.Errorf("postfix: modulo by zero")
		}
		return a % b, nil
	},
	"=":  func(a, b int64) (int64, error) { return boolInt(a == b), nil },
	"!=": func(a, b int64) (int64, error) { return boolInt(a != b), nil },
	"<":  func(a, b int64) (int64, error) { return boolInt(a < b), nil },
	"<=": func(a, b int64) (int64, error) { return boolInt(a <= b), nil },
	">":  func(a, b int64) (int64, error) { return boolInt(a > b), nil },
	">=": func(a, b int64) (int64, error) { return boolInt(a >= b), nil },
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// Evaluate runs expr as a whitespace-separated postfix expression. loopIndices
// holds the current loop nesting's indices, outermost first, used to compose
// candidate tag names for bare (unbracketed) tag tokens.
func Evaluate(expr string, loopIndices []int64, lookup Lookup) (int64, error) {
	tokens := strings.Fields(expr)
	if len(tokens) == 0 {
		return 0, fmt.Errorf("postfix: empty expression")
	}

	var operands []int64
	for _, tok := range tokens {
		if op, ok := operators[tok]; ok {
			if len(operands) < 2 {
				return 0, fmt.Errorf("postfix: operator %q: stack underflow", tok)
			}
			b := operands[len(operands)-1]
			a := operands[len(operands)-2]
			operands = operands[:len(operands)-2]
			v, err := op(a, b)
			if err != nil {
				return 0, err
			}
			operands = append(operands, v)
			continue
		}

		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			operands = append(operands, n)
			continue
		}

		v, err := resolveTag(tok, loopIndices, lookup)
		if err != nil {
			return 0, err
		}
		operands = append(operands, v)
	}

	if len(operands) == 0 {
		return 0, fmt.Errorf("postfix: expression %q produced no value", expr)
	}
	return operands[len(operands)-1], nil
}

// resolveTag looks up a tag token. Tokens that already carry bracket indices
// (dynamically generated tag names such as "ITEM[3].COUNT") are resolved
// verbatim. Bare tokens are tried at the current loop depth first and then at
// each shallower enclosing depth, so an expression inside a nested loop can
// still reference a field declared outside it or in an enclosing loop.
func resolveTag(tok string, loopIndices []int64, lookup Lookup) (int64, error) {
	if tagfmt.HasExplicitIndex(tok) {
		v, found, err := lookup.LookupInt(tok)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, fmt.Errorf("postfix: unresolved tag %q", tok)
		}
		return v, nil
	}

	for n := len(loopIndices); n >= 0; n-- {
		candidate := tagfmt.Compose(tok, loopIndices[:n])
		v, found, err := lookup.LookupInt(candidate)
		if err != nil {
			return 0, err
		}
		if found {
			return v, nil
		}
	}
	return 0, fmt.Errorf("postfix: unresolved tag %q", tok)
}
