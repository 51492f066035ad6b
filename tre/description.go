// Package tre implements the description-driven TRE (Tagged Record
// Extension) engine: a declarative schema walked by a stateful cursor to
// decode bytes into an ordered field store and re-encode that store back to
// bytes.
package tre

import (
	"fmt"

	"github.com/cocosip/go-nitf-tre/nitferr"
)

// Kind identifies how a field's raw bytes should be interpreted.
type Kind int

const (
	KindBinary Kind = iota
	KindASCIIInteger
	KindASCIIString
	KindASCIIFloat
	KindRawBytes
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindASCIIInteger:
		return "ascii-integer"
	case KindASCIIString:
		return "ascii-string"
	case KindASCIIFloat:
		return "ascii-float"
	case KindRawBytes:
		return "raw-bytes"
	default:
		return "unknown"
	}
}

// Op identifies the variant of a description Entry.
type Op int

const (
	OpField Op = iota
	OpLoopBegin
	OpLoopEnd
	OpIf
	OpElse
	OpEndIf
	OpComputeLen
	OpEnd
)

// ConsumeRemainder is the length-expression sentinel meaning "read all
// remaining bytes in the segment's byte budget".
const ConsumeRemainder = "*"

// Entry is one element of a TRE description table. Expr holds the
// length-expression for Field/ComputeLen, the count-expression for
// LoopBegin, or the predicate for If; the other fields are meaningful only
// for the Op they belong to.
type Entry struct {
	Op      Op
	Tag     string
	Expr    string
	Kind    Kind
	Default []byte
}

// Field declares a terminal field. length may be a non-negative int, the
// string tre.ConsumeRemainder, or a postfix expression string.
func Field(tag string, length any, kind Kind, def []byte) Entry {
	return Entry{Op: OpField, Tag: tag, Expr: lengthExprOf(length), Kind: kind, Default: def}
}

func lengthExprOf(length any) string {
	switch v := length.(type) {
	case string:
		return v
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		panic(fmt.Sprintf("tre: unsupported length expression type %T", length))
	}
}

func LoopBegin(countExpr any) Entry { return Entry{Op: OpLoopBegin, Expr: lengthExprOf(countExpr)} }
func LoopEnd() Entry                { return Entry{Op: OpLoopEnd} }
func If(predicate string) Entry     { return Entry{Op: OpIf, Expr: predicate} }
func Else() Entry                   { return Entry{Op: OpElse} }
func EndIf() Entry                  { return Entry{Op: OpEndIf} }
func ComputeLen(expr string) Entry  { return Entry{Op: OpComputeLen, Expr: expr} }
func End() Entry                    { return Entry{Op: OpEnd} }

// Description is the read-only declarative schema for one TRE tag: an
// ordered list of fields, loops, and conditionals, terminated by End.
type Description struct {
	Tag     string
	Entries []Entry
}

// NewDescription builds a Description and appends a terminating End entry if
// the caller didn't already supply one.
func NewDescription(tag string, entries ...Entry) *Description {
	if len(entries) == 0 || entries[len(entries)-1].Op != OpEnd {
		entries = append(entries, End())
	}
	return &Description{Tag: tag, Entries: entries}
}

// Validate checks the structural invariant that every LoopBegin and If has a
// matching LoopEnd/EndIf at the same nesting depth, and that a
// ConsumeRemainder field is only ever the last terminal entry (anywhere
// else is treated as a schema error).
func (d *Description) Validate() error {
	var openStack []Op
	sawTerminalConsumeRemainder := -1

	for i, e := range d.Entries {
		switch e.Op {
		case OpLoopBegin, OpIf:
			openStack = append(openStack, e.Op)
		case OpLoopEnd:
			if len(openStack) == 0 || openStack[len(openStack)-1] != OpLoopBegin {
				return schemaErr("tre.Description.Validate", fmt.Errorf("unmatched LoopEnd at entry %d", i))
			}
			openStack = openStack[:len(openStack)-1]
		case OpElse, OpEndIf:
			if len(openStack) == 0 || openStack[len(openStack)-1] != OpIf {
				return schemaErr("tre.Description.Validate", fmt.Errorf("unmatched %v at entry %d", e.Op, i))
			}
			if e.Op == OpEndIf {
				openStack = openStack[:len(openStack)-1]
			}
		case OpField:
			if e.Expr == ConsumeRemainder {
				if len(openStack) > 0 {
					return schemaErr("tre.Description.Validate", fmt.Errorf("consume-remainder field %q inside a loop/conditional at entry %d", e.Tag, i))
				}
				sawTerminalConsumeRemainder = i
			}
		}
	}
	if len(openStack) != 0 {
		return schemaErr("tre.Description.Validate", fmt.Errorf("unmatched block(s) still open at end of table: %v", openStack))
	}
	if sawTerminalConsumeRemainder != -1 {
		for i := sawTerminalConsumeRemainder + 1; i < len(d.Entries); i++ {
			if d.Entries[i].Op != OpEnd {
				return schemaErr("tre.Description.Validate", fmt.Errorf("consume-remainder field at entry %d is not the last field", sawTerminalConsumeRemainder))
			}
		}
	}
	return nil
}

func schemaErr(op string, err error) *nitferr.Error {
	return nitferr.New(nitferr.SchemaError, op, err)
}

// matchClose scans forward from startIdx+1 (a LoopBegin or If) and returns
// the index of its matching LoopEnd/EndIf, skipping over nested blocks. Else
// markers at the target's own depth are transparent (not a close).
func (d *Description) matchClose(startIdx int) (int, error) {
	depth := 0
	for i := startIdx + 1; i < len(d.Entries); i++ {
		switch d.Entries[i].Op {
		case OpLoopBegin, OpIf:
			depth++
		case OpLoopEnd, OpEndIf:
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return -1, fmt.Errorf("unmatched block starting at entry %d", startIdx)
}

// matchElseOrEnd scans forward from an If at startIdx and returns the index
// of the first Else or EndIf at the same depth, and whether it was an Else.
func (d *Description) matchElseOrEnd(startIdx int) (int, bool, error) {
	depth := 0
	for i := startIdx + 1; i < len(d.Entries); i++ {
		switch d.Entries[i].Op {
		case OpLoopBegin, OpIf:
			depth++
		case OpLoopEnd, OpEndIf:
			if depth == 0 {
				return i, false, nil
			}
			depth--
		case OpElse:
			if depth == 0 {
				return i, true, nil
			}
		}
	}
	return -1, false, fmt.Errorf("unmatched if starting at entry %d", startIdx)
}

func (o Op) String() string {
	switch o {
	case OpField:
		return "Field"
	case OpLoopBegin:
		return "LoopBegin"
	case OpLoopEnd:
		return "LoopEnd"
	case OpIf:
		return "If"
	case OpElse:
		return "Else"
	case OpEndIf:
		return "EndIf"
	case OpComputeLen:
		return "ComputeLen"
	case OpEnd:
		return "End"
	default:
		return "Unknown"
	}
}
