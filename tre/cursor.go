package tre

import (
	"fmt"

	"github.com/cocosip/go-nitf-tre/nitferr"
	"github.com/cocosip/go-nitf-tre/tre/internal/postfix"
	"github.com/cocosip/go-nitf-tre/tre/internal/stack"
	"github.com/cocosip/go-nitf-tre/tre/internal/tagfmt"
)

// maxNestingDepth bounds the cursor's loop/return stacks (well above any
// realistic description table's nesting depth).
const maxNestingDepth = 32

// Instance pairs a description with the field store it decodes into or
// encodes from.
type Instance struct {
	Desc  *Description
	Store *FieldStore
}

// NewInstance pairs desc with a fresh, empty field store.
func NewInstance(desc *Description) *Instance {
	return &Instance{Desc: desc, Store: NewFieldStore()}
}

// Cursor is a stateful iterator over a TRE instance that yields successive
// field visits with computed lengths and fully-qualified tags, interpreting
// loops and conditionals along the way.
type Cursor struct {
	inst *Instance

	index int

	loopCount  *stack.Stack[int64]
	loopIdx    *stack.Stack[int64]
	loopReturn *stack.Stack[int64]

	pendingLen    int64
	hasPendingLen bool

	tag    string
	length int64
	entry  *Entry
	prev   *Entry

	done bool
	err  error
}

// Begin initializes a cursor at the first description entry.
func Begin(inst *Instance) *Cursor {
	c := &Cursor{
		inst:       inst,
		loopCount:  stack.New[int64](maxNestingDepth),
		loopIdx:    stack.New[int64](maxNestingDepth),
		loopReturn: stack.New[int64](maxNestingDepth),
	}
	if len(inst.Desc.Entries) > 0 && inst.Desc.Entries[0].Op == OpEnd {
		c.done = true
	}
	return c
}

// IsDone reports whether the cursor has reached End (with or without error).
func (c *Cursor) IsDone() bool { return c.done }

// Err returns the error that put the cursor into done-with-error state, if
// any.
func (c *Cursor) Err() error { return c.err }

// Tag returns the fully-qualified tag of the field at the current position.
func (c *Cursor) Tag() string { return c.tag }

// Length returns the effective length of the field at the current position,
// or -1 if the field consumes the remainder of the read budget.
func (c *Cursor) Length() int64 { return c.length }

// Entry returns the description entry the cursor is currently positioned at.
func (c *Cursor) Entry() *Entry { return c.entry }

// Clone returns a deep copy of the cursor, including its stacks, for
// lookahead snapshots.
func (c *Cursor) Clone() *Cursor {
	clone := *c
	clone.loopCount = c.loopCount.Clone()
	clone.loopIdx = c.loopIdx.Clone()
	clone.loopReturn = c.loopReturn.Clone()
	return &clone
}

// Cleanup releases the cursor's stacks.
func (c *Cursor) Cleanup() {
	c.loopCount = nil
	c.loopIdx = nil
	c.loopReturn = nil
}

func (c *Cursor) fail(err error) error {
	wrapped := nitferr.New(nitferr.SchemaError, "tre.Cursor.Iterate", err)
	c.err = wrapped
	c.done = true
	return wrapped
}

func (c *Cursor) evalInt(expr string) (int64, error) {
	lookup := storeLookup{store: c.inst.Store}
	return postfix.Evaluate(expr, c.loopIdx.Values(), lookup)
}

// Iterate advances to the next terminal field, interpreting LoopBegin,
// LoopEnd, If, Else, EndIf, ComputeLen, and End inline.
func (c *Cursor) Iterate() error {
	if c.done {
		return nil
	}

	entries := c.inst.Desc.Entries
	for {
		if c.index < 0 || c.index >= len(entries) {
			return c.fail(fmt.Errorf("index %d out of range", c.index))
		}
		e := &entries[c.index]

		switch e.Op {
		case OpField:
			length, err := c.resolveLength(e)
			if err != nil {
				return c.fail(err)
			}
			c.prev = c.entry
			c.entry = e
			c.tag = tagfmt.Compose(e.Tag, c.loopIdx.Values())
			c.length = length
			c.pendingLen = 0
			c.hasPendingLen = false
			c.index++
			return nil

		case OpLoopBegin:
			count, err := c.evalInt(e.Expr)
			if err != nil {
				return c.fail(err)
			}
			if count < 0 {
				return c.fail(fmt.Errorf("loop count evaluated negative: %d", count))
			}
			if count == 0 {
				closeIdx, err := c.inst.Desc.matchClose(c.index)
				if err != nil {
					return c.fail(err)
				}
				c.index = closeIdx + 1
				continue
			}
			if err := c.loopCount.Push(count); err != nil {
				return c.fail(err)
			}
			if err := c.loopIdx.Push(0); err != nil {
				return c.fail(err)
			}
			if err := c.loopReturn.Push(int64(c.index + 1)); err != nil {
				return c.fail(err)
			}
			c.index++
			continue

		case OpLoopEnd:
			idx, err := c.loopIdx.Peek()
			if err != nil {
				return c.fail(err)
			}
			idx++
			count, err := c.loopCount.Peek()
			if err != nil {
				return c.fail(err)
			}
			if idx < count {
				if err := c.loopIdx.ReplaceTop(idx); err != nil {
					return c.fail(err)
				}
				ret, err := c.loopReturn.Peek()
				if err != nil {
					return c.fail(err)
				}
				c.index = int(ret)
				continue
			}
			if _, err := c.loopIdx.Pop(); err != nil {
				return c.fail(err)
			}
			if _, err := c.loopCount.Pop(); err != nil {
				return c.fail(err)
			}
			if _, err := c.loopReturn.Pop(); err != nil {
				return c.fail(err)
			}
			c.index++
			continue

		case OpIf:
			v, err := c.evalInt(e.Expr)
			if err != nil {
				return c.fail(err)
			}
			if v == 0 {
				idx, _, err := c.inst.Desc.matchElseOrEnd(c.index)
				if err != nil {
					return c.fail(err)
				}
				c.index = idx + 1
				continue
			}
			c.index++
			continue

		case OpElse:
			// Reached by fall-through: the If's predicate was true and its
			// body just finished. matchClose scans forward from here (not
			// from the originating If) and finds the same EndIf either way,
			// since it never inspects the entry it starts from.
			closeIdx, err := c.inst.Desc.matchClose(c.index)
			if err != nil {
				return c.fail(err)
			}
			c.index = closeIdx + 1
			continue

		case OpEndIf:
			c.index++
			continue

		case OpComputeLen:
			v, err := c.evalInt(e.Expr)
			if err != nil {
				return c.fail(err)
			}
			c.pendingLen = v
			c.hasPendingLen = true
			c.index++
			continue

		case OpEnd:
			c.done = true
			return nil

		default:
			return c.fail(fmt.Errorf("unknown description op %v", e.Op))
		}
	}
}

// resolveLength computes the effective length for a Field entry: a pending
// ComputeLen override takes precedence, then the consume-remainder sentinel,
// then the field's own length expression.
func (c *Cursor) resolveLength(e *Entry) (int64, error) {
	if c.hasPendingLen {
		return c.pendingLen, nil
	}
	if e.Expr == ConsumeRemainder {
		return -1, nil
	}
	return c.evalInt(e.Expr)
}
