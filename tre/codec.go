package tre

import (
	"fmt"

	"github.com/cocosip/go-nitf-tre/nitferr"
	"github.com/cocosip/go-nitf-tre/stream"
)

// Read decodes budget bytes from src according to desc, driving a cursor and
// inserting (tag -> bytes) into a fresh field store as each field is
// visited. budget is the number of bytes remaining in the enclosing
// segment; a consume-remainder field consumes whatever is left of it.
func Read(desc *Description, src stream.Stream, budget int64) (*FieldStore, error) {
	if budget < 0 {
		return nil, nitferr.New(nitferr.InvalidArgument, "tre.Read", fmt.Errorf("negative budget %d", budget))
	}
	inst := NewInstance(desc)
	cur := Begin(inst)
	defer cur.Cleanup()

	for !cur.IsDone() {
		if err := cur.Iterate(); err != nil {
			return inst.Store, err
		}
		if cur.IsDone() {
			break
		}

		n := cur.Length()
		if n < 0 { // consume remainder
			n = budget
		}
		if n > budget {
			return inst.Store, nitferr.New(nitferr.ParseError, "tre.Read",
				fmt.Errorf("field %q needs %d bytes but only %d remain in budget", cur.Tag(), n, budget))
		}

		buf := make([]byte, n)
		if n > 0 {
			if err := src.Read(buf); err != nil {
				return inst.Store, nitferr.New(nitferr.IoFailure, "tre.Read", err)
			}
		}
		inst.Store.Set(cur.Tag(), FieldValue{Kind: cur.Entry().Kind, Bytes: buf})
		budget -= n
	}

	if err := cur.Err(); err != nil {
		return inst.Store, err
	}
	return inst.Store, nil
}

// Write encodes inst back to bytes on sink, driving a cursor over inst.Desc
// and emitting either the stored bytes (truncated/padded to the cursor's
// length) or the field's default/zero-fill when a tag is absent from the
// store. It returns the total number of bytes emitted.
func Write(inst *Instance, sink stream.Stream) (int64, error) {
	cur := Begin(inst)
	defer cur.Cleanup()

	var total int64
	for !cur.IsDone() {
		if err := cur.Iterate(); err != nil {
			return total, err
		}
		if cur.IsDone() {
			break
		}

		out, err := fieldBytesToEmit(inst.Store, cur.Tag(), cur.Entry(), cur.Length())
		if err != nil {
			return total, err
		}
		if len(out) > 0 {
			if err := sink.Write(out); err != nil {
				return total, nitferr.New(nitferr.IoFailure, "tre.Write", err)
			}
		}
		total += int64(len(out))
	}

	if err := cur.Err(); err != nil {
		return total, err
	}
	return total, nil
}

func fieldBytesToEmit(store *FieldStore, tag string, entry *Entry, length int64) ([]byte, error) {
	fv, ok := store.Get(tag)
	if !ok {
		if length < 0 {
			return nil, nil
		}
		out := make([]byte, length)
		copy(out, entry.Default)
		return out, nil
	}

	if length < 0 {
		return fv.Bytes, nil
	}
	if int64(len(fv.Bytes)) == length {
		return fv.Bytes, nil
	}
	if int64(len(fv.Bytes)) > length {
		return fv.Bytes[:length], nil
	}
	out := make([]byte, length)
	copy(out, fv.Bytes)
	return out, nil
}
