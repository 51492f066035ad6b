package tre

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// storeLookup adapts a FieldStore to postfix.Lookup: ASCII-integer fields
// are trimmed and parsed as signed decimal (empty or all-space fields parse
// as 0); binary fields are read as big-endian unsigned integers of their
// stored width. Any other kind is not comparable/usable as an integer and
// is a schema error — a comparison against a missing field is an error, not
// a silent 0.
type storeLookup struct {
	store *FieldStore
}

func (l storeLookup) LookupInt(tag string) (int64, bool, error) {
	fv, ok := l.store.Get(tag)
	if !ok {
		return 0, false, nil
	}
	v, err := fieldValueToInt(fv)
	if err != nil {
		return 0, true, fmt.Errorf("tre: field %q: %w", tag, err)
	}
	return v, true, nil
}

func fieldValueToInt(fv FieldValue) (int64, error) {
	switch fv.Kind {
	case KindASCIIInteger:
		s := strings.TrimSpace(string(fv.Bytes))
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not a valid ascii integer %q: %w", s, err)
		}
		return n, nil
	case KindBinary:
		return binaryToUint(fv.Bytes), nil
	default:
		return 0, fmt.Errorf("kind %v is not usable in an integer expression", fv.Kind)
	}
}

func binaryToUint(b []byte) int64 {
	switch len(b) {
	case 0:
		return 0
	case 1:
		return int64(b[0])
	case 2:
		return int64(binary.BigEndian.Uint16(b))
	case 4:
		return int64(binary.BigEndian.Uint32(b))
	case 8:
		return int64(binary.BigEndian.Uint64(b))
	default:
		var v uint64
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return int64(v)
	}
}
