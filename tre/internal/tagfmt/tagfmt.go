// Package tagfmt composes fully-qualified TRE tags from a base tag and a set
// of enclosing loop indices. It is factored out of package tre so that the
// postfix evaluator (which must compose the same candidate tags while
// resolving bare names against loop context) does not need to import the
// cursor package, and vice versa.
package tagfmt

import "strings"

// Compose appends one bracketed index per enclosing loop to base, e.g.
// Compose("V", []int64{0, 1}) == "V[0][1]". This is the one tag-composition
// scheme used consistently in both the write and lookup paths.
func Compose(base string, indices []int64) string {
	if len(indices) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	for _, i := range indices {
		b.WriteByte('[')
		writeInt(&b, i)
		b.WriteByte(']')
	}
	return b.String()
}

func writeInt(b *strings.Builder, v int64) {
	if v == 0 {
		b.WriteByte('0')
		return
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		b.WriteByte('-')
	}
	b.Write(digits[i:])
}

// HasExplicitIndex reports whether tok already carries bracket indices (e.g.
// "ITEM[3].COUNT"), meaning it is a fully resolved tag that must be looked up
// verbatim rather than composed against the current loop context.
func HasExplicitIndex(tok string) bool {
	return strings.ContainsRune(tok, '[')
}
