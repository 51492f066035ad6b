package tre

import (
	"bytes"
	"testing"

	"github.com/cocosip/go-nitf-tre/stream"
)

// Simple TRE round trip: two fixed-length fields, read then re-encode.
func TestSimpleRoundTrip(t *testing.T) {
	desc := NewDescription("SIMP",
		Field("A", 3, KindASCIIInteger, nil),
		Field("B", 5, KindASCIIString, nil),
		End(),
	)
	input := []byte("012HELLO")
	src := stream.NewMemStream(input)

	store, err := Read(desc, src, int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertField(t, store, "A", "012")
	assertField(t, store, "B", "HELLO")

	out := stream.NewEmptyMemStream()
	n, err := Write(&Instance{Desc: desc, Store: store}, out)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != int64(len(input)) {
		t.Errorf("wrote %d bytes, want %d", n, len(input))
	}
	if !bytes.Equal(out.Bytes(), input) {
		t.Errorf("round trip = %q, want %q", out.Bytes(), input)
	}
}

// Looped TRE: a count field followed by that many repetitions of a field.
func TestLoopedTRE(t *testing.T) {
	desc := NewDescription("LOOP",
		Field("N", 2, KindASCIIInteger, nil),
		LoopBegin("N"),
		Field("V", 3, KindASCIIInteger, nil),
		LoopEnd(),
		End(),
	)
	input := []byte("03001002003")
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertField(t, store, "N", "03")
	assertField(t, store, "V[0]", "001")
	assertField(t, store, "V[1]", "002")
	assertField(t, store, "V[2]", "003")

	wantOrder := []string{"N", "V[0]", "V[1]", "V[2]"}
	if got := store.Tags(); !sliceEqual(got, wantOrder) {
		t.Errorf("Tags() = %v, want %v", got, wantOrder)
	}

	out := stream.NewEmptyMemStream()
	if _, err := Write(&Instance{Desc: desc, Store: store}, out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(out.Bytes(), input) {
		t.Errorf("round trip = %q, want %q", out.Bytes(), input)
	}
}

// Conditional TRE: a field present only when a predicate is true.
func TestConditionalFieldPresentWhenTrue(t *testing.T) {
	desc := conditionalDescription()
	input := []byte("1" + "0042")
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertField(t, store, "FLAG", "1")
	assertField(t, store, "X", "0042")

	out := stream.NewEmptyMemStream()
	if _, err := Write(&Instance{Desc: desc, Store: store}, out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := string(out.Bytes()); got != "10042" {
		t.Errorf("re-encode = %q, want %q", got, "10042")
	}
}

func TestConditionalFieldAbsentWhenFalse(t *testing.T) {
	desc := conditionalDescription()
	input := []byte("0")
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, ok := store.Get("X"); ok {
		t.Error("store should not contain X when FLAG is false")
	}
}

func conditionalDescription() *Description {
	return NewDescription("COND",
		Field("FLAG", 1, KindASCIIInteger, nil),
		If("FLAG 1 ="),
		Field("X", 4, KindASCIIInteger, nil),
		EndIf(),
		End(),
	)
}

// Nested loops: inner loop tags compose one bracket index per enclosing loop.
func TestNestedLoopTagComposition(t *testing.T) {
	desc := NewDescription("NEST",
		Field("N", 1, KindASCIIInteger, nil),
		LoopBegin("N"),
		Field("M", 1, KindASCIIInteger, nil),
		LoopBegin("M"),
		Field("V", 1, KindASCIIString, nil),
		LoopEnd(),
		LoopEnd(),
		End(),
	)
	input := []byte("2" + "2abcd")
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	wantOrder := []string{"N", "M[0]", "V[0][0]", "V[0][1]", "M[1]", "V[1][0]", "V[1][1]"}
	if got := store.Tags(); !sliceEqual(got, wantOrder) {
		t.Errorf("Tags() = %v, want %v", got, wantOrder)
	}
	assertField(t, store, "V[0][0]", "a")
	assertField(t, store, "V[0][1]", "b")
	assertField(t, store, "V[1][0]", "c")
	assertField(t, store, "V[1][1]", "d")
}

func TestZeroIterationLoopProducesNoFields(t *testing.T) {
	desc := NewDescription("ZERO",
		Field("N", 1, KindASCIIInteger, nil),
		LoopBegin("N"),
		Field("V", 1, KindASCIIInteger, nil),
		LoopEnd(),
		Field("TAIL", 3, KindASCIIString, nil),
		End(),
	)
	input := []byte("0END")
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, ok := store.Get("V[0]"); ok {
		t.Error("zero-iteration loop should not produce V[0]")
	}
	assertField(t, store, "TAIL", "END")
}

func TestConsumeRemainder(t *testing.T) {
	desc := NewDescription("REST",
		Field("A", 2, KindASCIIInteger, nil),
		Field("REST", ConsumeRemainder, KindRawBytes, nil),
		End(),
	)
	input := []byte("01REMAINING-BYTES")
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertField(t, store, "REST", "REMAINING-BYTES")

	out := stream.NewEmptyMemStream()
	if _, err := Write(&Instance{Desc: desc, Store: store}, out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(out.Bytes(), input) {
		t.Errorf("round trip = %q, want %q", out.Bytes(), input)
	}
}

func TestConsumeRemainderZeroBytes(t *testing.T) {
	desc := NewDescription("REST0",
		Field("A", 2, KindASCIIInteger, nil),
		Field("REST", ConsumeRemainder, KindRawBytes, nil),
		End(),
	)
	input := []byte("01")
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	fv, ok := store.Get("REST")
	if !ok {
		t.Fatal("expected REST present even with zero remaining bytes")
	}
	if len(fv.Bytes) != 0 {
		t.Errorf("REST = %q, want empty", fv.Bytes)
	}
}

func TestReadTruncationIsAnError(t *testing.T) {
	desc := NewDescription("TRUNC",
		Field("A", 3, KindASCIIInteger, nil),
		Field("B", 5, KindASCIIString, nil),
		End(),
	)
	input := []byte("012HEL") // only 6 bytes, B needs 5 more after A's 3
	if _, err := Read(desc, stream.NewMemStream(input), int64(len(input))); err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestWriteMissingFieldEmitsDefaultThenZeroFill(t *testing.T) {
	desc := NewDescription("DEF",
		Field("A", 4, KindASCIIString, []byte("AB")),
		End(),
	)
	inst := NewInstance(desc)
	out := stream.NewEmptyMemStream()
	if _, err := Write(inst, out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []byte{'A', 'B', 0, 0}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("Write() = %v, want %v", out.Bytes(), want)
	}
}

func TestComputeLenOverridesNextFieldLength(t *testing.T) {
	desc := NewDescription("CL",
		Field("LEN", 2, KindASCIIInteger, nil),
		ComputeLen("LEN 1 +"),
		Field("PAYLOAD", 0, KindASCIIString, nil),
		End(),
	)
	input := []byte("03" + "ABCD") // LEN=03, payload length = 3+1 = 4
	store, err := Read(desc, stream.NewMemStream(input), int64(len(input)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertField(t, store, "PAYLOAD", "ABCD")
}

func assertField(t *testing.T, store *FieldStore, tag, want string) {
	t.Helper()
	fv, ok := store.Get(tag)
	if !ok {
		t.Fatalf("field %q not present in store", tag)
	}
	if string(fv.Bytes) != want {
		t.Errorf("field %q = %q, want %q", tag, fv.Bytes, want)
	}
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
