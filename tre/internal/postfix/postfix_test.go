package postfix

import "testing"

type mapLookup map[string]int64

func (m mapLookup) LookupInt(tag string) (int64, bool, error) {
	v, ok := m[tag]
	return v, ok, nil
}

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want int64
	}{
		{"add", "1 2 +", 3},
		{"sub", "5 3 -", 2},
		{"mul", "4 5 *", 20},
		{"div", "10 2 /", 5},
		{"mod", "10 3 %", 1},
		{"chained", "1 2 + 3 *", 9},
		{"eq true", "4 4 =", 1},
		{"eq false", "4 5 =", 0},
		{"neq", "4 5 !=", 1},
		{"lt", "3 4 <", 1},
		{"lte", "4 4 <=", 1},
		{"gt", "5 4 >", 1},
		{"gte", "4 4 >=", 1},
		{"negative literal", "-3 5 +", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, nil, mapLookup{})
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	if _, err := Evaluate("1 0 /", nil, mapLookup{}); err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestEvaluateEmptyExpression(t *testing.T) {
	if _, err := Evaluate("", nil, mapLookup{}); err == nil {
		t.Fatal("expected error for empty expression")
	}
}

func TestEvaluateTagLookup(t *testing.T) {
	lookup := mapLookup{"COUNT": 7}
	got, err := Evaluate("COUNT 1 -", nil, lookup)
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Errorf("got %d, want 6", got)
	}
}

func TestEvaluateUnresolvedTag(t *testing.T) {
	if _, err := Evaluate("MISSING", nil, mapLookup{}); err == nil {
		t.Fatal("expected unresolved tag error")
	}
}

func TestEvaluateExplicitIndexTagIsVerbatim(t *testing.T) {
	lookup := mapLookup{"ITEM[3].COUNT": 42}
	got, err := Evaluate("ITEM[3].COUNT", []int64{9, 9}, lookup)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestEvaluateLoopScopedTagFallsBackToOuterScope(t *testing.T) {
	// N was declared before any loop opened (no bracket suffix); an
	// expression evaluated inside a loop must still find it.
	lookup := mapLookup{"N": 3}
	got, err := Evaluate("N", []int64{0}, lookup)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestEvaluateLoopScopedTagPrefersCurrentDepth(t *testing.T) {
	lookup := mapLookup{"V[0]": 10, "V[1]": 20}
	got, err := Evaluate("V", []int64{1}, lookup)
	if err != nil {
		t.Fatal(err)
	}
	if got != 20 {
		t.Errorf("got %d, want 20", got)
	}
}
