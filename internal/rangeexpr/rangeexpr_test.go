package rangeexpr

import "testing"

func TestParseMixedExpression(t *testing.T) {
	s, err := Parse("3,5-7,12")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, want := range []int{3, 5, 6, 7, 12} {
		if !s.Contains(want) {
			t.Errorf("expected %d in set", want)
		}
	}
	for _, notWant := range []int{4, 8, 11, 13} {
		if s.Contains(notWant) {
			t.Errorf("did not expect %d in set", notWant)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("expected empty set, got %v", s)
	}
}

func TestParseInvalidRange(t *testing.T) {
	if _, err := Parse("7-5"); err == nil {
		t.Fatal("expected error for descending range")
	}
	if _, err := Parse("abc"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}
