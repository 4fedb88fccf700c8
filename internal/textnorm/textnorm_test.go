package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Chicken Breast", "chicken breast"},
		{"strips qualifiers", "Fresh Organic Spinach", "spinach"},
		{"strips punctuation", "tofu (firm)", "tofu"},
		{"apostrophe variant", "cow’s milk", "cow s milk"},
		{"collapses whitespace", "  olive   oil  ", "olive oil"},
		{"empty", "", ""},
		{"only qualifiers", "fresh raw", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Grilled Chicken Breast",
		"extra-firm tofu",
		"2 eggs and toast",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestTokenSet(t *testing.T) {
	got := TokenSet("Fresh Chicken Breast")
	want := map[string]struct{}{"chicken": {}, "breast": {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenSet() = %v, want %v", got, want)
	}
}

func TestIsSubset(t *testing.T) {
	q := TokenSet("chicken")
	cand := TokenSet("grilled chicken breast")
	if !IsSubset(q, cand) {
		t.Error("IsSubset: query tokens should be contained in candidate tokens")
	}
	if IsSubset(cand, q) {
		t.Error("IsSubset: superset must not count as subset")
	}
	if !IsSubset(TokenSet(""), q) {
		t.Error("IsSubset: empty set is a subset of anything")
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps(TokenSet("chicken soup"), TokenSet("chicken breast")) {
		t.Error("Overlaps: shared token not detected")
	}
	if Overlaps(TokenSet("beef"), TokenSet("chicken breast")) {
		t.Error("Overlaps: disjoint sets reported as overlapping")
	}
}
