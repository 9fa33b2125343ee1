package utils

import "testing"

func TestHashStringDeterministic(t *testing.T) {
	a := HashString("192.168.1.10")
	b := HashString("192.168.1.10")
	if a != b {
		t.Fatalf("same input hashed differently: %s vs %s", a, b)
	}
}

func TestHashStringLength(t *testing.T) {
	// SHA3-256 hex digest is always 64 characters.
	for _, in := range []string{"", "10.0.0.1", "unknown", "2001:db8::1"} {
		if got := HashString(in); len(got) != 64 {
			t.Errorf("HashString(%q) length = %d, want 64", in, len(got))
		}
	}
}

func TestHashStringDistinct(t *testing.T) {
	if HashString("10.0.0.1") == HashString("10.0.0.2") {
		t.Fatal("different inputs produced the same digest")
	}
}
