package utils

import (
	"strings"
	"testing"
)

// Low-cost parameters keep the tests fast; correctness does not depend on
// the work factor.
func testParams() Argon2Params {
	return Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", testParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash prefix: %s", hash)
	}

	ok, err := VerifyPassword("s3cret-pass", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("correct password did not verify")
	}

	ok, err = VerifyPassword("wrong-pass", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashPasswordUniqueSalt(t *testing.T) {
	a, err := HashPassword("same", testParams())
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashPassword("same", testParams())
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical; salt not random")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword("", testParams()); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	cases := []string{
		"not-a-hash",
		"bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA$extra",
		"argon2id$v=19$m=nope,t=1,p=1$c2FsdA$aGFzaA",
	}
	for _, c := range cases {
		if _, err := VerifyPassword("pw", c); err == nil {
			t.Errorf("expected error for malformed hash %q", c)
		}
	}
}

func TestVerifyPasswordEmptyInputs(t *testing.T) {
	ok, err := VerifyPassword("", "argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA")
	if err != nil || ok {
		t.Fatalf("empty password: got ok=%v err=%v, want false,nil", ok, err)
	}
	ok, err = VerifyPassword("pw", "")
	if err != nil || ok {
		t.Fatalf("empty hash: got ok=%v err=%v, want false,nil", ok, err)
	}
}
