package services

import "testing"

func TestVerifySecret(t *testing.T) {
	hash := HashSecret("abcd")

	if !VerifySecret(hash, "abcd") {
		t.Error("correct secret must verify")
	}
	if VerifySecret(hash, "abce") {
		t.Error("wrong secret must not verify")
	}
	if VerifySecret(hash, "") {
		t.Error("empty secret must not verify")
	}
	if VerifySecret(hash, "abcd ") {
		t.Error("trailing whitespace must not verify")
	}
}

func TestHashSecretDeterministic(t *testing.T) {
	if HashSecret("secret") != HashSecret("secret") {
		t.Error("hash must be deterministic")
	}
	if HashSecret("a") == HashSecret("b") {
		t.Error("different secrets must hash differently")
	}
	if len(HashSecret("x")) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(HashSecret("x")))
	}
}
