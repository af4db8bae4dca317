package security

import (
	"encoding/hex"
	"testing"
)

func TestNewResetTokenEntropyAndFormat(t *testing.T) {
	tok, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}

	raw, err := hex.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not hex: %v", err)
	}

	if len(raw) != resetTokenBytes {
		t.Fatalf("token has %d bytes, want %d", len(raw), resetTokenBytes)
	}

	other, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if tok == other {
		t.Fatal("two tokens should not collide")
	}
}

func TestDigestResetTokenDeterministic(t *testing.T) {
	if DigestResetToken("abc") != DigestResetToken("abc") {
		t.Fatal("digest must be deterministic")
	}
	if DigestResetToken("abc") == DigestResetToken("abd") {
		t.Fatal("different tokens must not share a digest")
	}
	if len(DigestResetToken("abc")) != 64 {
		t.Fatal("digest should be hex sha256")
	}
}
