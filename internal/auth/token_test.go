package auth

import (
	"testing"

	"pgregory.net/rapid"
)

func TestGenerateTokenLength(t *testing.T) {
	token, err := GenerateToken(TokenBytes)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if len(token) != TokenBytes*2 {
		t.Errorf("Expected %d hex characters, got %d", TokenBytes*2, len(token))
	}
}

func TestGenerateTokenProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "n")

		token, err := GenerateToken(n)
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}

		if len(token) != n*2 {
			t.Fatalf("expected %d characters for %d bytes, got %d", n*2, n, len(token))
		}
		for _, c := range token {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
				t.Fatalf("unexpected character %q in token", c)
			}
		}
	})
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken(TokenBytes)
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if seen[token] {
			t.Fatalf("Duplicate token generated after %d draws", i)
		}
		seen[token] = true
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2!")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if err := VerifyPassword("hunter2!", hash); err != nil {
		t.Errorf("Expected matching password to verify, got %v", err)
	}
	if err := VerifyPassword("hunter3!", hash); err == nil {
		t.Error("Expected mismatched password to fail verification")
	}
}
