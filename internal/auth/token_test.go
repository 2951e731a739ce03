package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken(secret, "0xabc", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Address != "0xabc" {
		t.Errorf("Expected address 0xabc, got %s", claims.Address)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken([]byte("secret-a"), "0xabc", time.Hour)
	if _, err := ValidateToken([]byte("secret-b"), token); err == nil {
		t.Fatal("Expected validation to fail with the wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, _ := GenerateToken(secret, "0xabc", -time.Minute)
	if _, err := ValidateToken(secret, token); err == nil {
		t.Fatal("Expected validation to fail for an expired token")
	}
}
