package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 15*time.Minute)

	token, err := m.GenerateAccessToken(42, "admin")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "admin" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Minute).GenerateAccessToken(1, "u")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Minute).ValidateAccessToken(token); err == nil {
		t.Fatal("expected validation to fail with wrong secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)

	token, err := m.GenerateAccessToken(1, "u")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hash, err := hasher.Hash("hunter22")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	if err := hasher.Verify("hunter22", hash); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := hasher.Verify("wrong", hash); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestPasswordHasherClampsInvalidCost(t *testing.T) {
	// Out-of-range configured costs must still yield a working hasher.
	hasher := NewPasswordHasher(99)

	hash, err := hasher.Hash("hunter22")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := hasher.Verify("hunter22", hash); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
}
