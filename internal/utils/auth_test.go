package utils

import (
	"testing"

	"github.com/xelth-com/berrycheck/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}

	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"
	user := &models.UserAuth{
		ID:    42,
		Email: "test@example.com",
		Role:  models.RoleAdmin,
	}

	accessToken, refreshToken, err := GenerateTokens(user, secret)
	if err != nil {
		t.Fatalf("Failed to generate tokens: %v", err)
	}
	if accessToken == "" || refreshToken == "" {
		t.Fatal("Tokens should not be empty")
	}

	claims, err := ValidateToken(accessToken, secret)
	if err != nil {
		t.Fatalf("Failed to validate valid token: %v", err)
	}
	if claims["email"] != user.Email {
		t.Errorf("Expected email %s, got %v", user.Email, claims["email"])
	}
	if claims["role"] != models.RoleAdmin || claims["type"] != TokenTypeAccess {
		t.Errorf("Unexpected claims %v", claims)
	}
	// JSON numbers decode as float64
	if claims["id"] != float64(42) {
		t.Errorf("Expected id 42, got %v", claims["id"])
	}

	refresh, err := ValidateToken(refreshToken, secret)
	if err != nil {
		t.Fatalf("Failed to validate refresh token: %v", err)
	}
	if refresh["type"] != TokenTypeRefresh {
		t.Errorf("Expected refresh type, got %v", refresh["type"])
	}

	if _, err := ValidateToken(accessToken, "wrong-secret"); err == nil {
		t.Error("Token should be invalid with wrong secret")
	}
	if _, err := ValidateToken("not-a-token", secret); err == nil {
		t.Error("Garbage should not validate")
	}
}
