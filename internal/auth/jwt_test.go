package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Operator != "ops" {
		t.Errorf("operator = %q, want ops", claims.Operator)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := manager.ValidateToken(token); err != ErrTokenExpired {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Hour)
	verifier := NewJWTManager("secret-b", time.Hour)

	token, _ := issuer.GenerateToken("ops")
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}
