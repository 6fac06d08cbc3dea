package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "discord-bot")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Caller != "discord-bot" {
		t.Errorf("caller = %q, want discord-bot", claims.Caller)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "discord-bot")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateToken("other", token); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not.a.token"); err == nil {
		t.Error("expected validation failure for garbage input")
	}
}
