package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tok, err := CreateAccessToken("u1", "provider", "Bo", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	claims, err := ParseValidate(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Sub != "u1" || claims.Role != "provider" || claims.Name != "Bo" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseValidateRejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("expired", func(t *testing.T) {
		tok, err := CreateAccessToken("u1", "customer", "Ada", -time.Minute)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := ParseValidate(tok); err == nil {
			t.Fatal("expected error for expired token")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := CreateAccessToken("u1", "customer", "Ada", time.Hour)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		t.Setenv("JWT_SECRET", "other-secret")
		if _, err := ParseValidate(tok); err == nil {
			t.Fatal("expected error for wrong secret")
		}
	})
}
