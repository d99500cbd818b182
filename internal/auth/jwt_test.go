package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()
	tenantID := uuid.New()

	token, err := svc.Generate(userID, tenantID, "user@acme.test", "member")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.TenantID != tenantID {
		t.Errorf("tenant id = %s, want %s", claims.TenantID, tenantID)
	}
	if claims.Email != "user@acme.test" || claims.Role != "member" {
		t.Errorf("claims = %s/%s, want user@acme.test/member", claims.Email, claims.Role)
	}
	if claims.ID == "" {
		t.Error("jti must be set for revocation")
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(uuid.New(), uuid.New(), "a@b.test", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	svc := NewJWTService("test-secret", -1) // issued already expired
	token, err := svc.Generate(uuid.New(), uuid.New(), "a@b.test", "member")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestJWTGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Validate(tok); err != ErrInvalidToken {
			t.Fatalf("Validate(%q) = %v, want ErrInvalidToken", tok, err)
		}
	}
}
