package auth

import (
	"testing"
	"time"

	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewTokenIssuer("secret-b", time.Hour).Verify(token); !svcerr.Is(err, svcerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong secret, got %v", err)
	}
	if _, err := NewTokenIssuer("secret-a", time.Hour).Verify(token + "x"); !svcerr.Is(err, svcerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for tampered token, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.ttl = -time.Minute

	token, err := issuer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); !svcerr.Is(err, svcerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}
