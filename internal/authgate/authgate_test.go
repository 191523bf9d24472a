package authgate

import (
	"testing"
	"time"
)

func TestIssueAndAuthenticateRoundTrip(t *testing.T) {
	g := New("test-secret")

	token, err := g.IssueToken("viewer-1", "", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := g.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if claims.Subject != "viewer-1" {
		t.Fatalf("subject = %q, want viewer-1", claims.Subject)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	g := New("test-secret")

	token, err := g.IssueToken("viewer-1", "", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := g.Authenticate(token); err != ErrTokenExpired {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestAuthenticateRejectsMalformedToken(t *testing.T) {
	g := New("test-secret")

	if _, err := g.Authenticate("not-a-jwt"); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestCanRegisterScoping(t *testing.T) {
	unrestricted := &Claims{Subject: "admin"}
	if !(&Gate{}).CanRegister(unrestricted, "popularity") {
		t.Fatal("empty scope should permit any event kind")
	}

	scoped := &Claims{Subject: "viewer", Scope: "popularity"}
	g := &Gate{}
	if !g.CanRegister(scoped, "popularity") {
		t.Fatal("matching scope should be permitted")
	}
	if g.CanRegister(scoped, "raw_data") {
		t.Fatal("mismatched scope should be rejected")
	}
	if g.CanRegister(nil, "popularity") {
		t.Fatal("nil claims should never be permitted")
	}
}
