package auth

import (
	"context"
	"testing"
	"time"

	"foodDeliveryMarketplace/internal/testutil"
	"foodDeliveryMarketplace/models"
)

const testSecret = "test-secret"

func TestParseFromMD_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "alice", "user")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	p, err := ParseFromMD(ctx, testSecret)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if p.UserID != "alice" || p.Role != models.RoleUser {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	_, err := ParseFromMD(context.Background(), testSecret)
	if err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "bob", "deliveryBoy")
	if _, err := ParseToken(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseToken_ClaimsValidation(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "", "")
	if _, err := ParseToken(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error")
	}
	tok = testutil.GenerateJWTHS256(t, testSecret, "carol", "system")
	if _, err := ParseToken(tok, testSecret); err == nil {
		t.Fatalf("system role must not be accepted from a token")
	}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(testSecret, Principal{UserID: "u1", Role: models.RoleOwner}, time.Hour, now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	p, err := ParseToken(tok, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if p.UserID != "u1" || p.Role != models.RoleOwner {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestIssueToken_Expired(t *testing.T) {
	tok, err := IssueToken(testSecret, Principal{UserID: "u1", Role: models.RoleUser}, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken(tok, testSecret); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestSystemPrincipal(t *testing.T) {
	if !System().IsSystem() {
		t.Fatalf("System() should report IsSystem")
	}
	var nilP *Principal
	if nilP.IsSystem() || nilP.IsSuperAdmin() {
		t.Fatalf("nil principal must not carry privileges")
	}
}
