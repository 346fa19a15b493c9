package httpapi

import (
	"context"
	"testing"
	"time"

	"kitani/backend/internal/domain"
	"kitani/backend/internal/store/memory"
)

func TestAuthManagerLoginAndParse(t *testing.T) {
	auth := NewAuthManager("test-secret-key-of-decent-length", time.Hour, memory.New())

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "owner", Password: "owner123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Role != domain.RoleOwner {
		t.Fatalf("role = %s, want owner", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if actor.Username != "owner" || actor.Role != domain.RoleOwner {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestAuthManagerRejectsBadCredentials(t *testing.T) {
	auth := NewAuthManager("test-secret-key-of-decent-length", time.Hour, memory.New())

	cases := []domain.LoginRequest{
		{Username: "owner", Password: "nope"},
		{Username: "ghost", Password: "owner123"},
		{Username: "", Password: ""},
	}
	for _, req := range cases {
		if _, err := auth.Login(context.Background(), req); err == nil {
			t.Fatalf("expected login failure for %q", req.Username)
		}
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewAuthManager("secret-one-that-signs-the-token!", time.Hour, memory.New())
	verifier := NewAuthManager("secret-two-that-does-not-match!!", time.Hour, memory.New())

	resp, err := issuer.Login(context.Background(), domain.LoginRequest{Username: "staff", Password: "staff123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected foreign token to be rejected")
	}
	if _, err := verifier.ParseToken("not-a-jwt"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	auth := NewAuthManager("test-secret-key-of-decent-length", time.Hour, memory.New())

	token, err := auth.sign("owner", domain.RoleOwner, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestLoginUpgradesLegacyPlainTextPassword(t *testing.T) {
	repo := memory.New()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username:  "legacy",
		Password:  "plain-text-pass",
		Role:      domain.RoleStaff,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	auth := NewAuthManager("test-secret-key-of-decent-length", time.Hour, repo)
	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "legacy", Password: "plain-text-pass"}); err != nil {
		t.Fatalf("legacy login: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	for _, user := range users {
		if user.Username == "legacy" && !isPasswordHash(user.Password) {
			t.Fatalf("legacy password was not upgraded to a hash")
		}
	}
}
