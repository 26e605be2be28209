package goAccount

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssuedTokensAreUnique(t *testing.T) {
	env := newTestEnv(t, testConfig())
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		token, err := env.engine.IssueToken(context.Background(), acct)
		if err != nil {
			t.Fatalf("IssueToken failed: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatal("expected distinct tokens")
		}
		seen[token] = struct{}{}
	}
	if len(acct.Tokens) != 5 {
		t.Fatalf("expected 5 tokens on the in-memory account, got %d", len(acct.Tokens))
	}
}

func TestIssueTokenForDeletedAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	if err := env.engine.DeleteAccount(context.Background(), acct); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	if _, err := env.engine.IssueToken(context.Background(), acct); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for _, token := range []string{"", "not.a.jwt", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := env.engine.VerifyToken(token)
		var terr *InvalidTokenError
		if !errors.As(err, &terr) {
			t.Fatalf("token %q: expected InvalidTokenError, got %v", token, err)
		}
		if !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected ErrTokenInvalid", token)
		}
	}
}

func TestVerifyTokenRejectsForeignKey(t *testing.T) {
	env := newTestEnv(t, testConfig())

	other := testConfig()
	other.JWT.PrivateKey = []byte("fedcba9876543210fedcba9876543210")
	foreign := newTestEnv(t, other)
	acct := mustCreate(t, foreign.engine, "Ann", "ann@x.com", "s3cret!")
	token, err := foreign.engine.IssueToken(context.Background(), acct)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := env.engine.VerifyToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected foreign signature rejected, got %v", err)
	}
}

func TestTokenExpiryWhenTTLConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.TokenTTL = time.Second
	env := newTestEnv(t, cfg)
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")

	token, err := env.engine.IssueToken(context.Background(), acct)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := env.engine.VerifyToken(token); err != nil {
		t.Fatalf("expected fresh token to verify, got %v", err)
	}

	time.Sleep(2100 * time.Millisecond)
	if _, err := env.engine.VerifyToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestRevokeTokenTwiceIsNoError(t *testing.T) {
	env := newTestEnv(t, testConfig())
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	token, err := env.engine.IssueToken(context.Background(), acct)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := env.engine.RevokeToken(context.Background(), acct, token); err != nil {
			t.Fatalf("revoke %d failed: %v", i+1, err)
		}
	}
	if acct.HasToken(token) {
		t.Fatal("expected token removed from in-memory account")
	}

	if err := env.engine.RevokeToken(context.Background(), acct, "never-issued"); err != nil {
		t.Fatalf("expected revoking an unknown token to succeed, got %v", err)
	}
}

func TestValidateTokenAfterRevoke(t *testing.T) {
	env := newTestEnv(t, testConfig())
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	keep, _ := env.engine.IssueToken(context.Background(), acct)
	drop, _ := env.engine.IssueToken(context.Background(), acct)

	if err := env.engine.RevokeToken(context.Background(), acct, drop); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}

	if _, err := env.engine.ValidateToken(context.Background(), drop); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked token rejected, got %v", err)
	}
	got, err := env.engine.ValidateToken(context.Background(), keep)
	if err != nil {
		t.Fatalf("expected remaining token valid, got %v", err)
	}
	if got.ID != acct.ID {
		t.Fatalf("unexpected account %q", got.ID)
	}

	// the signature alone still checks out
	if _, err := env.engine.VerifyToken(drop); err != nil {
		t.Fatalf("expected VerifyToken to ignore revocation, got %v", err)
	}
}

func TestValidateTokenAfterAccountDeleted(t *testing.T) {
	env := newTestEnv(t, testConfig())
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	token, _ := env.engine.IssueToken(context.Background(), acct)

	if err := env.engine.DeleteAccount(context.Background(), acct); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	_, err := env.engine.ValidateToken(context.Background(), token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected cause ErrAccountNotFound, got %v", err)
	}
}

func TestRevokeAllTokens(t *testing.T) {
	env := newTestEnv(t, testConfig())
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	first, _ := env.engine.IssueToken(context.Background(), acct)
	second, _ := env.engine.IssueToken(context.Background(), acct)

	if err := env.engine.RevokeAllTokens(context.Background(), acct); err != nil {
		t.Fatalf("RevokeAllTokens failed: %v", err)
	}
	for _, token := range []string{first, second} {
		if _, err := env.engine.ValidateToken(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected token rejected, got %v", err)
		}
	}
	if len(acct.Tokens) != 0 {
		t.Fatalf("expected empty in-memory token list, got %d", len(acct.Tokens))
	}
}

func TestLogoutRevokesOnlyThatToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	_, phone, _ := env.engine.Login(context.Background(), "ann@x.com", "s3cret!")
	_, laptop, _ := env.engine.Login(context.Background(), "ann@x.com", "s3cret!")

	if err := env.engine.Logout(context.Background(), phone); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.engine.ValidateToken(context.Background(), phone); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected logged-out token rejected, got %v", err)
	}
	if _, err := env.engine.ValidateToken(context.Background(), laptop); err != nil {
		t.Fatalf("expected other session to survive, got %v", err)
	}
	if err := env.engine.Logout(context.Background(), "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestValidateRouteModes(t *testing.T) {
	env := newTestEnv(t, testConfig())
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	token, _ := env.engine.IssueToken(context.Background(), acct)

	res, err := env.engine.Validate(context.Background(), token, ModeInherit)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Account == nil || res.AccountID != acct.ID || res.TokenID == "" {
		t.Fatalf("unexpected strict result %+v", res)
	}

	if err := env.engine.RevokeToken(context.Background(), acct, token); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}

	res, err = env.engine.Validate(context.Background(), token, ModeJWTOnly)
	if err != nil {
		t.Fatalf("expected jwt-only path to skip the store, got %v", err)
	}
	if res.Account != nil {
		t.Fatal("expected no account on jwt-only path")
	}
	if _, err := env.engine.Validate(context.Background(), token, ModeStrict); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected strict path to reject revoked token, got %v", err)
	}
	if _, err := env.engine.Validate(context.Background(), token, RouteMode(42)); err == nil {
		t.Fatal("expected invalid route mode error")
	}
}

func TestKeyRotationKeepsOldTokensValid(t *testing.T) {
	oldCfg := testConfig()
	oldCfg.JWT.KeyID = "k1"
	env := newTestEnv(t, oldCfg)
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")
	token, err := env.engine.IssueToken(context.Background(), acct)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	newKey := []byte("fedcba9876543210fedcba9876543210")
	newCfg := testConfig()
	newCfg.JWT.PrivateKey = newKey
	newCfg.JWT.KeyID = "k2"
	newCfg.JWT.VerifyKeys = map[string][]byte{"k1": testSecret, "k2": newKey}
	rotated, err := New().WithConfig(newCfg).WithStore(env.store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer rotated.Close()

	if _, err := rotated.ValidateToken(context.Background(), token); err != nil {
		t.Fatalf("expected token from retired key to validate, got %v", err)
	}
	fresh, err := rotated.IssueToken(context.Background(), acct)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := env.engine.VerifyToken(fresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected old engine to reject unknown kid, got %v", err)
	}
}

func TestVerifyKeysRequireSigningKid(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.VerifyKeys = map[string][]byte{"k1": testSecret}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected VerifyKeys without KeyID to be rejected")
	}

	cfg.JWT.KeyID = "k1"
	cfg.JWT.VerifyKeys = map[string][]byte{"k1": []byte("fedcba9876543210fedcba9876543210")}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected KeyID pointing at a foreign key to be rejected")
	}

	cfg.JWT.VerifyKeys = map[string][]byte{"k1": testSecret}
	env := newTestEnv(t, cfg)
	acct := mustCreate(t, env.engine, "Ann", "ann@x.com", "s3cret!")

	_, token, err := env.engine.Login(context.Background(), "ann@x.com", "s3cret!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	id, err := env.engine.VerifyToken(token)
	if err != nil {
		t.Fatalf("expected issued token to verify, got %v", err)
	}
	if id != acct.ID {
		t.Fatalf("expected %q, got %q", acct.ID, id)
	}
}
