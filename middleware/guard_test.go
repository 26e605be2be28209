package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newGuardEngine(t *testing.T) (*goAccount.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := goAccount.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := goAccount.New().WithConfig(cfg).WithStore(redisstore.New(rdb, "")).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func loginToken(t *testing.T, engine *goAccount.Engine) (*goAccount.Account, string) {
	t.Helper()

	ctx := context.Background()
	if _, err := engine.CreateAccount(ctx, goAccount.CreateAccountRequest{
		Name: "Ann", Email: "ann@x.com", Password: "s3cret!",
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	acct, token, err := engine.Login(ctx, "ann@x.com", "s3cret!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return acct, token
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuardStoresAuthResult(t *testing.T) {
	engine, _ := newGuardEngine(t)
	acct, token := loginToken(t, engine)

	var got *goAccount.AuthResult
	h := Guard(engine, goAccount.ModeInherit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AuthResultFromContext(r.Context())
	}))

	rec := serve(h, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || got.AccountID != acct.ID || got.Account == nil {
		t.Fatalf("unexpected auth result %+v", got)
	}
}

func TestGuardRejectsMissingAndBadTokens(t *testing.T) {
	engine, _ := newGuardEngine(t)
	h := RequireStrict(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, token := range []string{"", "garbage"} {
		rec := serve(h, token)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Fatal("expected WWW-Authenticate header")
		}
	}
}

func TestGuardModesAfterRevoke(t *testing.T) {
	engine, _ := newGuardEngine(t)
	acct, token := loginToken(t, engine)
	if err := engine.RevokeToken(context.Background(), acct, token); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	if rec := serve(RequireStrict(engine)(ok), token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("strict: expected 401, got %d", rec.Code)
	}
	if rec := serve(RequireJWTOnly(engine)(ok), token); rec.Code != http.StatusOK {
		t.Fatalf("jwt-only: expected 200, got %d", rec.Code)
	}
}

func TestGuardStoreFailureIsUnavailable(t *testing.T) {
	engine, mr := newGuardEngine(t)
	_, token := loginToken(t, engine)
	mr.Close()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if rec := serve(RequireStrict(engine)(ok), token); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := BearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("BearerToken(%q) = %q, %v", tc.in, got, ok)
		}
	}
}

func TestClientIPAttachesHost(t *testing.T) {
	var ctx context.Context
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if ctx == nil {
		t.Fatal("expected handler to run")
	}
	// the IP is only observable through the Engine; make sure the context changed
	if ctx == req.Context() {
		t.Fatal("expected a derived context")
	}
}
