package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mailauth-io/mailauth"
	"github.com/mailauth-io/mailauth/directory/memdir"
)

func newGuardFixture(t *testing.T) (*mailauth.Engine, *memdir.Directory) {
	t.Helper()

	cfg := mailauth.DefaultConfig()
	cfg.API.BaseURL = "https://auth.example.com"
	cfg.JWT.Secret = []byte("guard-test-secret")

	dir := memdir.New()
	engine, err := mailauth.New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithNotifier(func(context.Context, mailauth.Notification) error { return nil }).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, dir
}

func sessionTokenFor(t *testing.T, engine *mailauth.Engine, userID, email string) string {
	t.Helper()
	creds, err := engine.CreateAuthenticationTokenAndLoginCode(context.Background(), userID, email, engine.SessionTTL())
	if err != nil {
		t.Fatalf("CreateAuthenticationTokenAndLoginCode error: %v", err)
	}
	return creds.Token
}

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Error("user ID missing from request context")
		}
		_, _ = w.Write([]byte(id))
	})
}

func TestRequireTokenAdmitsValidBearer(t *testing.T) {
	engine, dir := newGuardFixture(t)
	user, err := dir.Create(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	token := sessionTokenFor(t, engine, user.ID, user.Email)

	handler := RequireToken(engine)(protectedEcho(t))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != user.ID {
		t.Fatalf("want user ID %q in context, got %q", user.ID, got)
	}
}

func TestRequireTokenRejectsBadHeaders(t *testing.T) {
	engine, _ := newGuardFixture(t)
	handler := RequireToken(engine)(protectedEcho(t))

	for _, header := range []string{"", "Bearer ", "Bearer not-a-jwt", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: want 401, got %d", header, w.Code)
		}
	}
}

func TestRequireUserRejectsUnknownUser(t *testing.T) {
	engine, dir := newGuardFixture(t)
	user, err := dir.Create(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	token := sessionTokenFor(t, engine, user.ID, user.Email)

	// Token minted against a different directory: cryptographically valid
	// here, but its user is unknown to this engine's directory.
	other, otherDir := newGuardFixture(t)
	if _, err := otherDir.Create(context.Background(), "filler@example.com"); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	ghost, err := otherDir.Create(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	orphan := sessionTokenFor(t, other, ghost.ID, ghost.Email)

	handler := RequireUser(engine)(protectedEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("known user: want 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+orphan)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: want 401, got %d", w.Code)
	}
}
