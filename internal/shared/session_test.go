package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wayfarer-app/wayfarer/internal/shared"
	_ "github.com/wayfarer-app/wayfarer/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTripViaCookie(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("u1")

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var cookie *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == sm.CookieName() {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("commit must set the session cookie")
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.User() != "u1" {
		t.Fatalf("expected user u1, got %q", loaded.User())
	}
}

func TestSessionRoundTripViaBearerToken(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("u1")
	if err := sm.Commit(ctx, httptest.NewRecorder(), sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.Header.Set("Authorization", "Bearer "+sess.ID)
	loaded, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.User() != "u1" {
		t.Fatalf("expected user u1, got %q", loaded.User())
	}
}

func TestSessionUnknownTokenIsAnonymous(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer does-not-exist")
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.User() != "" {
		t.Fatalf("unknown token must yield an anonymous session, got %q", sess.User())
	}
}

func TestSessionDestroy(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("u1")
	if err := sm.Commit(ctx, httptest.NewRecorder(), sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sm.Destroy(sess)
	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("destroy commit: %v", err)
	}

	var cleared bool
	for _, c := range res.Result().Cookies() {
		if c.Name == sm.CookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("destroy must clear the session cookie")
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.Header.Set("Authorization", "Bearer "+sess.ID)
	loaded, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.User() != "" {
		t.Fatalf("destroyed session must not resolve a user, got %q", loaded.User())
	}
}

func TestActorIDWithoutSession(t *testing.T) {
	if got := shared.ActorID(context.Background()); got != "" {
		t.Fatalf("expected empty actor id, got %q", got)
	}
}
