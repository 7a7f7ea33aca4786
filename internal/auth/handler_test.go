package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/wayfarer-app/wayfarer/internal/auth"
	"github.com/wayfarer-app/wayfarer/internal/shared"
	_ "github.com/wayfarer-app/wayfarer/testing"
)

type stubRepo struct {
	user    *auth.User
	created []auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrInvalidCredentials
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateUser(ctx context.Context, name, email, passwordHash string) (*auth.User, error) {
	user := auth.User{ID: "u-new", Name: name, Email: email, PasswordHash: passwordHash}
	s.created = append(s.created, user)
	return &user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

type recordingMembership struct {
	users []string
	orgs  []string
}

func (r *recordingMembership) UserRegistered(ctx context.Context, userID, orgID string) error {
	r.users = append(r.users, userID)
	r.orgs = append(r.orgs, orgID)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository, syncer auth.MembershipSyncer) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo, syncer, "default"), sessionManager)
	return handler, sessionManager
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx), sess
}

func serveAuth(handler *auth.Handler, res http.ResponseWriter, req *http.Request) {
	r := chi.NewRouter()
	handler.MountRoutes(r)
	r.ServeHTTP(res, req)
}

func TestLoginReturnsTokenAndUser(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{ID: "u1", Name: "Ava", Email: "ava@example.com", PasswordHash: string(hashed)}}
	handler, sessionManager := newAuthHandler(t, repo, &recordingMembership{})

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"ava@example.com","password":"correct horse"}`))
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sessionManager, req)

	res := httptest.NewRecorder()
	serveAuth(handler, res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Token == "" || body.Token != sess.ID {
		t.Fatalf("expected session token %q, got %q", sess.ID, body.Token)
	}
	if body.User.ID != "u1" {
		t.Fatalf("expected user u1, got %q", body.User.ID)
	}
	if sess.User() != "u1" {
		t.Fatalf("session should be bound to the user, got %q", sess.User())
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{ID: "u1", Email: "ava@example.com", PasswordHash: string(hashed)}}
	handler, sessionManager := newAuthHandler(t, repo, &recordingMembership{})

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"ava@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sessionManager, req)

	res := httptest.NewRecorder()
	serveAuth(handler, res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRegisterRecordsMembership(t *testing.T) {
	repo := &stubRepo{}
	membership := &recordingMembership{}
	handler, sessionManager := newAuthHandler(t, repo, membership)

	req := httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"name":"Ben","email":"ben@example.com","password":"longenough"}`))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sessionManager, req)

	res := httptest.NewRecorder()
	serveAuth(handler, res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 user created, got %d", len(repo.created))
	}
	if repo.created[0].PasswordHash == "longenough" {
		t.Fatal("password must be stored hashed")
	}
	if len(membership.users) != 1 || membership.users[0] != "u-new" {
		t.Fatalf("membership fact not recorded: %+v", membership.users)
	}
	if membership.orgs[0] != "default" {
		t.Fatalf("expected default org, got %q", membership.orgs[0])
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, &recordingMembership{})

	req := httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"name":"Ben","email":"not-an-email","password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sessionManager, req)

	res := httptest.NewRecorder()
	serveAuth(handler, res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestMeRequiresSession(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, &recordingMembership{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req, _ = withSession(t, sessionManager, req)

	res := httptest.NewRecorder()
	serveAuth(handler, res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous session, got %d", res.Code)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: "u1", Name: "Ava", Email: "ava@example.com"}}
	handler, sessionManager := newAuthHandler(t, repo, &recordingMembership{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req, sess := withSession(t, sessionManager, req)
	sess.SetUser("u1")

	res := httptest.NewRecorder()
	serveAuth(handler, res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), "ava@example.com") {
		t.Fatalf("expected profile in body, got %s", res.Body.String())
	}
}
