package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minimart/apiserver/config"
	"github.com/minimart/apiserver/internal/services"
	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepository struct {
	byEmail map[string]types.User
}

func newFakeUserRepository(users ...types.User) *fakeUserRepository {
	repo := &fakeUserRepository{byEmail: make(map[string]types.User)}
	for _, u := range users {
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (f *fakeUserRepository) GetByID(_ context.Context, id int) (types.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	if _, ok := f.byEmail[user.Email]; ok {
		return types.User{}, store.ErrDuplicateEmail
	}
	user.ID = len(f.byEmail) + 1
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepository) UpdatePassword(_ context.Context, email, passwordHash string) error {
	user, ok := f.byEmail[email]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.byEmail[email] = user
	return nil
}

type fakeResetTokenRepository struct {
	tokens map[string]types.ResetToken
}

func (f *fakeResetTokenRepository) Create(_ context.Context, token types.ResetToken) (types.ResetToken, error) {
	token.ID = len(f.tokens) + 1
	f.tokens[token.Token] = token
	return token, nil
}

func (f *fakeResetTokenRepository) GetByToken(_ context.Context, token string) (types.ResetToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return types.ResetToken{}, store.ErrNotFound
	}
	return rt, nil
}

func (f *fakeResetTokenRepository) MarkUsed(_ context.Context, token string) error {
	rt, ok := f.tokens[token]
	if !ok {
		return store.ErrNotFound
	}
	rt.Used = true
	f.tokens[token] = rt
	return nil
}

func newTestAuthHandler(users *fakeUserRepository) *AuthHandler {
	log := logrus.New()
	tokens := &fakeResetTokenRepository{tokens: make(map[string]types.ResetToken)}
	userService := services.NewUserService(users, tokens, 15*time.Minute)
	mailer := services.NewMailer(config.SMTPConfig{}, 15, log)
	return NewAuthHandler(userService, mailer, "test-secret", config.AuthConfig{
		AccessTokenTTLMinutes: 30,
		RefreshTokenTTLDays:   7,
		ResetTokenTTLMinutes:  15,
	})
}

func newAuthRouter(handler *AuthHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, handler)
	})
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSignupInvalidRole(t *testing.T) {
	router := newAuthRouter(newTestAuthHandler(newFakeUserRepository()))

	rec := postJSON(t, router, "/auth/signup", map[string]string{
		"name":     "Sam",
		"email":    "sam@example.com",
		"password": "secretpw",
		"role":     "manager",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	users := newFakeUserRepository(types.User{ID: 1, Email: "sam@example.com", Role: types.RoleUser})
	router := newAuthRouter(newTestAuthHandler(users))

	rec := postJSON(t, router, "/auth/signup", map[string]string{
		"name":     "Sam",
		"email":    "sam@example.com",
		"password": "secretpw",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var parsed ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if parsed.Detail != "Email already registered" {
		t.Fatalf("unexpected detail: %q", parsed.Detail)
	}
}

func TestSignupAndSignin(t *testing.T) {
	users := newFakeUserRepository()
	router := newAuthRouter(newTestAuthHandler(users))

	rec := postJSON(t, router, "/auth/signup", map[string]string{
		"name":     "Sam",
		"email":    "sam@example.com",
		"password": "secretpw",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", rec.Code, rec.Body.String())
	}

	var created SignupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if created.UserID == 0 {
		t.Fatalf("expected user id to be set")
	}

	rec = postJSON(t, router, "/auth/signin", map[string]string{
		"email":    "sam@example.com",
		"password": "secretpw",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status %d: %s", rec.Code, rec.Body.String())
	}

	var tokens TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens to be set")
	}
	if tokens.TokenType != "bearer" {
		t.Fatalf("unexpected token type: %q", tokens.TokenType)
	}
}

func TestSigninWrongPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("rightpw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := newFakeUserRepository(types.User{
		ID:           1,
		Email:        "sam@example.com",
		Role:         types.RoleUser,
		PasswordHash: string(hashed),
	})
	router := newAuthRouter(newTestAuthHandler(users))

	rec := postJSON(t, router, "/auth/signin", map[string]string{
		"email":    "sam@example.com",
		"password": "wrongpw",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestForgotPasswordAlwaysGeneric(t *testing.T) {
	router := newAuthRouter(newTestAuthHandler(newFakeUserRepository()))

	rec := postJSON(t, router, "/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown email, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	users := newFakeUserRepository()
	handler := newTestAuthHandler(users)
	router := newAuthRouter(handler)
	router.With(handler.RequireAuth).Get("/private", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
	})

	rec := postJSON(t, router, "/auth/signup", map[string]string{
		"name":     "Sam",
		"email":    "sam@example.com",
		"password": "secretpw",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d", rec.Code)
	}
	rec = postJSON(t, router, "/auth/signin", map[string]string{
		"email":    "sam@example.com",
		"password": "secretpw",
	})
	var tokens TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("expected access token accepted, got %d: %s", got.Code, got.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
	got = httptest.NewRecorder()
	router.ServeHTTP(got, req)
	if got.Code != http.StatusUnauthorized {
		t.Fatalf("expected refresh token rejected, got %d", got.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	got = httptest.NewRecorder()
	router.ServeHTTP(got, req)
	if got.Code != http.StatusUnauthorized {
		t.Fatalf("expected missing token rejected, got %d", got.Code)
	}
}
