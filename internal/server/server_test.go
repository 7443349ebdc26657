package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickvotes/backend/internal/database"
	"github.com/quickvotes/backend/internal/migrations"
)

func newTestServer(t *testing.T) (*chi.Mux, Store) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	tokens := NewTokenService("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broker := NewBroker(nil, logger)

	r := chi.NewRouter()
	addRoutes(r, logger, store, tokens, broker, db, nil, "")
	return r, store
}

// signup registers a user and returns the session token and user ID.
func signup(t *testing.T, r *chi.Mux, email, username string) (string, string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/auth/signup", "", SignupRequest{
		Email:    email,
		Password: "password123",
		Username: username,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp AuthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp.Token, resp.Profile.UserID
}

func doJSON(t *testing.T, r *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// createActivity creates a public activity of the given type and returns
// it. Public so that participants can join without the access code.
func createActivity(t *testing.T, r *chi.Mux, token, activityType string) ActivityResponse {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/activities", token, ActivityRequest{
		Title:        "Test " + activityType,
		ActivityType: activityType,
		IsPublic:     true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create activity: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp ActivityResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

// saveItems stores content for the activity and fails the test on error.
func saveItems(t *testing.T, r *chi.Mux, token, activityID, content string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPut, "/api/activities/"+activityID+"/items", token, ItemsRequest{
		Content: json.RawMessage(content),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save items: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

// joinActivity registers the token's user as a participant.
func joinActivity(t *testing.T, r *chi.Mux, token, activityID string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+activityID+"/join", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("join activity: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

// startActivity moves the activity to started.
func startActivity(t *testing.T, r *chi.Mux, token, activityID string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+activityID+"/start", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start activity: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var checks HealthResponse
	json.NewDecoder(w.Body).Decode(&checks)
	if checks["sqlite"].Status != "ok" {
		t.Errorf("expected sqlite ok, got %+v", checks)
	}
}

func TestAuthFlow(t *testing.T) {
	r, _ := newTestServer(t)

	token, userID := signup(t, r, "ana@example.com", "ana")
	if token == "" || userID == "" {
		t.Fatal("expected token and user id from signup")
	}

	// Duplicate email is rejected.
	w := doJSON(t, r, http.MethodPost, "/api/auth/signup", "", SignupRequest{
		Email: "ana@example.com", Password: "password123", Username: "ana2",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", w.Code)
	}

	// Login with the right password.
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "ana@example.com", Password: "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 login, got %d: %s", w.Code, w.Body.String())
	}

	// Wrong password.
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "ana@example.com", Password: "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}

	// Me returns the profile.
	w = doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 me, got %d", w.Code)
	}

	// No token.
	w = doJSON(t, r, http.MethodGet, "/api/auth/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	r, _ := newTestServer(t)
	token, _ := signup(t, r, "ana@example.com", "ana")

	w := doJSON(t, r, http.MethodPut, "/api/profile", token, ProfileRequest{
		Username:    "ana",
		DisplayName: "Ana María",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	var profile struct {
		DisplayName string `json:"displayName"`
	}
	json.NewDecoder(w.Body).Decode(&profile)
	if profile.DisplayName != "Ana María" {
		t.Errorf("expected display name to stick, got %q", profile.DisplayName)
	}
}

func TestTokenServiceRejectsTampering(t *testing.T) {
	tokens := NewTokenService("secret-a", time.Hour)

	token, err := tokens.Issue("u1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ana@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	other := NewTokenService("secret-b", time.Hour)
	if _, err := other.Parse(token); err == nil {
		t.Error("expected parse to fail with the wrong secret")
	}

	if _, err := tokens.Parse("not-a-token"); err == nil {
		t.Error("expected parse to fail for garbage input")
	}
}
