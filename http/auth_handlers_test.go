package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrimet-io/telemetry-api/db"
)

func userStore(t *testing.T, username, password string) *stubStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return &stubStore{
		getUserFn: func(_ context.Context, name string) (*db.User, error) {
			if name != username {
				return nil, nil
			}
			return &db.User{ID: 1, Username: username, PasswordHash: string(hash)}, nil
		},
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(userStore(t, "admin", "hunter2"))

	w, env := doRequest(t, srv, http.MethodPost, "/auth/login",
		`{"username": "admin", "password": "hunter2"}`, false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}

	token, err := jwt.Parse(data.Token, func(*jwt.Token) (any, error) {
		return []byte(testConfig().JWTSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if sub, _ := token.Claims.GetSubject(); sub != "admin" {
		t.Errorf("subject = %q, want admin", sub)
	}
}

func TestLogin_Rejections(t *testing.T) {
	srv := newTestServer(userStore(t, "admin", "hunter2"))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"username": "admin", "password": "nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username": "ghost", "password": "hunter2"}`, http.StatusUnauthorized},
		{"missing fields", `{"username": "admin"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doRequest(t, srv, http.MethodPost, "/auth/login", tt.body, false)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if env.Result {
				t.Error("result = true, want false")
			}
		})
	}
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testConfig().JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doAuthed(t *testing.T, srv *Server, method, target, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return w, env
}

func TestKeyManagement_RequiresToken(t *testing.T) {
	srv := newTestServer(&stubStore{})

	w, _ := doRequest(t, srv, http.MethodGet, "/auth/keys", "", false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/keys", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestCreateKey_SecretReturnedOnce(t *testing.T) {
	store := &stubStore{
		createKeyFn: func(_ context.Context, label string) (*db.APIKey, string, error) {
			return &db.APIKey{ID: "id-1", Label: label, CreatedAt: time.Now()}, "ak_fresh", nil
		},
	}
	srv := newTestServer(store)

	w, env := doAuthed(t, srv, http.MethodPost, "/auth/keys", `{"label": "greenhouse"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var data struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Key != "ak_fresh" || data.Label != "greenhouse" {
		t.Errorf("data = %+v", data)
	}
}

func TestCreateKey_LabelRequired(t *testing.T) {
	srv := newTestServer(&stubStore{})

	w, _ := doAuthed(t, srv, http.MethodPost, "/auth/keys", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListKeys(t *testing.T) {
	store := &stubStore{
		listKeysFn: func(context.Context) ([]db.APIKey, error) {
			return []db.APIKey{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	srv := newTestServer(store)

	w, env := doAuthed(t, srv, http.MethodGet, "/auth/keys", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.Count == nil || *env.Count != 2 {
		t.Errorf("count = %v, want 2", env.Count)
	}
}

func TestRevokeKey_NotFound(t *testing.T) {
	srv := newTestServer(&stubStore{})

	w, _ := doAuthed(t, srv, http.MethodDelete, "/auth/keys/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
