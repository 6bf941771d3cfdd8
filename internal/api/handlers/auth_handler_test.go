package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	db "github.com/nabilhamdi/waraqa/internal/core/database"
)

const testSecret = "test-secret"

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestSignupAndLogin(t *testing.T) {
	store := db.NewMemoryStore()
	h := NewAuthHandler(store, testSecret)

	rec := postJSON(t, h.Signup, "/auth/signup", `{"first_name":"Nabil","email":"nabil@example.com","password":"s3cret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	assertValidToken(t, resp["token"])

	// duplicate email
	rec = postJSON(t, h.Signup, "/auth/signup", `{"email":"nabil@example.com","password":"other"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}

	// login with the right password
	rec = postJSON(t, h.Login, "/auth/login", `{"email":"nabil@example.com","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	assertValidToken(t, resp["token"])

	// email matching is case-insensitive
	rec = postJSON(t, h.Login, "/auth/login", `{"email":"NABIL@example.com","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("mixed-case login status = %d, want 200", rec.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	store := db.NewMemoryStore()
	h := NewAuthHandler(store, testSecret)

	postJSON(t, h.Signup, "/auth/signup", `{"email":"a@example.com","password":"right"}`)

	rec := postJSON(t, h.Login, "/auth/login", `{"email":"a@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
	rec = postJSON(t, h.Login, "/auth/login", `{"email":"nobody@example.com","password":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email status = %d, want 401", rec.Code)
	}
}

func TestSignup_Validation(t *testing.T) {
	h := NewAuthHandler(db.NewMemoryStore(), testSecret)

	for _, body := range []string{`{}`, `{"email":"x@example.com"}`, `{"password":"p"}`, `not json`} {
		rec := postJSON(t, h.Signup, "/auth/signup", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("signup %q status = %d, want 400", body, rec.Code)
		}
	}
}

func assertValidToken(t *testing.T, raw string) {
	t.Helper()
	if raw == "" {
		t.Fatal("empty token")
	}
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if _, ok := claims["user_id"].(string); !ok {
		t.Errorf("token missing user_id claim: %v", claims)
	}
}
