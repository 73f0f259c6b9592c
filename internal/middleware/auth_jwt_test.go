package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignAndVerifyJWT(t *testing.T) {
	claims := TokenClaims{
		Sub:      "user-42",
		Username: "ada",
		Exp:      time.Now().Add(time.Hour).Unix(),
		Issuer:   "shaggydog",
	}
	token, err := SignJWT("secret", claims)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	got, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if got.Sub != "user-42" || got.Username != "ada" {
		t.Fatalf("claims = %+v", got)
	}

	if _, err := VerifyJWT("other-secret", token); err == nil {
		t.Fatal("wrong secret must fail verification")
	}
}

func TestVerifyJWTRejectsExpired(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{
		Sub: "user-42",
		Exp: time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Fatal("expired token must fail verification")
	}
}

func TestAuthJWTInjectsUserContext(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{
		Sub:      "user-42",
		Username: "ada",
		Exp:      time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	var gotUserID, gotUsername string
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotUsername = UsernameFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUserID != "user-42" || gotUsername != "ada" {
		t.Fatalf("context carried %q/%q", gotUserID, gotUsername)
	}
}

func TestAuthJWTRejectsBadHeaders(t *testing.T) {
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no scheme", "token-without-scheme"},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}
