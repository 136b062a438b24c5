package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kompihq/kompi-engine/pkg/config"
	"github.com/kompihq/kompi-engine/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: "error", JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testservlet"}
	mw := NewMiddleware(cfg)

	valid := signTestToken(t, cfg.JWTSecret, "ws-42", 5*time.Minute)
	expired := signTestToken(t, cfg.JWTSecret, "ws-42", -5*time.Minute)
	noWorkspace := signTestToken(t, cfg.JWTSecret, "", 5*time.Minute)
	wrongKey := signTestToken(t, "other-secret", "ws-42", 5*time.Minute)

	tests := []struct {
		name           string
		header         string
		cookieValue    string
		expectedStatus int
		expectedWS     string
	}{
		{
			name:           "no credentials",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "garbage bearer token",
			header:         "Bearer invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			header:         "Bearer " + expired,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong signing key",
			header:         "Bearer " + wrongKey,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "token without workspace",
			header:         "Bearer " + noWorkspace,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "valid bearer token",
			header:         "Bearer " + valid,
			expectedStatus: http.StatusOK,
			expectedWS:     "ws-42",
		},
		{
			name:           "valid cookie",
			cookieValue:    valid,
			expectedStatus: http.StatusOK,
			expectedWS:     "ws-42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/links", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: "auth_token", Value: tt.cookieValue})
			}

			var gotWS string
			rr := httptest.NewRecorder()
			handler := mw.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotWS = WorkspaceID(r)
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}
			if tt.expectedWS != "" && gotWS != tt.expectedWS {
				t.Errorf("workspace binding: got %q want %q", gotWS, tt.expectedWS)
			}
		})
	}
}

func signTestToken(t *testing.T, secret, workspaceID string, ttl time.Duration) string {
	t.Helper()
	claims := &WorkspaceClaims{
		WorkspaceID: workspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}
