package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/avelez/duet/internal/auth"
)

func TestAuth(t *testing.T) {
	tokens := auth.NewTokens("test-secret")

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) != 123 {
			t.Errorf("Expected userID 123 in context, got %v", UserID(r.Context()))
		}
		w.WriteHeader(http.StatusOK)
	})

	validToken, _ := tokens.Generate(123)
	foreignToken, _ := auth.NewTokens("other-secret").Generate(123)

	tests := []struct {
		name           string
		cookieValue    string
		expectedStatus int
	}{
		{
			name:           "Valid Cookie",
			cookieValue:    validToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Foreign Signature",
			cookieValue:    foreignToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage Value",
			cookieValue:    "not-a-token",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tt.cookieValue})
			rr := httptest.NewRecorder()

			Auth(tokens)(nextHandler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					rr.Code, tt.expectedStatus)
			}
		})
	}

	t.Run("Missing Cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()

		Auth(tokens)(nextHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("handler returned wrong status code: got %v want %v",
				rr.Code, http.StatusUnauthorized)
		}
	})
}

func TestUserIDWithoutAuth(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if UserID(req.Context()) != 0 {
		t.Error("Expected zero user id without auth middleware")
	}
}

func TestLogging(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	Logging(zerolog.Nop())(nextHandler).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v",
			rr.Code, http.StatusNotFound)
	}
}
