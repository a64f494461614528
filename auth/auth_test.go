package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(t *testing.T, s *Sessions, uid uint) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	s.Create(w, uid)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions("secret", nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(sessionCookie(t, s, 42))

	uid, ok := s.Parse(r)
	require.True(t, ok)
	assert.Equal(t, uint(42), uid)
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	issuer := NewSessions("secret-a", nil)
	verifier := NewSessions("secret-b", nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(sessionCookie(t, issuer, 7))

	_, ok := verifier.Parse(r)
	assert.False(t, ok)
}

func TestSessionRejectsTamperedValue(t *testing.T) {
	s := NewSessions("secret", nil)
	c := sessionCookie(t, s, 7)
	c.Value = "8" + c.Value[1:]
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)

	_, ok := s.Parse(r)
	assert.False(t, ok)
}

func TestRequireAuth(t *testing.T) {
	known := map[uint]bool{1: true}
	s := NewSessions("secret", func(_ context.Context, uid uint) bool { return known[uid] })
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := s.Middleware(s.RequireAuth(ok))

	tests := []struct {
		name string
		uid  uint
		want int
	}{
		{"no session", 0, http.StatusUnauthorized},
		{"known user", 1, http.StatusTeapot},
		{"deleted user", 2, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
			if tt.uid != 0 {
				r.AddCookie(sessionCookie(t, s, tt.uid))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
