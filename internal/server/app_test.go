package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func fixedNow() time.Time { return time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC) }

func newTestApp(t *testing.T, authRequired bool) (*App, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore(store.WithClock(fixedNow))
	sessions := auth.NewSessions("test-secret", func(ctx context.Context, uid uint) bool {
		ok, err := s.UserExists(ctx, uid)
		return err == nil && ok
	})
	return New(Deps{Store: s, Sessions: sessions, AuthRequired: authRequired, Now: fixedNow}), s
}

func serve(app http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	app.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	app, s := newTestApp(t, false)
	_, err := s.CreateClient(context.Background(), store.ClientInput{Name: "Marie", Company: "Innovatech", Email: "marie@innovatech.fr"})
	require.NoError(t, err)

	rr := serve(app, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = serve(app, http.MethodGet, "/api/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","counts":{"clients":1,"quotes":0,"followUps":0}}`, rr.Body.String())
}

type downBackend struct{ *store.MemoryStore }

func (downBackend) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthzReportsBackendFailure(t *testing.T) {
	app := New(Deps{Store: downBackend{store.NewMemoryStore()}})
	rr := serve(app, http.MethodGet, "/api/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRoutes(t *testing.T) {
	app, _ := newTestApp(t, false)

	rr := serve(app, http.MethodPost, "/api/clients", `{"name":"Marie","company":"Innovatech","email":"marie@innovatech.fr"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(app, http.MethodPost, "/api/quotes", `{"clientId":1,"reference":"INNO-2024-001","amount":"1250","sentDate":"2024-01-15"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(app, http.MethodPost, "/api/quotes/1/follow-up", `{"comment":"Appel"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	for _, path := range []string{
		"/api/clients", "/api/clients/1", "/api/clients/1/quotes",
		"/api/quotes", "/api/quotes/1", "/api/quotes/1/follow-ups",
		"/api/statistics", "/api/statistics/follow-up-conversion",
		"/api/dashboard", "/api/pending-follow-ups",
	} {
		rr = serve(app, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"), path)
	}

	rr = serve(app, http.MethodDelete, "/api/clients/1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(app, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rr.Body.String())
}

func TestAuthRequired(t *testing.T) {
	app, s := newTestApp(t, true)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = s.CreateUser(context.Background(), "admin@example.com", "Admin", string(hash))
	require.NoError(t, err)

	rr := serve(app, http.MethodGet, "/api/clients", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(app, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(app, http.MethodPost, "/api/login", `{"email":"admin@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookies := rr.Result().Cookies()

	rr = serve(app, http.MethodGet, "/api/clients", "", cookies...)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(app, http.MethodGet, "/api/me", "", cookies...)
	require.Equal(t, http.StatusOK, rr.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "admin@example.com", me["email"])
}

func TestRequestID(t *testing.T) {
	app, _ := newTestApp(t, false)

	rr := serve(app, http.MethodGet, "/api/health", "")
	_, err := uuid.Parse(rr.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, id)
	rr = httptest.NewRecorder()
	app.ServeHTTP(rr, req)
	assert.Equal(t, id, rr.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\n")
	rr = httptest.NewRecorder()
	app.ServeHTTP(rr, req)
	assert.NotEqual(t, "not a uuid\n", rr.Header().Get(RequestIDHeader))
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := logger.FromZap(zap.New(core))
	h := withRequestID(withLogging(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	serve(h, http.MethodGet, "/api/brew", "")

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/brew", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := logger.FromZap(zap.New(core))
	h := withRecover(log, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := serve(h, http.MethodGet, "/api/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, rr.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
