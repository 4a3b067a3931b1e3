package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"toyshop/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCSRFExtractor(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		token, err := csrfExtractor(c)
		if err != nil {
			return c.SendString("missing")
		}
		return c.SendString(token)
	})

	cases := []struct {
		name   string
		header string
		body   string
		want   string
	}{
		{name: "header", header: "from-header", want: "from-header"},
		{name: "form field", body: "_csrf=from-form", want: "from-form"},
		{name: "header wins", header: "h", body: "_csrf=f", want: "h"},
		{name: "none", want: "missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tc.header != "" {
				req.Header.Set("X-Csrf-Token", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.want, string(body))
		})
	}
}

func TestErrorHandlerAndHealth(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(zap.NewNop())})
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded") })
	app.Get("/health", healthHandler(func(context.Context) error { return errors.New("down") }))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "db exploded")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// mapStorage is a fiber.Storage shared by several app instances in a test.
type mapStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapStorage() *mapStorage {
	return &mapStorage{data: map[string][]byte{}}
}

func (s *mapStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *mapStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), val...)
	return nil
}

func (s *mapStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mapStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string][]byte{}
	return nil
}

func (s *mapStorage) Close() error { return nil }

func newInstance(csrfStorage fiber.Storage) *fiber.App {
	logger := zap.NewNop()
	return New(Options{
		Logger:      logger,
		Sessions:    session.NewManager(session.Config{Expiration: time.Hour}, logger),
		CSRFStorage: csrfStorage,
	})
}

// csrfAcrossInstances takes a token from one instance and submits it to
// another, returning the second instance's status.
func csrfAcrossInstances(t *testing.T, issuer, verifier *fiber.App) int {
	t.Helper()
	resp, err := issuer.Test(httptest.NewRequest(http.MethodGet, "/auth/login", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token string
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	// an empty form fails validation before any service is reached
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("email="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", "csrf_="+token)
	req.Header.Set("X-Csrf-Token", token)
	resp, err = verifier.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestCSRFTokensSharedBetweenInstances(t *testing.T) {
	shared := newMapStorage()
	a, b := newInstance(shared), newInstance(shared)
	assert.Equal(t, http.StatusBadRequest, csrfAcrossInstances(t, a, b))

	c, d := newInstance(nil), newInstance(nil)
	assert.Equal(t, http.StatusForbidden, csrfAcrossInstances(t, c, d))
}
