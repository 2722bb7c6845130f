package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/console/internal/config"
	"github.com/JonMunkholm/console/internal/core"
	"github.com/JonMunkholm/console/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	remoteAddr string
	trusted    bool
	actor      core.Actor
	hasActor   bool
}

func capture(c *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.remoteAddr = r.RemoteAddr
		c.trusted = FromTrustedProxy(r.Context())
		c.actor, c.hasActor = core.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name        string
		trusted     []string
		remoteAddr  string
		headers     map[string]string
		wantAddr    string
		wantTrusted bool
	}{
		{
			name:       "no trusted proxies ignores headers",
			remoteAddr: "10.0.0.1:5000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.5"},
			wantAddr:   "10.0.0.1:5000",
		},
		{
			name:        "trusted proxy X-Real-IP",
			trusted:     []string{"10.0.0.0/8"},
			remoteAddr:  "10.0.0.1:5000",
			headers:     map[string]string{"X-Real-IP": "203.0.113.5"},
			wantAddr:    "203.0.113.5",
			wantTrusted: true,
		},
		{
			name:        "trusted proxy first X-Forwarded-For hop",
			trusted:     []string{"10.0.0.1"},
			remoteAddr:  "10.0.0.1:5000",
			headers:     map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.9"},
			wantAddr:    "198.51.100.2",
			wantTrusted: true,
		},
		{
			name:        "invalid header value keeps RemoteAddr",
			trusted:     []string{"10.0.0.0/8"},
			remoteAddr:  "10.0.0.1:5000",
			headers:     map[string]string{"X-Real-IP": "not-an-ip"},
			wantAddr:    "10.0.0.1:5000",
			wantTrusted: true,
		},
		{
			name:       "untrusted source",
			trusted:    []string{"10.0.0.0/8", "bogus"},
			remoteAddr: "192.0.2.50:5000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.5"},
			wantAddr:   "192.0.2.50:5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got captured
			h := TrustedRealIP(tt.trusted)(capture(&got))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantAddr, got.remoteAddr)
			assert.Equal(t, tt.wantTrusted, got.trusted)
		})
	}
}

func TestActor(t *testing.T) {
	newReq := func(remote string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req.Header.Set(UserIDHeader, " u-42 ")
		req.Header.Set(UserEmailHeader, "Ops@Console.Test")
		req.Header.Set(UserNameHeader, "Ops")
		return req
	}
	chain := func(c *captured) http.Handler {
		return TrustedRealIP([]string{"10.0.0.0/8"})(Actor(capture(c)))
	}

	t.Run("from trusted proxy", func(t *testing.T) {
		var got captured
		chain(&got).ServeHTTP(httptest.NewRecorder(), newReq("10.1.2.3:80"))
		require.True(t, got.hasActor)
		assert.Equal(t, core.Actor{ID: "u-42", Email: "ops@console.test", Name: "Ops"}, got.actor)
	})

	t.Run("spoofed by a client", func(t *testing.T) {
		var got captured
		chain(&got).ServeHTTP(httptest.NewRecorder(), newReq("203.0.113.7:80"))
		assert.False(t, got.hasActor)
	})

	t.Run("name alone is not an identity", func(t *testing.T) {
		var got captured
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.2.3:80"
		req.Header.Set(UserNameHeader, "Ops")
		chain(&got).ServeHTTP(httptest.NewRecorder(), req)
		assert.False(t, got.hasActor)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name     string
		cfg      config.SecurityConfig
		key      string
		wantCode int
	}{
		{"disabled", config.SecurityConfig{}, "", http.StatusOK},
		{"missing key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a"}}, "", http.StatusUnauthorized},
		{"wrong key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a"}}, "b", http.StatusForbidden},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "a", http.StatusForbidden},
		{"valid key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a", "b"}}, "b", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.cfg)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "info", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/views/usage", nil)
	req = req.WithContext(core.ContextWithActor(req.Context(), core.Actor{Email: "ops@console.test"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"path":"/views/usage"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"bytes":15`)
	assert.Contains(t, out, `"ip":"192.0.2.1"`)
	assert.Contains(t, out, `"actor":"ops@console.test"`)
}
