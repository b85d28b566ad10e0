package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.ClassifierConfig{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Timeout:  2 * time.Second,
	}, logging.NewNopLogger())
	require.NotNil(t, c)
	return c
}

func TestClient_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("plain json verdict", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/classify", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req classifyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "memo.pdf", req.Filename)

			w.Write([]byte(`{"priority":"High","document_date":"2026-03-15"}`))
		})

		got, err := c.Classify(ctx, "memo.pdf", "body text")
		require.NoError(t, err)
		assert.Equal(t, "High", got.Priority)
		assert.Equal(t, "2026-03-15", got.DocumentDate)
	})

	t.Run("fenced verdict", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("```json\n{\"priority\":\"Critical\"}\n```"))
		})

		got, err := c.Classify(ctx, "memo.pdf", "text")
		require.NoError(t, err)
		assert.Equal(t, "Critical", got.Priority)
		assert.Empty(t, got.DocumentDate)
	})

	t.Run("verdict buried in prose", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`Here is the classification: {"priority":"High"} hope that helps.`))
		})

		got, err := c.Classify(ctx, "memo.pdf", "text")
		require.NoError(t, err)
		assert.Equal(t, "High", got.Priority)
	})

	t.Run("oversized text truncated on rune boundary", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var req classifyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.LessOrEqual(t, len(req.Text), maxTextBytes)
			// A split rune would have been replaced with U+FFFD on marshal.
			assert.NotContains(t, req.Text, "�")
			w.Write([]byte(`{"priority":"Low"}`))
		})

		// Multi-byte runes straddling the cap must not be split.
		long := strings.Repeat("é", maxTextBytes)
		_, err := c.Classify(ctx, "memo.pdf", long)
		require.NoError(t, err)
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := c.Classify(ctx, "memo.pdf", "text")
		assert.True(t, errors.IsCode(err, errors.ErrCodeClassifierUnavailable))
	})

	t.Run("garbage body is malformed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("the file looks important"))
		})

		_, err := c.Classify(ctx, "memo.pdf", "text")
		assert.True(t, errors.IsCode(err, errors.ErrCodeClassifierMalformed))
	})

	t.Run("missing priority is malformed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"document_date":"2026-03-15"}`))
		})

		_, err := c.Classify(ctx, "memo.pdf", "text")
		assert.True(t, errors.IsCode(err, errors.ErrCodeClassifierMalformed))
	})

	t.Run("unreachable endpoint is unavailable", func(t *testing.T) {
		c := NewClient(config.ClassifierConfig{
			Endpoint: "http://127.0.0.1:1",
			Timeout:  500 * time.Millisecond,
		}, logging.NewNopLogger())
		require.NotNil(t, c)

		_, err := c.Classify(ctx, "memo.pdf", "text")
		assert.True(t, errors.IsCode(err, errors.ErrCodeClassifierUnavailable))
	})
}

func TestNewClient_Unconfigured(t *testing.T) {
	c := NewClient(config.ClassifierConfig{}, logging.NewNopLogger())
	assert.Nil(t, c)
}

func TestExtractVerdict(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without newline", "```{\"a\":1}```", `{"a":1}`},
		{"leading prose", `Sure: {"a":1}`, `{"a":1}`},
		{"surrounding prose", `Sure: {"a":1} done.`, `{"a":1}`},
		{"prose inside fence", "```json\nVerdict: {\"a\":1}\n```", `{"a":1}`},
		{"no object at all", "looks important", "looks important"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractVerdict([]byte(tt.in))))
		})
	}
}
