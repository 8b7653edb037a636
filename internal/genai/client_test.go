package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskveil/game-api/internal/config"
)

func testClient(baseURL, key string) *Client {
	return NewClient(config.Config{
		GenAIBaseURL: baseURL,
		GenAIKey:     key,
		GenAIModel:   "test-model",
		GenAITimeout: 5 * time.Second,
	})
}

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func TestGenerateTextNoKey(t *testing.T) {
	c := testClient("http://localhost:1", "")
	_, err := c.GenerateText(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGenerateText(t *testing.T) {
	srv := completionServer(t, "  a short recap  ")
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	text, err := c.GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "a short recap", text)
}

func TestGenerateJSON(t *testing.T) {
	srv := completionServer(t, "```json\n{\"depth\": 2, \"is_end\": false}\n```")
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	out, err := c.GenerateJSON(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, float64(2), out["depth"])
	assert.Equal(t, false, out["is_end"])
}

func TestGenerateTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	_, err := c.GenerateText(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateTextEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	_, err := c.GenerateText(context.Background(), "sys", "user")
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		key  string
		want any
	}{
		{"plain object", `{"a": 1}`, "a", float64(1)},
		{"fenced", "```json\n{\"a\": 1}\n```", "a", float64(1)},
		{"bare fence", "```\n{\"a\": 1}\n```", "a", float64(1)},
		{"prose around", "Here you go: {\"a\": 1}. Enjoy!", "a", float64(1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := ExtractJSON(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, out[c.key])
		})
	}
}

func TestExtractJSONRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "no braces here", "{broken", "{\"a\": }"} {
		_, err := ExtractJSON(in)
		assert.Error(t, err, "input %q", in)
	}
}
