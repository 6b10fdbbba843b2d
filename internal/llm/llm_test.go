package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

var prompt = domain.Prompt{System: "Answer from context.", User: "Question: capital of France?\n\nAnswer:"}

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func newTestClient(t *testing.T, provider, baseURL string) Client {
	t.Helper()
	c, err := New(Config{Provider: provider, APIKey: "test-key", BaseURL: baseURL, Model: "test-model"})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Provider: "mystery", APIKey: "k"})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = New(Config{Provider: "openai"})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	c, err := New(Config{Provider: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "claude", c.Name())
	assert.Equal(t, "claude-3-5-haiku-latest", c.Model())

	c, err = New(Config{Provider: "gemini", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", c.Model())
}

func TestAPIKeyFromEnv(t *testing.T) {
	p, ok := Lookup("claude")
	require.True(t, ok)
	t.Setenv("CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "from-anthropic")
	key, env := APIKeyFromEnv(p, "")
	assert.Equal(t, "from-anthropic", key)
	assert.Equal(t, "ANTHROPIC_API_KEY", env)

	t.Setenv("MY_KEY", "mine")
	key, env = APIKeyFromEnv(p, "MY_KEY")
	assert.Equal(t, "mine", key)
	assert.Equal(t, "MY_KEY", env)
}

func TestOpenAICompatible_Generate(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, prompt.User, req.Messages[1].Content)
		writeJSON(w, http.StatusOK, chatReply("  Paris.  "))
	})

	answer, err := newTestClient(t, "openai", srv.URL+"/v1").Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
}

func TestOpenAICompatible_ErrorKinds(t *testing.T) {
	cases := map[string]struct {
		status int
		body   any
		kind   error
	}{
		"auth":      {http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "Incorrect API key", "type": "invalid_request_error"}}, domain.ErrAuth},
		"server":    {http.StatusBadGateway, map[string]any{"error": map[string]any{"message": "upstream down", "type": "server_error"}}, domain.ErrNetwork},
		"rejected":  {http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "bad model", "type": "invalid_request_error"}}, domain.ErrRejected},
		"no choice": {http.StatusOK, map[string]any{"id": "x", "choices": []any{}}, domain.ErrMalformedResponse},
		"empty":     {http.StatusOK, chatReply("   "), domain.ErrMalformedResponse},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := newTestClient(t, "openrouter", srv.URL+"/v1").Generate(context.Background(), prompt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestOpenAICompatible_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, "openai", url+"/v1").Generate(context.Background(), prompt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestClaude_Generate(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, prompt.System, req.System)
		assert.Equal(t, claudeMaxTokens, req.MaxTokens)
		writeJSON(w, http.StatusOK, map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "Berlin."}},
			"stop_reason": "end_turn",
		})
	})

	answer, err := newTestClient(t, "claude", srv.URL).Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Berlin.", answer)
}

func TestClaude_ErrorKinds(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		kind   error
	}{
		"auth":      {http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, domain.ErrAuth},
		"overload":  {529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, domain.ErrNetwork},
		"malformed": {http.StatusOK, `{"content": [`, domain.ErrMalformedResponse},
		"empty":     {http.StatusOK, `{"content": [], "stop_reason": "max_tokens"}`, domain.ErrMalformedResponse},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := newTestClient(t, "claude", srv.URL).Generate(context.Background(), prompt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}
