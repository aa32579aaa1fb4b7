package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) Generator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return g
}

func TestOpenAIClient_Generate(t *testing.T) {
	g := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Food"}}]}`))
	})

	text, err := g.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, "Food", text)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		body    string
		errMsg  string
		status  int
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", wantErr: common.ErrRateLimit},
		{name: "server error", status: http.StatusInternalServerError, body: "oops", errMsg: "status 500"},
		{name: "malformed json", status: http.StatusOK, body: "{not json", errMsg: "failed to parse response"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: common.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.Generate(context.Background(), "classify")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestOpenAIClient_WithClassifier(t *testing.T) {
	g := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"**Shopping**"}}]}`))
	})
	c := newTestClassifier(t, g)

	assert.Equal(t, "Shopping", c.Classify(context.Background(), "XYZ Corp Invoice #4821", "consulting").String())
}
