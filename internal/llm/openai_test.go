package llm

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestOpenAIStreamCompletion(t *testing.T) {
	client := fakeClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "https://api.openai.com/v1/chat/completions", r.URL.String())
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "gpt-5-nano", gjson.GetBytes(body, "model").String())
		assert.Equal(t, int64(1024), gjson.GetBytes(body, "max_tokens").Int())
		assert.Equal(t, "system", gjson.GetBytes(body, "messages.0.role").String())
		assert.Equal(t, "you are helpful", gjson.GetBytes(body, "messages.0.content").String())
		assert.Equal(t, "user", gjson.GetBytes(body, "messages.1.role").String())
		assert.Equal(t, "list files", gjson.GetBytes(body, "messages.1.content").String())
		assert.True(t, gjson.GetBytes(body, "stream").Bool())

		return sseResponse(r,
			`data: {"id":"c1","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
			"",
			`data: {"id":"c1","choices":[{"index":0,"delta":{"content":"du -sh *"},"finish_reason":null}]}`,
			"",
			`data: {"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			"",
			"data: [DONE]",
			"",
		), nil
	})

	p, err := New(ProviderOpenAI, Config{APIKey: "secret", Model: "gpt-5-nano", HTTPClient: client})
	require.NoError(t, err)

	s, err := p.StreamCompletion(context.Background(), "you are helpful", "list files")
	require.NoError(t, err)
	defer s.Close()

	events, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []StreamEvent{
		{Kind: EventTextDelta, Text: "du -sh *"},
		{Kind: EventDone},
	}, events)
}

func TestOpenAIHTTPError(t *testing.T) {
	client := fakeClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusTooManyRequests,
			`{"error":{"message":"Rate limit reached","type":"tokens","code":"rate_limit_exceeded"}}`), nil
	})

	p, err := New(ProviderOpenAI, Config{APIKey: "k", Model: "m", HTTPClient: client})
	require.NoError(t, err)

	_, err = p.StreamCompletion(context.Background(), "sys", "q")
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, e.Kind)
	assert.Equal(t, http.StatusTooManyRequests, e.HTTPStatus)
	assert.Equal(t, "Rate limit reached", e.Message)
}

func TestOpenAIHTTPErrorPlainBody(t *testing.T) {
	client := fakeClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusBadGateway, ""), nil
	})

	p, err := New(ProviderOpenAI, Config{APIKey: "k", Model: "m", HTTPClient: client})
	require.NoError(t, err)

	_, err = p.StreamCompletion(context.Background(), "sys", "q")
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, e.HTTPStatus)
	assert.Equal(t, "Bad Gateway", e.Message)
}

func TestDecodeOpenAI(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		want   StreamEvent
		wantOK bool
	}{
		{
			name:   "content delta",
			data:   `{"choices":[{"index":0,"delta":{"content":"ls"},"finish_reason":null}]}`,
			want:   StreamEvent{Kind: EventTextDelta, Text: "ls"},
			wantOK: true,
		},
		{
			name:   "role-only delta skipped",
			data:   `{"choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
			wantOK: false,
		},
		{
			name:   "finish reason",
			data:   `{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			want:   StreamEvent{Kind: EventDone},
			wantOK: true,
		},
		{
			name:   "delta wins over finish reason",
			data:   `{"choices":[{"index":0,"delta":{"content":"done"},"finish_reason":"stop"}]}`,
			want:   StreamEvent{Kind: EventTextDelta, Text: "done"},
			wantOK: true,
		},
		{
			name:   "error payload",
			data:   `{"error":{"message":"The server is overloaded"}}`,
			want:   StreamEvent{Kind: EventError, Err: "The server is overloaded"},
			wantOK: true,
		},
		{
			name:   "usage-only chunk skipped",
			data:   `{"id":"c1","choices":[],"usage":{"prompt_tokens":9,"completion_tokens":12}}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, err := decodeOpenAI([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, ev)
			}
		})
	}
}
