package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Canonical provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

const (
	defaultTimeout = 30 * time.Second
	maxTokens      = 1024
)

// Providers lists the canonical provider names.
func Providers() []string {
	return []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini}
}

// Config carries everything a provider needs for one request. It is
// immutable once handed to New.
type Config struct {
	APIKey string
	Model  string
	// BaseURL, when set, replaces the provider's full endpoint URL.
	BaseURL string
	// HTTPClient overrides the default 30s-timeout client. Used by tests.
	HTTPClient *http.Client
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

// Provider issues one streaming completion request against a vendor API.
type Provider interface {
	Name() string
	StreamCompletion(ctx context.Context, system, query string) (*Stream, error)
}

// New returns the provider implementation for a canonical name. Unknown
// names fail with KindUnknownProvider before any network I/O happens.
func New(name string, cfg Config) (Provider, error) {
	switch name {
	case ProviderAnthropic:
		return &anthropicProvider{cfg: cfg}, nil
	case ProviderOpenAI:
		return &openaiProvider{cfg: cfg}, nil
	case ProviderGemini:
		return &geminiProvider{cfg: cfg}, nil
	default:
		return nil, &Error{
			Provider: name,
			Kind:     KindUnknownProvider,
			Message:  fmt.Sprintf("unknown provider %q (want one of: %s)", name, strings.Join(Providers(), ", ")),
		}
	}
}

func newJSONRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	return req, nil
}

// doStream performs the request and verifies the response is streamable.
// Non-2xx responses are drained for their error envelope and returned as
// transport errors; no Stream is created for them.
func doStream(client *http.Client, provider string, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, &Error{Provider: provider, Kind: KindTransport, Message: "request canceled", Cause: err}
		}
		return nil, &Error{Provider: provider, Kind: KindTransport, Message: "request failed", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 32*1024))
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Provider: provider, Kind: KindTransport, HTTPStatus: resp.StatusCode, Message: msg}
	}

	return resp, nil
}
