package llm

import (
	"context"

	"github.com/tidwall/gjson"
)

const (
	anthropicDefaultURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
)

type anthropicProvider struct {
	cfg Config
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *anthropicProvider) Name() string { return ProviderAnthropic }

func (p *anthropicProvider) StreamCompletion(ctx context.Context, system, query string) (*Stream, error) {
	url := p.cfg.BaseURL
	if url == "" {
		url = anthropicDefaultURL
	}

	req, err := newJSONRequest(ctx, url, anthropicRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: query}},
		Stream:    true,
	})
	if err != nil {
		return nil, &Error{Provider: ProviderAnthropic, Kind: KindTransport, Message: "building request", Cause: err}
	}
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := doStream(p.cfg.client(), ProviderAnthropic, req)
	if err != nil {
		return nil, err
	}
	return newStream(ProviderAnthropic, resp, decodeAnthropic), nil
}

// decodeAnthropic projects one messages-API event. Text arrives as
// content_block_delta events carrying a text_delta; everything else is
// metadata except message_stop and error.
func decodeAnthropic(data []byte) (StreamEvent, bool, error) {
	if !gjson.ValidBytes(data) {
		return StreamEvent{}, false, errInvalidJSON
	}
	res := gjson.ParseBytes(data)

	switch res.Get("type").String() {
	case "content_block_delta":
		if res.Get("delta.type").String() != "text_delta" {
			return StreamEvent{}, false, nil
		}
		text := res.Get("delta.text")
		if !text.Exists() {
			return StreamEvent{}, false, nil
		}
		return StreamEvent{Kind: EventTextDelta, Text: text.String()}, true, nil
	case "message_stop":
		return StreamEvent{Kind: EventDone}, true, nil
	case "error":
		return StreamEvent{Kind: EventError, Err: res.Get("error.message").String()}, true, nil
	default:
		// ping, message_start, content_block_start/stop, message_delta.
		return StreamEvent{}, false, nil
	}
}
