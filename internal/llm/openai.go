package llm

import (
	"context"

	"github.com/tidwall/gjson"
)

const openaiDefaultURL = "https://api.openai.com/v1/chat/completions"

type openaiProvider struct {
	cfg Config
}

type openaiRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openaiMessage `json:"messages"`
	Stream    bool            `json:"stream"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *openaiProvider) Name() string { return ProviderOpenAI }

func (p *openaiProvider) StreamCompletion(ctx context.Context, system, query string) (*Stream, error) {
	url := p.cfg.BaseURL
	if url == "" {
		url = openaiDefaultURL
	}

	req, err := newJSONRequest(ctx, url, openaiRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokens,
		Messages: []openaiMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: query},
		},
		Stream: true,
	})
	if err != nil {
		return nil, &Error{Provider: ProviderOpenAI, Kind: KindTransport, Message: "building request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := doStream(p.cfg.client(), ProviderOpenAI, req)
	if err != nil {
		return nil, err
	}
	return newStream(ProviderOpenAI, resp, decodeOpenAI), nil
}

// decodeOpenAI projects one chat-completions chunk. A chunk that carries
// both a content delta and a finish_reason yields the delta; termination
// then comes from the [DONE] sentinel or EOF.
func decodeOpenAI(data []byte) (StreamEvent, bool, error) {
	if !gjson.ValidBytes(data) {
		return StreamEvent{}, false, errInvalidJSON
	}
	res := gjson.ParseBytes(data)

	if errObj := res.Get("error"); errObj.Exists() {
		return StreamEvent{Kind: EventError, Err: errObj.Get("message").String()}, true, nil
	}
	if content := res.Get("choices.0.delta.content"); content.Exists() && content.String() != "" {
		return StreamEvent{Kind: EventTextDelta, Text: content.String()}, true, nil
	}
	if reason := res.Get("choices.0.finish_reason"); reason.Exists() && reason.String() != "" {
		return StreamEvent{Kind: EventDone}, true, nil
	}
	// Role-only deltas, usage chunks, other metadata.
	return StreamEvent{}, false, nil
}
