package llm

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

const geminiDefaultBase = "https://generativelanguage.googleapis.com/v1beta/models"

type geminiProvider struct {
	cfg Config
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

func (p *geminiProvider) Name() string { return ProviderGemini }

// endpoint builds the model-scoped streaming URL. BaseURL replaces the
// whole thing, model path included.
func (p *geminiProvider) endpoint() string {
	if p.cfg.BaseURL != "" {
		return p.cfg.BaseURL
	}
	return fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse", geminiDefaultBase, p.cfg.Model)
}

func (p *geminiProvider) StreamCompletion(ctx context.Context, system, query string) (*Stream, error) {
	req, err := newJSONRequest(ctx, p.endpoint(), geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: query}}}},
	})
	if err != nil {
		return nil, &Error{Provider: ProviderGemini, Kind: KindTransport, Message: "building request", Cause: err}
	}
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := doStream(p.cfg.client(), ProviderGemini, req)
	if err != nil {
		return nil, err
	}
	return newStream(ProviderGemini, resp, decodeGemini), nil
}

// decodeGemini projects one generateContent chunk. The final text chunk
// usually carries finishReason alongside its part; the delta wins and
// termination comes from EOF, which Gemini signals by closing the stream.
func decodeGemini(data []byte) (StreamEvent, bool, error) {
	if !gjson.ValidBytes(data) {
		return StreamEvent{}, false, errInvalidJSON
	}
	res := gjson.ParseBytes(data)

	if errObj := res.Get("error"); errObj.Exists() {
		return StreamEvent{Kind: EventError, Err: errObj.Get("message").String()}, true, nil
	}
	if text := res.Get("candidates.0.content.parts.0.text"); text.Exists() {
		return StreamEvent{Kind: EventTextDelta, Text: text.String()}, true, nil
	}
	if res.Get("candidates.0.finishReason").Exists() {
		return StreamEvent{Kind: EventDone}, true, nil
	}
	return StreamEvent{}, false, nil
}
