package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tsuyaku/nettrace"
)

const openAIAPIURL = "https://api.openai.com/v1/audio/transcriptions"

type OpenAI struct {
	baseTranscriber
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{baseTranscriber{
		client: nettrace.New(openAIAPIURL),
		apiURL: openAIAPIURL,
		apiKey: apiKey,
	}}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	go o.client.Warm()
	return newBatchSession(ctx, cfg, o.transcribe)
}

func (o *OpenAI) transcribe(ctx context.Context, audioData []byte, lang string) (*Result, error) {
	body, contentType, err := multipartAudio(audioData, "gpt-4o-transcribe", "json", lang)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var oResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &oResp); err != nil {
		return nil, fmt.Errorf("openai response parse error: %w", err)
	}

	remaining := nettrace.FirstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := nettrace.FirstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Candidates: []string{oResp.Text},
		RateLimit:  remaining + "/" + limit,
		Status:     resp.StatusCode,
		Metrics:    resp.Metrics,
	}, nil
}
