package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"tsuyaku/nettrace"
)

const deepgramAPIURL = "https://api.deepgram.com/v1/listen"

type Deepgram struct {
	baseTranscriber
}

func NewDeepgram(apiKey string) *Deepgram {
	return newDeepgramAt(deepgramAPIURL, apiKey)
}

func newDeepgramAt(apiURL, apiKey string) *Deepgram {
	return &Deepgram{baseTranscriber{
		client: nettrace.New(apiURL),
		apiURL: apiURL,
		apiKey: apiKey,
	}}
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	go d.client.Warm()
	return newBatchSession(ctx, cfg, d.transcribe)
}

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) listenURL(lang string) string {
	q := url.Values{}
	q.Set("model", "nova-3")
	q.Set("smart_format", "true")
	q.Set("alternatives", "3")
	if lang != "" {
		q.Set("language", lang)
	} else {
		q.Set("detect_language", "true")
	}
	return d.apiURL + "?" + q.Encode()
}

func (d *Deepgram) transcribe(ctx context.Context, audioData []byte, lang string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.listenURL(lang), bytes.NewReader(audioData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/flac")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("deepgram API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var dgResp deepgramResponse
	if err := json.Unmarshal(resp.Body, &dgResp); err != nil {
		return nil, fmt.Errorf("deepgram response parse error: %w", err)
	}

	var candidates []string
	var confidence float64
	if len(dgResp.Results.Channels) > 0 {
		alts := dgResp.Results.Channels[0].Alternatives
		for _, alt := range alts {
			candidates = append(candidates, alt.Transcript)
		}
		if len(alts) > 0 {
			confidence = alts[0].Confidence
		}
	}

	remaining := nettrace.FirstNonEmpty(resp.Header,
		"x-dg-ratelimit-remaining", "x-ratelimit-remaining", "ratelimit-remaining")
	limit := nettrace.FirstNonEmpty(resp.Header,
		"x-dg-ratelimit-limit", "x-ratelimit-limit", "ratelimit-limit")

	return &Result{
		Candidates: candidates,
		Confidence: confidence,
		Duration:   dgResp.Metadata.Duration,
		RateLimit:  remaining + "/" + limit,
		Status:     resp.StatusCode,
		Metrics:    resp.Metrics,
	}, nil
}
