// Package translate is a client for LibreTranslate-compatible endpoints.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tsuyaku/log"
	"tsuyaku/nettrace"
)

var (
	ErrTranslation = errors.New("translation failed")
	ErrLanguages   = errors.New("language list failed")
)

// Request is the JSON body of one translation call.
type Request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type response struct {
	TranslatedText *string `json:"translatedText"`
	Error          string  `json:"error"`
}

type Language struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

type Client struct {
	http   *nettrace.Client
	url    string
	apiKey string
}

// New returns a client posting to url. An empty apiKey omits api_key
// from requests.
func New(url, apiKey string) *Client {
	return &Client{
		http:   nettrace.New(url),
		url:    url,
		apiKey: apiKey,
	}
}

func (c *Client) URL() string { return c.url }

// Warm pre-opens a connection to the endpoint.
func (c *Client) Warm() { c.http.Warm() }

func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(Request{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", c.fail(ErrTranslation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", c.fail(ErrTranslation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.fail(ErrTranslation, err)
	}
	log.TranslationMetrics(source, target, len([]rune(text)), resp.Metrics.LogMetrics(resp.StatusCode))

	var result response
	decodeErr := json.Unmarshal(resp.Body, &result)
	if !resp.OK() {
		detail := strings.TrimSpace(string(resp.Body))
		if decodeErr == nil && result.Error != "" {
			detail = result.Error
		}
		return "", c.fail(ErrTranslation, fmt.Errorf("status %d: %s", resp.StatusCode, detail))
	}
	if decodeErr != nil {
		return "", c.fail(ErrTranslation, fmt.Errorf("decode response: %w", decodeErr))
	}
	if result.TranslatedText == nil {
		return "", c.fail(ErrTranslation, errors.New("response has no translatedText"))
	}

	log.TranslationText(text, *result.TranslatedText)
	return *result.TranslatedText, nil
}

// LanguagesURL derives the language list endpoint from the translate URL.
func LanguagesURL(translateURL string) string {
	if strings.Contains(translateURL, "/translate") {
		return strings.Replace(translateURL, "/translate", "/languages", 1)
	}
	return strings.TrimRight(translateURL, "/") + "/languages"
}

// Languages lists the endpoint's languages. A body that is not a
// LibreTranslate language array fails with ErrLanguages.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, LanguagesURL(c.url), nil)
	if err != nil {
		return nil, c.fail(ErrLanguages, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(ErrLanguages, err)
	}
	if !resp.OK() {
		return nil, c.fail(ErrLanguages, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body))))
	}
	var langs []Language
	if err := json.Unmarshal(resp.Body, &langs); err != nil {
		return nil, c.fail(ErrLanguages, fmt.Errorf("decode response: %w", err))
	}
	return langs, nil
}

func (c *Client) fail(kind, err error) error {
	log.Errorf("%v: %v", kind, err)
	return fmt.Errorf("%w: %w", kind, err)
}
