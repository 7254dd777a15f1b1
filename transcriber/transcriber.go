package transcriber

import (
	"context"
	"fmt"
	"strings"

	"tsuyaku/nettrace"
)

// Result is the decoded provider response for one upload.
type Result struct {
	// Candidates are ranked best first. Providers without alternatives
	// return a single entry.
	Candidates []string
	Confidence float64
	Duration   float64
	RateLimit  string
	Status     int
	Metrics    *nettrace.Metrics
}

type Transcriber interface {
	Name() string
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

type baseTranscriber struct {
	client *nettrace.Client
	apiURL string
	apiKey string
}

func New(provider, apiKey string) (Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for provider %q (set GROQ_API_KEY, OPENAI_API_KEY or DEEPGRAM_API_KEY)", provider)
	}
	switch provider {
	case "groq":
		return NewGroq(apiKey), nil
	case "openai":
		return NewOpenAI(apiKey), nil
	case "deepgram":
		return NewDeepgram(apiKey), nil
	}
	return nil, fmt.Errorf("unknown transcription provider %q", provider)
}

// BaseLanguage reduces a BCP 47 tag such as "ja-JP" to its primary
// subtag, which is what the transcription APIs accept.
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func nonEmpty(candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
