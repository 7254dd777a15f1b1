package transcriber

type SessionConfig struct {
	Language string // primary language subtag, empty = auto-detect
}

type SessionResult struct {
	Candidates []string
	NoSpeech   bool
	AudioS     float64
	EncodedKB  float64
	Result     *Result
}

// Text returns the top candidate.
func (r SessionResult) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0]
}

type Session interface {
	Feed(pcm []byte)
	Close() (SessionResult, error)
}
