package transcriber

import (
	"context"
	"fmt"
	"sync"
)

// Fake returns fixed candidates (or an error) for every session.
type Fake struct {
	candidates []string
	err        error

	mu       sync.Mutex
	fed      int
	lastLang string
	held     []*hold
}

type hold struct {
	release chan struct{}
	err     error
}

func NewFake(candidates []string, err error) *Fake {
	return &Fake{candidates: candidates, err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) NewSession(_ context.Context, cfg SessionConfig) (Session, error) {
	f.mu.Lock()
	f.lastLang = cfg.Language
	var h *hold
	if len(f.held) > 0 {
		h, f.held = f.held[0], f.held[1:]
	}
	f.mu.Unlock()
	return &fakeSession{owner: f, hold: h}, nil
}

// Hold makes Close of the next session block until release is called,
// then fail with err (or succeed normally when err is nil).
func (f *Fake) Hold(err error) (release func()) {
	h := &hold{release: make(chan struct{}), err: err}
	f.mu.Lock()
	f.held = append(f.held, h)
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(h.release) }) }
}

// FedBytes reports how many PCM bytes all sessions received.
func (f *Fake) FedBytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fed
}

func (f *Fake) LastLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLang
}

type fakeSession struct {
	owner *Fake
	hold  *hold
}

func (s *fakeSession) Feed(pcm []byte) {
	s.owner.mu.Lock()
	s.owner.fed += len(pcm)
	s.owner.mu.Unlock()
}

func (s *fakeSession) Close() (SessionResult, error) {
	if s.hold != nil {
		<-s.hold.release
		if s.hold.err != nil {
			return SessionResult{}, fmt.Errorf("fake transcriber error: %w", s.hold.err)
		}
	}
	if s.owner.err != nil {
		return SessionResult{}, fmt.Errorf("fake transcriber error: %w", s.owner.err)
	}
	candidates := nonEmpty(s.owner.candidates)
	return SessionResult{
		Candidates: candidates,
		NoSpeech:   len(candidates) == 0,
		AudioS:     1.0,
		Result:     &Result{Candidates: candidates, Status: 200},
	}, nil
}
