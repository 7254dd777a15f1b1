// Package screen drives the interpreter screen: one start/stop toggle
// for speech input and one gated translate action.
package screen

import (
	"context"
	"errors"
	"sync"

	"tsuyaku/log"
	"tsuyaku/recognition"
)

var ErrTranslateDisabled = errors.New("translate is not available")

// TranslationFailed is shown in place of any translation error detail.
const TranslationFailed = "translation failed"

type Status int

const (
	StatusAwaitingInput Status = iota
	StatusListening
	StatusTranslating
)

func (s Status) String() string {
	switch s {
	case StatusListening:
		return "listening"
	case StatusTranslating:
		return "translating"
	}
	return "awaiting input"
}

// View is everything the screen renders.
type View struct {
	Status         Status
	Recognized     string
	Translated     string
	RecognitionErr string
	TranslationErr string
	HasPermission  bool
	CanTranslate   bool
}

type Recognizer interface {
	Start(lang string) error
	Stop()
	State() recognition.State
	Subscribe(fn func(recognition.State)) func()
	Close()
}

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Config struct {
	Locale string // recognition locale, e.g. ja-JP
	Source string
	Target string
}

type Controller struct {
	rec Recognizer
	tr  Translator
	cfg Config

	mu           sync.Mutex
	translating  bool
	translated   string
	translateErr string
	translations int
	onChange     func(View)
	closed       bool

	unsubscribe func()
}

func New(rec Recognizer, tr Translator, cfg Config) *Controller {
	c := &Controller{rec: rec, tr: tr, cfg: cfg}
	c.unsubscribe = rec.Subscribe(func(recognition.State) { c.changed() })
	return c
}

// OnChange sets the hook fired after every view change. It must not call
// back into the controller synchronously.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn, closed := c.onChange, c.closed
	c.mu.Unlock()
	if fn != nil && !closed {
		fn(c.View())
	}
}

func (c *Controller) View() View {
	st := c.rec.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Status:         c.statusLocked(st),
		Recognized:     st.Utterance,
		Translated:     c.translated,
		RecognitionErr: st.Err,
		TranslationErr: c.translateErr,
		HasPermission:  st.HasPermission,
		CanTranslate:   c.canTranslateLocked(st),
	}
}

func (c *Controller) statusLocked(st recognition.State) Status {
	switch {
	case c.translating:
		return StatusTranslating
	case st.Listening:
		return StatusListening
	}
	return StatusAwaitingInput
}

func (c *Controller) canTranslateLocked(st recognition.State) bool {
	return st.Utterance != "" && !c.translating && !st.Listening && !c.closed
}

func (c *Controller) Status() Status {
	st := c.rec.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(st)
}

func (c *Controller) CanTranslate() bool {
	st := c.rec.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canTranslateLocked(st)
}

// OnStartStopPressed toggles listening. It does nothing while a
// translation is in flight.
func (c *Controller) OnStartStopPressed() {
	c.mu.Lock()
	busy := c.translating || c.closed
	c.mu.Unlock()
	if busy {
		return
	}
	if c.rec.State().Listening {
		c.rec.Stop()
		return
	}
	if err := c.rec.Start(c.cfg.Locale); err != nil {
		log.Warnf("start listening: %v", err)
	}
}

// OnTranslatePressed translates the current utterance. The returned error
// carries the detail; the view only shows TranslationFailed.
func (c *Controller) OnTranslatePressed(ctx context.Context) error {
	st := c.rec.State()
	c.mu.Lock()
	if !c.canTranslateLocked(st) {
		c.mu.Unlock()
		return ErrTranslateDisabled
	}
	c.translating = true
	c.mu.Unlock()
	c.changed()

	text, err := c.tr.Translate(ctx, st.Utterance, c.cfg.Source, c.cfg.Target)

	c.mu.Lock()
	c.translating = false
	if err != nil {
		c.translateErr = TranslationFailed
	} else {
		c.translated = text
		c.translateErr = ""
		c.translations++
	}
	c.mu.Unlock()
	c.changed()
	return err
}

// Translations counts successful translations.
func (c *Controller) Translations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translations
}

// Close unmounts the screen and tears down the recognition session.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.onChange = nil
	c.mu.Unlock()

	c.unsubscribe()
	c.rec.Close()
}
