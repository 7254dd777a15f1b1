// Package speech is the boundary to the speech-to-text engine: a Recorder
// backed by audio capture and a cloud transcriber, and a scriptable Fake.
package speech

import "errors"

var (
	ErrBusy         = errors.New("recognizer busy")
	ErrNotListening = errors.New("recognizer not listening")
	ErrNoDevice     = errors.New("no capture device")
	ErrDestroyed    = errors.New("recognizer destroyed")
)

// NoSpeechMessage is reported through OnError when a recording yields no text.
const NoSpeechMessage = "no speech detected"

// Listener receives engine events. Nil fields are skipped. Callbacks must
// not call back into the engine.
type Listener struct {
	OnStart   func()
	OnEnd     func()
	OnError   func(msg string)
	OnResults func(candidates []string)
}

type Engine interface {
	Start(lang string) error
	Stop() error
	// SetListener replaces the listener; nil detaches every callback.
	SetListener(l *Listener)
	HasPermission() bool
	Destroy() error
}

func (l *Listener) start() {
	if l != nil && l.OnStart != nil {
		l.OnStart()
	}
}

func (l *Listener) end() {
	if l != nil && l.OnEnd != nil {
		l.OnEnd()
	}
}

func (l *Listener) fail(msg string) {
	if l != nil && l.OnError != nil {
		l.OnError(msg)
	}
}

func (l *Listener) results(c []string) {
	if l != nil && l.OnResults != nil {
		l.OnResults(c)
	}
}
