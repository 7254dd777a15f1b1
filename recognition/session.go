// Package recognition keeps the observable state of one speech
// recognition session on top of a speech.Engine.
package recognition

import (
	"errors"
	"fmt"
	"sync"

	"tsuyaku/log"
	"tsuyaku/speech"
)

var (
	ErrPermissionDenied = errors.New("microphone permission required")
	ErrStart            = errors.New("could not start speech recognition")
)

// GenericError is shown when the engine reports an error without a message.
const GenericError = "speech recognition error"

type State struct {
	Listening     bool
	Utterance     string
	Err           string
	HasPermission bool
}

type Session struct {
	engine speech.Engine
	// opMu serializes Start, Stop and Close.
	opMu sync.Mutex

	mu     sync.Mutex
	state  State
	closed bool
	subs   map[int]func(State)
	nextID int

	// notifyMu serializes deliveries so observers see changes in order.
	notifyMu sync.Mutex
}

// New attaches a session to engine. The engine is owned by the session
// from here on and is destroyed by Close.
func New(engine speech.Engine) *Session {
	s := &Session{
		engine: engine,
		state:  State{HasPermission: engine.HasPermission()},
		subs:   make(map[int]func(State)),
	}
	engine.SetListener(&speech.Listener{
		OnStart:   s.onStart,
		OnEnd:     s.onEnd,
		OnError:   s.onError,
		OnResults: s.onResults,
	})
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned func removes it.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if !s.closed {
		s.subs[id] = fn
	}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// update applies fn to the state and notifies subscribers. It reports
// false once the session is closed.
func (s *Session) update(fn func(*State)) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	snap := s.state
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return true
}

func (s *Session) Start(lang string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.isClosed() {
		return fmt.Errorf("%w: session closed", ErrStart)
	}
	permitted := s.engine.HasPermission()
	var listening bool
	s.update(func(st *State) {
		st.Utterance = ""
		st.Err = ""
		st.HasPermission = permitted
		listening = st.Listening
		if !permitted {
			st.Err = ErrPermissionDenied.Error()
		} else if listening {
			st.Err = ErrStart.Error()
		}
	})
	if !permitted {
		return ErrPermissionDenied
	}
	if listening {
		return fmt.Errorf("%w: already listening", ErrStart)
	}

	if err := s.engine.Start(lang); err != nil {
		log.Errorf("speech engine start failed: %v", err)
		busy := errors.Is(err, speech.ErrBusy)
		s.update(func(st *State) {
			st.Err = ErrStart.Error()
			// a busy engine is still recording
			if !busy {
				st.Listening = false
			}
		})
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	return nil
}

// Stop ends listening. Engine errors are logged only; calling it while
// idle is harmless.
func (s *Session) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.isClosed() {
		return
	}
	if err := s.engine.Stop(); err != nil && !errors.Is(err, speech.ErrNotListening) {
		log.Warnf("speech engine stop: %v", err)
	}
	s.update(func(st *State) { st.Listening = false })
}

// Close stops the engine, detaches from it and destroys it. No state
// change or notification happens afterwards.
func (s *Session) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.notifyMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.notifyMu.Unlock()
		return
	}
	s.closed = true
	s.subs = nil
	s.mu.Unlock()
	s.notifyMu.Unlock()

	if err := s.engine.Stop(); err != nil && !errors.Is(err, speech.ErrNotListening) {
		log.Warnf("speech engine stop on close: %v", err)
	}
	s.engine.SetListener(nil)
	if err := s.engine.Destroy(); err != nil {
		log.Warnf("speech engine destroy: %v", err)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) onStart() {
	s.update(func(st *State) { st.Listening = true })
}

func (s *Session) onEnd() {
	s.update(func(st *State) { st.Listening = false })
}

func (s *Session) onError(msg string) {
	if msg == "" {
		msg = GenericError
	}
	s.update(func(st *State) {
		st.Err = msg
		st.Listening = false
	})
}

func (s *Session) onResults(candidates []string) {
	if len(candidates) == 0 {
		return
	}
	s.update(func(st *State) { st.Utterance = candidates[0] })
}
