package speech

import "sync"

// Fake is a scripted Engine. With auto events on, Start and Stop fire
// OnStart and OnEnd the way a platform recognizer would.
type Fake struct {
	mu         sync.Mutex
	listener   *Listener
	permission bool
	auto       bool
	startErr   error
	stopErr    error
	listening  bool
	lastLang   string
	starts     int
	stops      int
	destroys   int
}

func NewFake() *Fake {
	return &Fake{permission: true, auto: true}
}

func (f *Fake) SetPermission(ok bool) {
	f.mu.Lock()
	f.permission = ok
	f.mu.Unlock()
}

func (f *Fake) SetAutoEvents(on bool) {
	f.mu.Lock()
	f.auto = on
	f.mu.Unlock()
}

func (f *Fake) SetStartError(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *Fake) SetStopError(err error) {
	f.mu.Lock()
	f.stopErr = err
	f.mu.Unlock()
}

func (f *Fake) Start(lang string) error {
	f.mu.Lock()
	f.starts++
	f.lastLang = lang
	if f.startErr != nil {
		err := f.startErr
		f.mu.Unlock()
		return err
	}
	if f.listening {
		f.mu.Unlock()
		return ErrBusy
	}
	f.listening = true
	l, auto := f.listener, f.auto
	f.mu.Unlock()

	if auto {
		l.start()
	}
	return nil
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	f.stops++
	if f.stopErr != nil {
		err := f.stopErr
		f.mu.Unlock()
		return err
	}
	if !f.listening {
		f.mu.Unlock()
		return ErrNotListening
	}
	f.listening = false
	l, auto := f.listener, f.auto
	f.mu.Unlock()

	if auto {
		l.end()
	}
	return nil
}

func (f *Fake) SetListener(l *Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

func (f *Fake) HasPermission() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission
}

func (f *Fake) Destroy() error {
	f.mu.Lock()
	f.destroys++
	f.listener = nil
	f.listening = false
	f.mu.Unlock()
	return nil
}

func (f *Fake) current() *Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

func (f *Fake) EmitStart() { f.current().start() }

func (f *Fake) EmitEnd() {
	f.mu.Lock()
	f.listening = false
	f.mu.Unlock()
	f.current().end()
}

func (f *Fake) EmitError(msg string) {
	f.mu.Lock()
	f.listening = false
	f.mu.Unlock()
	f.current().fail(msg)
}

func (f *Fake) EmitResults(candidates ...string) { f.current().results(candidates) }

// Attached reports whether a listener is set.
func (f *Fake) Attached() bool { return f.current() != nil }

func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *Fake) Destroys() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroys
}

func (f *Fake) LastLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLang
}
