package screen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"tsuyaku/recognition"
	"tsuyaku/speech"
	"tsuyaku/translate"
)

var testConfig = Config{Locale: "ja-JP", Source: "ja", Target: "en"}

type fakeTranslator struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	gate  chan struct{}
	in    chan struct{}
	last  [3]string
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.last = [3]string{text, source, target}
	gate, in := f.gate, f.in
	f.mu.Unlock()
	if in != nil {
		in <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return f.text, f.err
}

func (f *fakeTranslator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newController(t *testing.T, tr Translator) (*Controller, *speech.Fake) {
	t.Helper()
	eng := speech.NewFake()
	c := New(recognition.New(eng), tr, testConfig)
	t.Cleanup(c.Close)
	return c, eng
}

// recognize runs one listen cycle that yields text.
func recognize(c *Controller, eng *speech.Fake, text string) {
	c.OnStartStopPressed()
	c.OnStartStopPressed()
	eng.EmitResults(text)
}

func TestStartStopToggle(t *testing.T) {
	c, eng := newController(t, &fakeTranslator{})

	if c.Status() != StatusAwaitingInput {
		t.Fatalf("initial status = %v", c.Status())
	}
	c.OnStartStopPressed()
	if c.Status() != StatusListening {
		t.Fatalf("status = %v, want listening", c.Status())
	}
	if eng.LastLanguage() != "ja-JP" {
		t.Errorf("locale = %q", eng.LastLanguage())
	}
	c.OnStartStopPressed()
	if c.Status() != StatusAwaitingInput {
		t.Fatalf("status = %v, want awaiting input", c.Status())
	}
	if eng.Starts() != 1 || eng.Stops() != 1 {
		t.Errorf("starts/stops = %d/%d", eng.Starts(), eng.Stops())
	}
}

func TestTranslateGating(t *testing.T) {
	tr := &fakeTranslator{text: "x"}
	c, eng := newController(t, tr)

	if c.CanTranslate() {
		t.Error("CanTranslate with empty utterance")
	}
	if err := c.OnTranslatePressed(context.Background()); !errors.Is(err, ErrTranslateDisabled) {
		t.Errorf("err = %v, want ErrTranslateDisabled", err)
	}

	eng.EmitResults("hello")
	c.OnStartStopPressed()
	if c.CanTranslate() {
		t.Error("CanTranslate while listening")
	}
	if err := c.OnTranslatePressed(context.Background()); !errors.Is(err, ErrTranslateDisabled) {
		t.Errorf("err while listening = %v", err)
	}
	if tr.Calls() != 0 {
		t.Errorf("translator called %d times", tr.Calls())
	}
}

func TestTranslateInFlight(t *testing.T) {
	tr := &fakeTranslator{text: "Hello", gate: make(chan struct{}), in: make(chan struct{})}
	c, eng := newController(t, tr)
	recognize(c, eng, "こんにちは")

	var views []View
	var mu sync.Mutex
	c.OnChange(func(v View) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	})

	done := make(chan error)
	go func() { done <- c.OnTranslatePressed(context.Background()) }()
	<-tr.in

	if c.Status() != StatusTranslating {
		t.Fatalf("status = %v, want translating", c.Status())
	}
	if c.CanTranslate() {
		t.Error("CanTranslate while translating")
	}
	if err := c.OnTranslatePressed(context.Background()); !errors.Is(err, ErrTranslateDisabled) {
		t.Errorf("second press = %v", err)
	}
	c.OnStartStopPressed()
	if eng.Starts() != 1 {
		t.Error("start/stop should be ignored while translating")
	}

	close(tr.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if v.Status != StatusAwaitingInput || v.Translated != "Hello" || !v.CanTranslate {
		t.Errorf("view = %+v", v)
	}
	if tr.last != [3]string{"こんにちは", "ja", "en"} {
		t.Errorf("translate args = %v", tr.last)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(views) != 2 || views[0].Status != StatusTranslating || views[1].Status != StatusAwaitingInput {
		t.Errorf("views = %+v", views)
	}
}

func TestTranslateAgainstLibreTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translatedText":"Hello"}`))
	}))
	defer srv.Close()

	c, eng := newController(t, translate.New(srv.URL+"/translate", ""))
	recognize(c, eng, "こんにちは")

	if err := c.OnTranslatePressed(context.Background()); err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if v.Translated != "Hello" || v.TranslationErr != "" || v.Status != StatusAwaitingInput {
		t.Errorf("view = %+v", v)
	}
	if c.Translations() != 1 {
		t.Errorf("translations = %d", c.Translations())
	}
}

func TestTranslateHTTPErrorKeepsScreenUsable(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"translatedText":"Hello"}`))
	}))
	defer srv.Close()

	c, eng := newController(t, translate.New(srv.URL+"/translate", ""))
	recognize(c, eng, "こんにちは")

	err := c.OnTranslatePressed(context.Background())
	if !errors.Is(err, translate.ErrTranslation) {
		t.Fatalf("err = %v, want ErrTranslation", err)
	}
	v := c.View()
	if v.TranslationErr != TranslationFailed || v.Status != StatusAwaitingInput || !v.CanTranslate {
		t.Errorf("view = %+v", v)
	}

	fail.Store(false)
	if err := c.OnTranslatePressed(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v := c.View(); v.Translated != "Hello" || v.TranslationErr != "" {
		t.Errorf("view after retry = %+v", v)
	}
}

func TestFailureKeepsPreviousTranslation(t *testing.T) {
	tr := &fakeTranslator{text: "Hello"}
	c, eng := newController(t, tr)
	recognize(c, eng, "こんにちは")
	c.OnTranslatePressed(context.Background())

	tr.err = errors.New("down")
	c.OnTranslatePressed(context.Background())
	v := c.View()
	if v.Translated != "Hello" || v.TranslationErr != TranslationFailed {
		t.Errorf("view = %+v", v)
	}
}

func TestFirstCandidateIsRecognized(t *testing.T) {
	c, eng := newController(t, &fakeTranslator{})
	c.OnStartStopPressed()
	c.OnStartStopPressed()
	eng.EmitResults("first", "second")
	if got := c.View().Recognized; got != "first" {
		t.Errorf("Recognized = %q", got)
	}
}

func TestPermissionAndRecognitionErrors(t *testing.T) {
	eng := speech.NewFake()
	eng.SetPermission(false)
	c := New(recognition.New(eng), &fakeTranslator{}, testConfig)
	defer c.Close()

	if c.View().HasPermission {
		t.Fatal("HasPermission should be false")
	}
	c.OnStartStopPressed()
	v := c.View()
	if v.RecognitionErr != recognition.ErrPermissionDenied.Error() || v.Status != StatusAwaitingInput {
		t.Errorf("view = %+v", v)
	}
}

func TestCloseStopsOnceAndSilences(t *testing.T) {
	c, eng := newController(t, &fakeTranslator{})
	calls := 0
	c.OnChange(func(View) { calls++ })

	c.OnStartStopPressed()
	stops := eng.Stops()
	c.Close()
	c.Close()

	if eng.Stops()-stops != 1 {
		t.Errorf("stops on close = %d, want 1", eng.Stops()-stops)
	}
	if eng.Attached() {
		t.Error("engine listener still attached")
	}
	n := calls
	eng.EmitResults("late")
	c.OnStartStopPressed()
	if calls != n {
		t.Error("view change after close")
	}
	if err := c.OnTranslatePressed(context.Background()); !errors.Is(err, ErrTranslateDisabled) {
		t.Errorf("translate after close = %v", err)
	}
}
