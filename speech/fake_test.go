package speech

import (
	"errors"
	"testing"
)

func TestFakeAutoEvents(t *testing.T) {
	f := NewFake()
	var events []string
	f.SetListener(&Listener{
		OnStart: func() { events = append(events, "start") },
		OnEnd:   func() { events = append(events, "end") },
	})

	if err := f.Start("ja-JP"); err != nil {
		t.Fatal(err)
	}
	if err := f.Start("ja-JP"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start = %v", err)
	}
	if err := f.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := f.Stop(); !errors.Is(err, ErrNotListening) {
		t.Errorf("second Stop = %v", err)
	}
	if len(events) != 2 || events[0] != "start" || events[1] != "end" {
		t.Errorf("events = %v", events)
	}
	if f.Starts() != 2 || f.Stops() != 2 || f.LastLanguage() != "ja-JP" {
		t.Errorf("counters = %d/%d %q", f.Starts(), f.Stops(), f.LastLanguage())
	}
}

func TestFakeDestroyDetaches(t *testing.T) {
	f := NewFake()
	called := false
	f.SetListener(&Listener{OnResults: func([]string) { called = true }})
	f.Destroy()
	f.EmitResults("x")
	if called || f.Attached() || f.Destroys() != 1 {
		t.Errorf("called=%v attached=%v destroys=%d", called, f.Attached(), f.Destroys())
	}
}
