package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tsuyaku/recognition"
	"tsuyaku/screen"
	"tsuyaku/speech"
)

type stubTranslator struct {
	text string
	err  error
}

func (s stubTranslator) Translate(context.Context, string, string, string) (string, error) {
	return s.text, s.err
}

type stubCues struct{ start, end, err int }

func (c *stubCues) PlayStart() { c.start++ }
func (c *stubCues) PlayEnd()   { c.end++ }
func (c *stubCues) PlayError() { c.err++ }

type stubClipboard struct{ got string }

func (c *stubClipboard) Copy(text string) error {
	c.got = text
	return nil
}

func newTestController(t *testing.T, tr screen.Translator) (*screen.Controller, *speech.Fake) {
	t.Helper()
	eng := speech.NewFake()
	ctrl := screen.New(recognition.New(eng), tr, screen.Config{Locale: "ja-JP", Source: "ja", Target: "en"})
	t.Cleanup(ctrl.Close)
	return ctrl, eng
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message back.
func press(t *testing.T, m tuiModel, k string) tuiModel {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(tuiModel)
	for cmd != nil {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				if c == nil {
					continue
				}
				next, _ = m.Update(c())
				m = next.(tuiModel)
			}
			return m
		}
		next, cmd = m.Update(msg)
		m = next.(tuiModel)
	}
	return m
}

func TestTUIPlaceholders(t *testing.T) {
	ctrl, _ := newTestController(t, stubTranslator{})
	m := newTUIModel(context.Background(), ctrl, &stubClipboard{}, &stubCues{}, "info")
	out := m.View()
	for _, want := range []string{placeholderRecognized, placeholderTranslated, "space", "translate"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTUIPermissionGate(t *testing.T) {
	eng := speech.NewFake()
	eng.SetPermission(false)
	ctrl := screen.New(recognition.New(eng), stubTranslator{}, screen.Config{Locale: "ja-JP"})
	defer ctrl.Close()

	m := newTUIModel(context.Background(), ctrl, &stubClipboard{}, &stubCues{}, "")
	out := m.View()
	if !strings.Contains(out, "microphone permission required") {
		t.Fatalf("view = %q", out)
	}
	if strings.Contains(out, placeholderRecognized) {
		t.Error("gated view should not show the recognition panel")
	}
	m = press(t, m, " ")
	if eng.Starts() != 0 {
		t.Error("space should be ignored without permission")
	}
}

func TestTUIListenAndTranslate(t *testing.T) {
	ctrl, eng := newTestController(t, stubTranslator{text: "Hello"})
	m := newTUIModel(context.Background(), ctrl, &stubClipboard{}, &stubCues{}, "")

	m = press(t, m, " ")
	if m.view.Status != screen.StatusListening || !strings.Contains(m.View(), listeningText) {
		t.Fatalf("expected listening view, status = %v", m.view.Status)
	}
	m = press(t, m, " ")
	eng.EmitResults("こんにちは")
	next, _ := m.Update(viewChangedMsg{})
	m = next.(tuiModel)
	if !strings.Contains(m.View(), "こんにちは") {
		t.Fatal("recognized text not rendered")
	}

	m = press(t, m, "t")
	if m.view.Translated != "Hello" || !strings.Contains(m.View(), "Hello") {
		t.Fatalf("translated = %q", m.view.Translated)
	}

	clip := &stubClipboard{}
	m.clip = clip
	m = press(t, m, "y")
	if clip.got != "Hello" || m.notice != "copied to clipboard" {
		t.Errorf("clipboard = %q notice = %q", clip.got, m.notice)
	}
}

func TestTUITranslateFailureShowsMessage(t *testing.T) {
	ctrl, eng := newTestController(t, stubTranslator{err: errors.New("down")})
	m := newTUIModel(context.Background(), ctrl, &stubClipboard{}, &stubCues{}, "")
	eng.EmitResults("こんにちは")
	next, _ := m.Update(viewChangedMsg{})
	m = next.(tuiModel)

	m = press(t, m, "t")
	if !strings.Contains(m.View(), screen.TranslationFailed) {
		t.Fatal("translation error not rendered")
	}
	if !m.view.CanTranslate {
		t.Error("translate should be enabled again after a failure")
	}
}

func TestTUITranslateIgnoredWhenDisabled(t *testing.T) {
	ctrl, _ := newTestController(t, stubTranslator{text: "x"})
	m := newTUIModel(context.Background(), ctrl, &stubClipboard{}, &stubCues{}, "")
	_, cmd := m.Update(key("t"))
	if cmd != nil {
		t.Error("translate key should do nothing without an utterance")
	}
}

func TestTUIQuit(t *testing.T) {
	ctrl, _ := newTestController(t, stubTranslator{})
	m := newTUIModel(context.Background(), ctrl, &stubClipboard{}, &stubCues{}, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestTUICues(t *testing.T) {
	ctrl, eng := newTestController(t, stubTranslator{})
	cues := &stubCues{}
	m := newTUIModel(context.Background(), ctrl, &stubClipboard{}, cues, "")

	m = press(t, m, " ")
	m = press(t, m, " ")
	if cues.start != 1 || cues.end != 1 {
		t.Fatalf("cues = %+v", cues)
	}

	m = press(t, m, " ")
	eng.EmitError("no speech detected")
	next, _ := m.Update(viewChangedMsg{})
	m = next.(tuiModel)
	if cues.err != 1 || cues.end != 1 {
		t.Errorf("cues = %+v", cues)
	}
}
