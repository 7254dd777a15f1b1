package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tsuyaku/beep"
	"tsuyaku/clipboard"
	"tsuyaku/log"
	"tsuyaku/screen"
	"tsuyaku/shutdown"
)

// TUI message types
type viewChangedMsg struct{}
type translateDoneMsg struct{ err error }
type copyDoneMsg struct{ err error }

const (
	placeholderRecognized = "no speech recognized yet"
	placeholderTranslated = "translation will appear here"
	listeningText         = "listening..."
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	listeningStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("33"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	panelStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// cuePlayer sounds listening transitions.
type cuePlayer interface {
	PlayStart()
	PlayEnd()
	PlayError()
}

type beepCues struct{}

func (beepCues) PlayStart() { beep.PlayStart() }
func (beepCues) PlayEnd()   { beep.PlayEnd() }
func (beepCues) PlayError() { beep.PlayError() }

type tuiModel struct {
	ctx     context.Context
	ctrl    *screen.Controller
	clip    clipboard.Writer
	cues    cuePlayer
	view    screen.View
	spinner spinner.Model
	info    string
	notice  string
	width   int
}

func newTUIModel(ctx context.Context, ctrl *screen.Controller, clip clipboard.Writer, cues cuePlayer, info string) tuiModel {
	return tuiModel{
		ctx:  ctx,
		ctrl: ctrl,
		clip: clip,
		cues: cues,
		view: ctrl.View(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("33"))),
		),
		info: info,
	}
}

func runTUI(a *app) error {
	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	info := fmt.Sprintf("%s → %s | %s | mic: %s", a.cfg.Recognition.Locale, a.cfg.Translation.Target, a.provider, a.device)
	p := tea.NewProgram(newTUIModel(ctx, a.ctrl, clipboard.System{}, beepCues{}, info), tea.WithAltScreen(), tea.WithContext(ctx))
	a.ctrl.OnChange(func(screen.View) { go p.Send(viewChangedMsg{}) })

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) toggle() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.OnStartStopPressed()
		return viewChangedMsg{}
	}
}

func (m tuiModel) translate() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return translateDoneMsg{err: ctrl.OnTranslatePressed(ctx)}
	}
}

func (m tuiModel) copyTranslation() tea.Cmd {
	clip, text := m.clip, m.view.Translated
	return func() tea.Msg {
		return copyDoneMsg{err: clip.Copy(text)}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ", "enter":
			if !m.view.HasPermission || m.view.Status == screen.StatusTranslating {
				return m, nil
			}
			m.notice = ""
			return m, m.toggle()
		case "t":
			if !m.view.CanTranslate {
				return m, nil
			}
			m.notice = ""
			return m, tea.Batch(m.translate(), m.spinner.Tick)
		case "y":
			if m.view.Translated == "" {
				return m, nil
			}
			return m, m.copyTranslation()
		}

	case viewChangedMsg:
		prev := m.view
		m.view = m.ctrl.View()
		m.playCues(prev)
		if m.view.Status == screen.StatusTranslating && prev.Status != screen.StatusTranslating {
			return m, m.spinner.Tick
		}

	case translateDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, screen.ErrTranslateDisabled) {
			log.Warnf("translate: %v", msg.err)
		}
		m.view = m.ctrl.View()

	case copyDoneMsg:
		if msg.err != nil {
			log.Warnf("clipboard: %v", msg.err)
			m.notice = "copy failed"
		} else {
			m.notice = "copied to clipboard"
		}

	case spinner.TickMsg:
		if m.view.Status != screen.StatusTranslating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m tuiModel) playCues(prev screen.View) {
	wasListening := prev.Status == screen.StatusListening
	listening := m.view.Status == screen.StatusListening
	switch {
	case m.view.RecognitionErr != "" && m.view.RecognitionErr != prev.RecognitionErr:
		m.cues.PlayError()
	case listening && !wasListening:
		m.cues.PlayStart()
	case wasListening && !listening:
		m.cues.PlayEnd()
	}
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tsuyaku") + "  " + infoStyle.Render(m.info) + "\n\n")

	if !m.view.HasPermission {
		b.WriteString(errorStyle.Render("microphone permission required") + "\n\n")
		b.WriteString(keyStyle.Render("q") + dimStyle.Render(" quit"))
		return b.String()
	}

	width := max(m.width-2, 20)
	panel := panelStyle.Width(width - 2)

	var rec strings.Builder
	rec.WriteString(labelStyle.Render("Recognized") + "\n")
	switch {
	case m.view.Status == screen.StatusListening:
		rec.WriteString(listeningStyle.Render(listeningText))
	case m.view.Recognized != "":
		rec.WriteString(textStyle.Render(m.view.Recognized))
	default:
		rec.WriteString(dimStyle.Render(placeholderRecognized))
	}
	if m.view.RecognitionErr != "" {
		rec.WriteString("\n" + errorStyle.Render(m.view.RecognitionErr))
	}
	b.WriteString(panel.Render(rec.String()) + "\n")

	b.WriteString(m.helpLine() + "\n")

	var out strings.Builder
	out.WriteString(labelStyle.Render("Translation") + "\n")
	switch {
	case m.view.Status == screen.StatusTranslating:
		out.WriteString(m.spinner.View() + dimStyle.Render(" translating"))
	case m.view.Translated != "":
		out.WriteString(textStyle.Render(m.view.Translated))
	default:
		out.WriteString(dimStyle.Render(placeholderTranslated))
	}
	if m.view.TranslationErr != "" {
		out.WriteString("\n" + errorStyle.Render(m.view.TranslationErr))
	}
	if m.notice != "" {
		out.WriteString("\n" + noticeStyle.Render(m.notice))
	}
	b.WriteString(panel.Render(out.String()) + "\n")
	b.WriteString(dimStyle.Render("tsuyaku " + version))
	return b.String()
}

func (m tuiModel) helpLine() string {
	action := "start"
	if m.view.Status == screen.StatusListening {
		action = "stop"
	}
	parts := []string{keyStyle.Render("space") + dimStyle.Render(" "+action)}

	translateKey := keyStyle
	if !m.view.CanTranslate {
		translateKey = dimStyle
	}
	parts = append(parts, translateKey.Render("t")+dimStyle.Render(" translate"))
	if m.view.Translated != "" {
		parts = append(parts, keyStyle.Render("y")+dimStyle.Render(" copy"))
	}
	parts = append(parts, keyStyle.Render("q")+dimStyle.Render(" quit"))
	return " " + strings.Join(parts, dimStyle.Render("  ·  "))
}
