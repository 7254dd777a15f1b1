// Package doctor runs interactive end-to-end checks of the microphone,
// the transcription provider, the translation endpoint and the clipboard.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"tsuyaku/audio"
	"tsuyaku/clipboard"
	"tsuyaku/config"
	"tsuyaku/encoder"
	"tsuyaku/shutdown"
	"tsuyaku/transcriber"
	"tsuyaku/translate"
)

const (
	recordFor    = 3 * time.Second
	checkTimeout = 30 * time.Second
	minSpeechRMS = 0.01
	sampleText   = "こんにちは"
)

// Translator is the part of translate.Client the checks use.
type Translator interface {
	Languages(ctx context.Context) ([]translate.Language, error)
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type checker struct {
	cfg  config.Config
	in   *bufio.Reader
	out  io.Writer
	tr   Translator
	clip clipboard.Writer
	read func() (string, error)
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg config.Config, tr Translator) int {
	resetTerminal()
	setupInterruptHandler()

	c := &checker{
		cfg:  cfg,
		in:   bufio.NewReader(os.Stdin),
		out:  os.Stdout,
		tr:   tr,
		clip: clipboard.System{},
		read: clipboard.Read,
	}
	return c.run()
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}

func (c *checker) run() int {
	fmt.Fprintln(c.out, "tsuyaku doctor - interactive system diagnostics")
	fmt.Fprintln(c.out, "===============================================")

	allPass := c.checkTranslation()
	if !c.checkMicAndTranscription() {
		allPass = false
	}
	if !c.checkClipboard() {
		allPass = false
	}

	fmt.Fprintln(c.out)
	if allPass {
		fmt.Fprintln(c.out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(c.out, "Some checks failed. See details above.")
	return 1
}

func (c *checker) pass(format string, args ...any) bool {
	fmt.Fprintf(c.out, "  PASS: "+format+"\n", args...)
	return true
}

func (c *checker) fail(format string, args ...any) bool {
	fmt.Fprintf(c.out, "  FAIL: "+format+"\n", args...)
	return false
}

func (c *checker) checkTranslation() bool {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "[1/3] Translation endpoint (%s)\n", c.cfg.Translation.URL)

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	langs, err := c.tr.Languages(ctx)
	if err != nil {
		return c.fail("language list: %v", err)
	}
	if !supportsPair(langs, c.cfg.Translation.Source, c.cfg.Translation.Target) {
		return c.fail("endpoint does not offer %s -> %s", c.cfg.Translation.Source, c.cfg.Translation.Target)
	}

	text, err := c.tr.Translate(ctx, sampleText, c.cfg.Translation.Source, c.cfg.Translation.Target)
	if err != nil {
		return c.fail("translate: %v", err)
	}
	return c.pass("%q -> %q", sampleText, text)
}

func supportsPair(langs []translate.Language, source, target string) bool {
	for _, l := range langs {
		if l.Code != source {
			continue
		}
		for _, t := range l.Targets {
			if t == target {
				return true
			}
		}
	}
	return false
}

func (c *checker) checkMicAndTranscription() bool {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "[2/3] Microphone and transcription")

	tr, err := transcriber.New(c.cfg.Recognition.Provider, c.cfg.ProviderKey())
	if err != nil {
		return c.fail("%v", err)
	}

	actx, err := audio.NewContext()
	if err != nil {
		return c.fail("cannot connect to audio: %v", err)
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	if c.cfg.Recognition.Device != "" {
		if device, err = audio.FindDevice(actx, c.cfg.Recognition.Device); err != nil || device == nil {
			return c.fail("device %q not found", c.cfg.Recognition.Device)
		}
	}

	fmt.Fprintf(c.out, "Press Enter and say something in %s for %s...", c.cfg.Recognition.Locale, recordFor)
	c.in.ReadString('\n')

	pcm, err := c.record(actx, device)
	if err != nil {
		return c.fail("recording error: %v", err)
	}
	if len(pcm) == 0 {
		return c.fail("no audio captured")
	}
	if level := audio.RMS(pcm); level < minSpeechRMS {
		fmt.Fprintf(c.out, "  Warning: input level is very low (%.4f)\n", level)
	}
	fmt.Fprintf(c.out, "  Recorded %.1f KB, transcribing with %s...\n", float64(len(pcm))/1024, tr.Name())

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	sess, err := tr.NewSession(ctx, transcriber.SessionConfig{Language: transcriber.BaseLanguage(c.cfg.Recognition.Locale)})
	if err != nil {
		return c.fail("session error: %v", err)
	}
	sess.Feed(pcm)
	result, err := sess.Close()
	if err != nil {
		return c.fail("transcription error: %v", err)
	}

	text := result.Text()
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Fprintf(c.out, "\n  Recognized: %s\n\n", text)
	if c.confirm("Is this correct?") {
		return c.pass("transcription verified by user")
	}
	return c.fail("transcription not confirmed")
}

func (c *checker) record(actx audio.Context, device *audio.DeviceInfo) ([]byte, error) {
	capture, err := actx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}
	defer capture.Close()

	var mu sync.Mutex
	var pcm []byte
	capture.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		pcm = append(pcm, data...)
		mu.Unlock()
	})
	if err := capture.Start(); err != nil {
		return nil, err
	}

	fmt.Fprint(c.out, "  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	deadline := time.After(recordFor)
loop:
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(c.out, ".")
		case <-deadline:
			break loop
		}
	}
	ticker.Stop()
	capture.Stop()
	capture.ClearCallback()
	fmt.Fprintln(c.out, " done")

	mu.Lock()
	defer mu.Unlock()
	return pcm, nil
}

func (c *checker) checkClipboard() bool {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "[3/3] Clipboard")

	const probe = "tsuyaku-doctor-test"
	if err := c.clip.Copy(probe); err != nil {
		return c.fail("clipboard copy failed: %v", err)
	}
	got, err := c.read()
	if err != nil {
		return c.fail("clipboard read failed: %v", err)
	}
	if got != probe {
		return c.fail("clipboard returned %q, want %q", got, probe)
	}
	return c.pass("clipboard round trip")
}

func (c *checker) confirm(question string) bool {
	resetTerminal()
	fmt.Fprintf(c.out, "%s [y/n]: ", question)
	answer, _ := c.in.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
