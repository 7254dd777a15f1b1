package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tsuyaku/audio"
	"tsuyaku/config"
	"tsuyaku/encoder"
	"tsuyaku/log"
	"tsuyaku/screen"
	"tsuyaku/transcriber"
	"tsuyaku/translate"
)

const testWaitTimeout = 30 * time.Second

// runTestMode drives the screen from stdin commands against a WAV file
// played through a fake microphone. With transcript set no provider is
// called.
func runTestMode(cfg config.Config, client *translate.Client, wavPath, transcript string) int {
	pcm, err := audio.LoadWAV(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	var tr transcriber.Transcriber
	if transcript != "" {
		tr = transcriber.NewFake([]string{transcript}, nil)
	} else if tr, err = transcriber.New(cfg.Recognition.Provider, cfg.ProviderKey()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	capture, err := audio.NewFakeContext(pcm, true).NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate, Channels: encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		return 1
	}

	a := &app{cfg: cfg, client: client}
	a.start(tr, capture)
	defer a.close()

	d := &testDriver{ctrl: a.ctrl, out: os.Stdout}
	if err := d.run(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type testDriver struct {
	ctrl *screen.Controller
	out  io.Writer
}

// run executes one command per line until QUIT or end of input.
func (d *testDriver) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" || strings.HasPrefix(cmd, "#") {
			continue
		}
		quit, err := d.exec(cmd)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

func (d *testDriver) exec(cmd string) (quit bool, err error) {
	log.Info("test command: " + cmd)
	switch {
	case cmd == "START" || cmd == "STOP":
		want := screen.StatusListening
		if cmd == "STOP" {
			want = screen.StatusAwaitingInput
		}
		if d.ctrl.Status() != want {
			d.ctrl.OnStartStopPressed()
		}
	case cmd == "WAIT":
		return false, d.waitSettled()
	case cmd == "TRANSLATE":
		if err := d.ctrl.OnTranslatePressed(context.Background()); err != nil {
			fmt.Fprintf(d.out, "translate error: %v\n", err)
		}
	case cmd == "PRINT":
		d.print()
	case cmd == "QUIT":
		return true, nil
	case strings.HasPrefix(cmd, "SLEEP "):
		ms, err := strconv.Atoi(strings.TrimSpace(cmd[6:]))
		if err != nil {
			return false, fmt.Errorf("bad SLEEP argument %q", cmd[6:])
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
	return false, nil
}

// waitSettled blocks until the last recording produced text or an error.
func (d *testDriver) waitSettled() error {
	deadline := time.Now().Add(testWaitTimeout)
	for time.Now().Before(deadline) {
		v := d.ctrl.View()
		if v.Status == screen.StatusAwaitingInput && (v.Recognized != "" || v.RecognitionErr != "") {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for recognition")
}

func (d *testDriver) print() {
	v := d.ctrl.View()
	fmt.Fprintf(d.out, "status: %s\n", v.Status)
	fmt.Fprintf(d.out, "recognized: %s\n", v.Recognized)
	fmt.Fprintf(d.out, "translated: %s\n", v.Translated)
	if v.RecognitionErr != "" {
		fmt.Fprintf(d.out, "recognition error: %s\n", v.RecognitionErr)
	}
	if v.TranslationErr != "" {
		fmt.Fprintf(d.out, "translation error: %s\n", v.TranslationErr)
	}
}
