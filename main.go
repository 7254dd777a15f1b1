package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"tsuyaku/audio"
	"tsuyaku/beep"
	"tsuyaku/config"
	"tsuyaku/doctor"
	"tsuyaku/encoder"
	"tsuyaku/log"
	"tsuyaku/recognition"
	"tsuyaku/screen"
	"tsuyaku/shutdown"
	"tsuyaku/speech"
	"tsuyaku/transcriber"
	"tsuyaku/translate"
)

var version = "dev"

// app holds what one run wires together.
type app struct {
	cfg       config.Config
	sessionID string
	provider  string
	device    string
	ctrl      *screen.Controller
	client    *translate.Client

	closeOnce sync.Once
	cleanup   []func()
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.ctrl != nil {
			a.ctrl.Close()
			log.SessionEnd(a.sessionID, a.ctrl.Translations())
		}
		for i := len(a.cleanup) - 1; i >= 0; i-- {
			a.cleanup[i]()
		}
		log.Close()
	})
}

func main() {
	configFlag := flag.String("config", os.Getenv("TSUYAKU_CONFIG"), "YAML config file (env TSUYAKU_CONFIG)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	transcriptFlag := flag.String("transcript", "", "Test mode only: recognize this text instead of calling a provider")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	languagesFlag := flag.Bool("languages", false, "Print the languages offered by the translation endpoint and exit")
	beepFlag := flag.Bool("beep", true, "Play audio cues when listening starts and ends")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., localhost:6060)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("tsuyaku %s\n", version)
		return
	}
	if !*beepFlag {
		beep.Disable()
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *deviceFlag != "" {
		cfg.Recognition.Device = *deviceFlag
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	client := translate.New(cfg.Translation.URL, cfg.Translation.APIKey)

	if *languagesFlag {
		os.Exit(printLanguages(client))
	}
	if *doctorFlag {
		code := doctor.Run(cfg, client)
		log.Close()
		os.Exit(code)
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: tsuyaku -test [-transcript text] <wav-file>")
			os.Exit(1)
		}
		os.Exit(runTestMode(cfg, client, args[0], *transcriptFlag))
	}

	if *setupFlag && cfg.Recognition.Device == "" {
		ctx, err := audio.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
			os.Exit(1)
		}
		dev, err := audio.SelectDevice(ctx)
		ctx.Close()
		switch {
		case errors.Is(err, audio.ErrSelectionAborted):
			os.Exit(0)
		case err != nil:
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		case dev != nil:
			cfg.Recognition.Device = dev.Name
		}
	}

	tr, err := transcriber.New(cfg.Recognition.Provider, cfg.ProviderKey())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, client: client}
	a.start(tr, openCapture(cfg.Recognition.Device, &a.cleanup))
	defer a.close()

	if err := runTUI(a); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.close()
		os.Exit(1)
	}
}

// openCapture opens the microphone. It returns nil when none is usable,
// which the screen shows as missing permission.
func openCapture(deviceName string, cleanup *[]func()) audio.CaptureDevice {
	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		return nil
	}
	*cleanup = append(*cleanup, ctx.Close)

	var dev *audio.DeviceInfo
	if deviceName != "" {
		dev, err = audio.FindDevice(ctx, deviceName)
		if err != nil {
			log.Warnf("listing devices: %v", err)
		}
		if dev == nil {
			log.Warnf("device %q not found, using system default", deviceName)
		}
	}

	capture, err := ctx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		return nil
	}
	return capture
}

// start builds the engine, session and controller for one run.
func (a *app) start(tr transcriber.Transcriber, capture audio.CaptureDevice) {
	a.sessionID = uuid.NewString()
	a.provider = tr.Name()
	a.device = "none"
	if capture != nil {
		a.device = capture.DeviceName()
	}

	engine := speech.NewRecorder(speech.RecorderConfig{
		Capture:     capture,
		Transcriber: tr,
		SilenceStop: time.Duration(a.cfg.Recognition.SilenceStopMS) * time.Millisecond,
	})
	a.ctrl = screen.New(recognition.New(engine), a.client, screen.Config{
		Locale: a.cfg.Recognition.Locale,
		Source: a.cfg.Translation.Source,
		Target: a.cfg.Translation.Target,
	})

	log.SessionStart(a.sessionID, a.provider, a.client.URL())
	go a.client.Warm()
}

func printLanguages(client *translate.Client) int {
	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	langs, err := client.Languages(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, l := range langs {
		fmt.Printf("%-6s %s\n", l.Code, l.Name)
	}
	log.Close()
	return 0
}
