package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog       zerolog.Logger
	diagFile      *os.File
	translateFile *os.File
	logMu         sync.Mutex
	logReady      bool
	pid           int
	dir           string
)

type Metrics struct {
	DNSMs   float64
	TCPMs   float64
	TLSMs   float64
	TTFBMs  float64
	TotalMs float64
	// OverheadMs is the part of TotalMs not covered by a traced phase.
	OverheadMs float64
	Protocol   string
	ConnReused bool
	Status     int
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: TSUYAKU_LOG_PATH environment variable
	if envPath := os.Getenv("TSUYAKU_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	translatePath := filepath.Join(dir, "translate_log.txt")
	translateFile, err = os.OpenFile(translatePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if translateFile != nil {
		translateFile.Close()
		translateFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// RecognitionEvent records one speech engine callback. detail is omitted when empty.
func RecognitionEvent(event, detail string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().Str("event", event)
	if detail != "" {
		ev = ev.Str("detail", detail)
	}
	ev.Msg("recognition")
}

func TranscriptionMetrics(provider string, audioS float64, encodedKB float64, m Metrics) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("provider", provider).
		Bool("conn_reused", m.ConnReused).
		Int("status", m.Status).
		Float64("audio_s", audioS).
		Float64("encoded_kb", encodedKB).
		Str("proto", m.Protocol).
		Float64("dns_ms", m.DNSMs).
		Float64("tcp_ms", m.TCPMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Float64("overhead_ms", m.OverheadMs).
		Msg("transcription")
}

func TranslationMetrics(source, target string, chars int, m Metrics) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("source", source).
		Str("target", target).
		Int("chars", chars).
		Bool("conn_reused", m.ConnReused).
		Int("status", m.Status).
		Str("proto", m.Protocol).
		Float64("dns_ms", m.DNSMs).
		Float64("tcp_ms", m.TCPMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Float64("overhead_ms", m.OverheadMs).
		Msg("translation")
}

// TranslationText appends one source/target pair to translate_log.txt.
func TranslationText(source, target string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\t=>\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, source, target)
	translateFile.WriteString(line)
}

func SessionStart(sessionID, provider, endpoint string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Str("provider", provider).
		Str("endpoint", endpoint).
		Msg("session_start")
}

func SessionEnd(sessionID string, translations int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Int("translations", translations).
		Msg("session_end")
}
