package speech

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tsuyaku/audio"
	"tsuyaku/encoder"
	"tsuyaku/log"
	"tsuyaku/transcriber"
)

const (
	// DefaultSpeechThreshold is the RMS level above which a tick counts as speech.
	DefaultSpeechThreshold = 0.02
	// recordings shorter than this are reported as no speech
	minFrames = encoder.SampleRate / 10
)

type RecorderConfig struct {
	// Capture is nil when no microphone is available.
	Capture     audio.CaptureDevice
	Transcriber transcriber.Transcriber
	// SilenceStop ends a recording after this much silence. 0 disables it.
	SilenceStop     time.Duration
	SpeechThreshold float64
}

// Recorder records from a capture device while listening and transcribes
// the recording when listening ends.
type Recorder struct {
	cfg    RecorderConfig
	ctx    context.Context
	cancel context.CancelFunc

	// emitMu orders listener events with the transitions they report.
	emitMu sync.Mutex

	mu        sync.Mutex
	listener  *Listener
	active    bool
	destroyed bool
	// gen identifies the current recording; results of older ones are dropped.
	gen      uint64
	sess     transcriber.Session
	sessDone context.CancelFunc
	tickStop chan struct{}

	frames  atomic.Int64
	voiced  atomic.Bool
	pending sync.WaitGroup
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.SpeechThreshold <= 0 {
		cfg.SpeechThreshold = DefaultSpeechThreshold
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Recorder{cfg: cfg, ctx: ctx, cancel: cancel}
}

func (r *Recorder) SetListener(l *Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

func (r *Recorder) currentListener() *Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener
}

func (r *Recorder) HasPermission() bool {
	return r.cfg.Capture != nil
}

func (r *Recorder) Start(lang string) error {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	switch {
	case r.destroyed:
		r.mu.Unlock()
		return ErrDestroyed
	case r.cfg.Capture == nil:
		r.mu.Unlock()
		return ErrNoDevice
	case r.active:
		r.mu.Unlock()
		return ErrBusy
	}

	ctx, cancel := context.WithCancel(r.ctx)
	sess, err := r.cfg.Transcriber.NewSession(ctx, transcriber.SessionConfig{
		Language: transcriber.BaseLanguage(lang),
	})
	if err != nil {
		cancel()
		r.mu.Unlock()
		return fmt.Errorf("open transcription session: %w", err)
	}

	r.frames.Store(0)
	r.voiced.Store(false)
	threshold := r.cfg.SpeechThreshold
	r.cfg.Capture.SetCallback(func(data []byte, frameCount uint32) {
		sess.Feed(data)
		r.frames.Add(int64(frameCount))
		if audio.RMS(data) > threshold {
			r.voiced.Store(true)
		}
	})
	if err := r.cfg.Capture.Start(); err != nil {
		r.cfg.Capture.ClearCallback()
		cancel()
		r.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}

	r.active = true
	r.gen++
	r.sess = sess
	r.sessDone = cancel
	if r.cfg.SilenceStop > 0 {
		r.tickStop = make(chan struct{})
		go r.watchSilence(r.tickStop, r.gen)
	}
	l := r.listener
	r.mu.Unlock()

	log.RecognitionEvent("start", fmt.Sprintf("lang=%s device=%s", lang, r.cfg.Capture.DeviceName()))
	l.start()
	return nil
}

func (r *Recorder) Stop() error {
	return r.stop(0)
}

// stop ends recording gen, or whichever recording is active when gen is 0.
func (r *Recorder) stop(gen uint64) error {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	rec, err := r.halt(gen)
	if err != nil {
		return err
	}
	log.RecognitionEvent("end", "")
	r.currentListener().end()

	r.pending.Add(1)
	go r.finish(rec)
	return nil
}

// recording is a halted recording awaiting its transcription.
type recording struct {
	gen    uint64
	sess   transcriber.Session
	done   context.CancelFunc
	frames int64
}

// halt ends capture and hands back the open session.
func (r *Recorder) halt(gen uint64) (recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || (gen != 0 && gen != r.gen) {
		return recording{}, ErrNotListening
	}
	r.active = false
	if r.tickStop != nil {
		close(r.tickStop)
		r.tickStop = nil
	}
	r.cfg.Capture.Stop()
	r.cfg.Capture.ClearCallback()

	rec := recording{gen: r.gen, sess: r.sess, done: r.sessDone, frames: r.frames.Load()}
	r.sess, r.sessDone = nil, nil
	return rec, nil
}

func (r *Recorder) finish(rec recording) {
	defer r.pending.Done()
	defer rec.done()

	if rec.frames < minFrames {
		rec.done()
		rec.sess.Close()
		r.report(rec.gen, nil, NoSpeechMessage)
		return
	}

	res, err := rec.sess.Close()
	if r.ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Errorf("transcription failed: %v", err)
		r.report(rec.gen, nil, "transcription failed")
		return
	}
	if res.Result != nil {
		log.TranscriptionMetrics(r.cfg.Transcriber.Name(), res.AudioS, res.EncodedKB, res.Result.Metrics.LogMetrics(res.Result.Status))
	}
	if res.NoSpeech || len(res.Candidates) == 0 {
		r.report(rec.gen, nil, NoSpeechMessage)
		return
	}
	r.report(rec.gen, res.Candidates, "")
}

// report delivers the outcome of recording gen unless a newer recording
// has started since.
func (r *Recorder) report(gen uint64, candidates []string, errMsg string) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	l, current := r.listener, gen == r.gen
	r.mu.Unlock()
	if !current {
		log.RecognitionEvent("dropped", fmt.Sprintf("stale result of recording %d", gen))
		return
	}
	if errMsg != "" {
		log.RecognitionEvent("error", errMsg)
		l.fail(errMsg)
		return
	}
	log.RecognitionEvent("results", fmt.Sprintf("candidates=%d", len(candidates)))
	l.results(candidates)
}

func (r *Recorder) watchSilence(stop <-chan struct{}, gen uint64) {
	mon := newSilenceMonitor(r.cfg.SilenceStop)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		switch mon.tick(r.voiced.Swap(false)) {
		case silenceWarn:
			log.RecognitionEvent("silence", "no voice detected")
		case silenceWarnClear:
			log.RecognitionEvent("silence", "voice resumed")
		case silenceAutoStop:
			log.RecognitionEvent("silence", "auto stop")
			r.stop(gen)
			return
		}
	}
}

// Destroy stops any recording without emitting events, abandons pending
// transcriptions and releases the capture device.
func (r *Recorder) Destroy() error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil
	}
	r.destroyed = true
	r.listener = nil
	r.mu.Unlock()

	if rec, err := r.halt(0); err == nil {
		rec.done()
		rec.frames = 0
		r.pending.Add(1)
		go r.finish(rec)
	}
	r.cancel()
	r.pending.Wait()
	if r.cfg.Capture != nil {
		r.cfg.Capture.Close()
	}
	return nil
}
