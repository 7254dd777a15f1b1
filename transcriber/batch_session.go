package transcriber

import (
	"context"
	"fmt"
	"sync"

	"tsuyaku/encoder"
)

type transcribeFunc func(ctx context.Context, audio []byte, lang string) (*Result, error)

// batchSession encodes PCM to FLAC while recording and uploads it once on Close.
type batchSession struct {
	ctx        context.Context
	cfg        SessionConfig
	transcribe transcribeFunc
	enc        encoder.Encoder

	mu         sync.Mutex
	blocker    encoder.Blocker
	closed     bool
	blockChan  chan []int16
	encodeDone chan struct{}
	encodeErr  error
}

func newBatchSession(ctx context.Context, cfg SessionConfig, transcribe transcribeFunc) (*batchSession, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}

	bs := &batchSession{
		ctx:        ctx,
		cfg:        cfg,
		transcribe: transcribe,
		enc:        enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}

	go func() {
		defer close(bs.encodeDone)
		for block := range bs.blockChan {
			if err := bs.enc.EncodeBlock(block); err != nil && bs.encodeErr == nil {
				bs.encodeErr = err
			}
		}
	}()

	return bs, nil
}

func (bs *batchSession) Feed(pcm []byte) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.closed {
		return
	}
	for _, block := range bs.blocker.Push(pcm) {
		bs.blockChan <- block
	}
}

func (bs *batchSession) Close() (SessionResult, error) {
	bs.mu.Lock()
	if bs.closed {
		bs.mu.Unlock()
		return SessionResult{}, fmt.Errorf("session already closed")
	}
	bs.closed = true
	if tail := bs.blocker.Flush(); tail != nil {
		bs.blockChan <- tail
	}
	close(bs.blockChan)
	bs.mu.Unlock()

	<-bs.encodeDone
	if bs.encodeErr != nil {
		return SessionResult{}, bs.encodeErr
	}
	if err := bs.enc.Close(); err != nil {
		return SessionResult{}, err
	}

	audioData := bs.enc.Bytes()
	sr := SessionResult{
		AudioS:    float64(bs.enc.TotalFrames()) / float64(encoder.SampleRate),
		EncodedKB: float64(len(audioData)) / 1024,
	}

	result, err := bs.transcribe(bs.ctx, audioData, bs.cfg.Language)
	if err != nil {
		return sr, err
	}

	sr.Result = result
	sr.Candidates = nonEmpty(result.Candidates)
	sr.NoSpeech = len(sr.Candidates) == 0
	return sr, nil
}
