package audio

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
	// trailing silence is always paced at 16kHz
	fakeSilencePace = fakeFrameSize * time.Second / 16000
)

// LoadWAV reads a 16-bit mono WAV file and returns the PCM payload.
func LoadWAV(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < WAVHeaderSize || string(data[:4]) != "RIFF" {
		return nil, fmt.Errorf("%s: not a WAV file", path)
	}
	return data[WAVHeaderSize:], nil
}

// FakeContext hands out captures that replay fixed PCM. With realtime set
// the audio is paced at the capture sample rate.
type FakeContext struct {
	pcm      []byte
	realtime bool
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	var interval time.Duration
	if f.realtime && config.SampleRate > 0 {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(config.SampleRate)
	}
	return &FakeCapture{pcm: f.pcm, interval: interval}, nil
}

// FakeCapture replays its PCM once per Start, then feeds silence until Stop.
type FakeCapture struct {
	pcm      []byte
	interval time.Duration

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	starts   int
	stops    int
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCh != nil {
		return fmt.Errorf("fake capture already started")
	}
	f.starts++
	stop := make(chan struct{})
	done := make(chan struct{})
	f.stopCh, f.feedDone = stop, done

	go f.feed(stop, done)
	return nil
}

func (f *FakeCapture) feed(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	silence := make([]byte, chunkBytes)
	wait := f.interval
	if wait == 0 {
		wait = fakeSilencePace
	}

	pos := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		if cb := f.callback(); cb != nil {
			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
				pos = end
				if f.interval == 0 {
					continue
				}
			} else {
				cb(silence, fakeFrameSize)
			}
		}

		select {
		case <-stop:
			return
		case <-time.After(wait):
		}
	}
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stopCh, f.feedDone
	f.stopCh, f.feedDone = nil, nil
	if stop != nil {
		f.stops++
	}
	f.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (f *FakeCapture) Close() { f.Stop() }

// Counts reports how many times Start and Stop took effect.
func (f *FakeCapture) Counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}
