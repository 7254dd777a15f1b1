// Package beep plays short audio cues when listening starts, ends or fails.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

const sampleRate = 44100

type tone struct {
	freq     float64
	duration float64 // seconds
	volume   float64
	decay    float64
}

var (
	startTone = tone{freq: 1200, duration: 0.08, volume: 0.5, decay: 60}
	endTone   = tone{freq: 900, duration: 0.1, volume: 0.5, decay: 40}
	errorTone = tone{freq: 350, duration: 0.08, volume: 0.6, decay: 30}
	errorGap  = 0.05
)

var (
	disabled atomic.Bool
	initOnce sync.Once

	startSamples []int16
	endSamples   []int16
	errorSamples []int16
)

func Disable() { disabled.Store(true) }

// synth renders a decaying sine as mono PCM16.
func synth(t tone) []int16 {
	n := int(sampleRate * t.duration)
	samples := make([]int16, n)
	for i := range n {
		x := float64(i) / sampleRate
		envelope := math.Exp(-x * t.decay)
		samples[i] = int16(math.Sin(2*math.Pi*t.freq*x) * 32767 * t.volume * envelope)
	}
	return samples
}

func doubleBeep(t tone, gap float64) []int16 {
	b := synth(t)
	out := make([]int16, 0, 2*len(b)+int(sampleRate*gap))
	out = append(out, b...)
	out = append(out, make([]int16, int(sampleRate*gap))...)
	return append(out, b...)
}

func setup() {
	startSamples = synth(startTone)
	endSamples = synth(endTone)
	errorSamples = doubleBeep(errorTone, errorGap)
	initPlayer()
}

func cue(samples *[]int16) {
	if disabled.Load() {
		return
	}
	initOnce.Do(setup)
	go play(*samples)
}

func PlayStart() { cue(&startSamples) }
func PlayEnd()   { cue(&endSamples) }
func PlayError() { cue(&errorSamples) }
