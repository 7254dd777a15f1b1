package encoder

import (
	"encoding/binary"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	EncodeTime() time.Duration
}

// Blocker turns little-endian PCM16 byte chunks into fixed-size sample blocks.
type Blocker struct {
	pending []int16
}

// Push appends pcm and returns every complete block now available.
func (b *Blocker) Push(pcm []byte) [][]int16 {
	for i := 0; i+1 < len(pcm); i += 2 {
		b.pending = append(b.pending, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	var blocks [][]int16
	for len(b.pending) >= BlockSize {
		block := make([]int16, BlockSize)
		copy(block, b.pending[:BlockSize])
		b.pending = b.pending[BlockSize:]
		blocks = append(blocks, block)
	}
	return blocks
}

// Flush returns the trailing partial block, or nil.
func (b *Blocker) Flush() []int16 {
	if len(b.pending) == 0 {
		return nil
	}
	partial := make([]int16, len(b.pending))
	copy(partial, b.pending)
	b.pending = b.pending[:0]
	return partial
}
