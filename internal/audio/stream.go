// Package audio adapts the synthesis engine to the platform audio sink. The
// sink pulls arbitrary byte counts; the engine only accepts quantum-multiple
// frame requests, so the stream reader generates in whole quanta and carries
// the remainder across reads.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills dst with interleaved stereo float32 samples. len(dst)
// is always 2 * a multiple of the quantum the reader was built with.
type SampleSource interface {
	Process(dst []float32)
}

type StreamReader struct {
	mu      sync.Mutex
	source  SampleSource
	quantum int
	gen     []float32 // staging buffer, whole quanta
	rem     []float32 // generated samples not yet handed to the driver
}

func NewStreamReader(source SampleSource, quantum int) *StreamReader {
	return &StreamReader{source: source, quantum: quantum}
}

// Read renders float32 little-endian stereo frames. The driver's request
// size need not relate to the quantum.
func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	off := 0
	for off < need {
		if len(r.rem) == 0 {
			wantFrames := (need - off) / 2
			genFrames := ((wantFrames + r.quantum - 1) / r.quantum) * r.quantum
			if cap(r.gen) < genFrames*2 {
				r.gen = make([]float32, genFrames*2)
			}
			r.rem = r.gen[:genFrames*2]
			r.source.Process(r.rem)
		}
		for off < need && len(r.rem) > 0 {
			u := math.Float32bits(r.rem[0])
			binary.LittleEndian.PutUint32(p[off*4:], u)
			r.rem = r.rem[1:]
			off++
		}
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer builds a playing-capable sink around the source. quantum is the
// engine's processing granule in frames.
func NewPlayer(sampleRate, quantum int, source SampleSource) (*Player, error) {
	if quantum <= 0 {
		return nil, fmt.Errorf("quantum must be positive, got %d", quantum)
	}
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source, quantum)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position of the audio driver (what
// the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
