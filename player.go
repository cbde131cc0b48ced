// Package presto is a real-time music synthesis engine. A Piece schedules
// note events against a beat clock and renders audio through a dataflow graph
// of synthesis nodes; this package wires a Piece to the platform audio device.
package presto

import (
	"errors"
	"fmt"
	"sync"

	intaudio "github.com/prestolab/presto-go/internal/audio"
	intseq "github.com/prestolab/presto-go/internal/sequencer"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	sampleTap func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// Player drives a Piece through the audio device.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	sampleTap  func([]float32)
	audio      *intaudio.Player
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{
		sampleRate: sampleRate,
		sampleTap:  cfg.sampleTap,
	}, nil
}

// pieceSource adapts a Piece to the audio stream, interposing the sample tap.
type pieceSource struct {
	piece *intseq.Piece
	tap   func([]float32)
}

func (s *pieceSource) Process(dst []float32) {
	s.piece.Generate(dst, 2)
	if s.tap != nil {
		s.tap(dst)
	}
}

// Play starts rendering the piece to the audio device. A previous playback,
// if any, is stopped first. The piece must be two-channel and built for the
// player's sample rate.
func (p *Player) Play(piece *intseq.Piece) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if piece.Channels() != 2 {
		return fmt.Errorf("piece has %d channels, device playback needs 2", piece.Channels())
	}
	if piece.SampleRate() != p.sampleRate {
		return fmt.Errorf("piece rendered at %d Hz, player runs at %d Hz", piece.SampleRate(), p.sampleRate)
	}

	source := &pieceSource{piece: piece, tap: p.sampleTap}
	backend, err := intaudio.NewPlayer(p.sampleRate, piece.Quantum(), source)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}

// PlaybackPosition returns the current output position of the audio driver in
// frames, i.e. what the listener actually hears right now. Returns 0 if not
// playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	pos := a.Position()
	return int64(pos.Seconds() * float64(p.sampleRate))
}
