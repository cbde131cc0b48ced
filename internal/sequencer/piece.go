// Package sequencer owns the playback clock: it converts beats to seconds,
// dispatches due track events, and drives the synthesis graph from the audio
// sink's periodic buffer requests.
package sequencer

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/prestolab/presto-go/internal/music"
	"github.com/prestolab/presto-go/internal/score"
)

// Synth is the sequencer's view of a synthesis graph. It renders one quantum
// per Render call and exposes the aggregated per-channel buffers.
type Synth interface {
	Quantum() int
	Channels() int
	Render(realTime float64)
	Channel(ch int) []float32
	Broadcast(ev score.Event, realTime float64)
}

type Options struct {
	Tempo       float64 // beats per minute, default 120
	BeatsPerBar int     // default 4
	NoteValue   int     // note value per beat, default 4
	LoopTime    float64 // loop-back boundary in seconds, 0 = no loop
	EventLog    io.Writer
}

// noteGap shortens every authored note slightly so consecutive notes do not
// merge into an unintended legato.
const noteGap = 0.99

// loopEpsilon pushes the boundary flush window just past the loop point so an
// event scheduled exactly at loopTime is still delivered before the wrap.
const loopEpsilon = 1e-9

type commandKind int

const cmdStop commandKind = iota

type command struct {
	kind commandKind
}

// Piece owns the tracks, tempo mapping, and clock state of one score, plus
// the adapter the audio sink calls. The clock triple is: curTime, the
// authoritative looping playback position; prevTime, the position as of the
// last dispatch; realTime, the wall-clock-equivalent time that keeps rising
// across loop wraps.
//
// All clock state is confined to the audio context. Control contexts reach it
// only through the atomic position (SetTime/Position) and the command queue
// (Stop), both observed at the next quantum boundary.
type Piece struct {
	synth      Synth
	sampleRate float64

	tempo       float64
	beatsPerBar int
	noteValue   int
	loopTime    float64

	tracks   []*score.Track
	eventLog io.Writer

	prevTime float64
	curTime  float64
	realTime float64

	playPos atomic.Uint64 // float64 bits of the published position
	cmds    chan command
}

func New(synth Synth, sampleRate int) *Piece {
	return NewWithOptions(synth, sampleRate, Options{})
}

func NewWithOptions(synth Synth, sampleRate int, opts Options) *Piece {
	if opts.Tempo <= 0 {
		opts.Tempo = 120
	}
	if opts.BeatsPerBar <= 0 {
		opts.BeatsPerBar = 4
	}
	if opts.NoteValue <= 0 {
		opts.NoteValue = 4
	}
	return &Piece{
		synth:       synth,
		sampleRate:  float64(sampleRate),
		tempo:       opts.Tempo,
		beatsPerBar: opts.BeatsPerBar,
		noteValue:   opts.NoteValue,
		loopTime:    opts.LoopTime,
		eventLog:    opts.EventLog,
		cmds:        make(chan command, 8),
	}
}

func (p *Piece) Tempo() float64    { return p.tempo }
func (p *Piece) Quantum() int      { return p.synth.Quantum() }
func (p *Piece) Channels() int     { return p.synth.Channels() }
func (p *Piece) SampleRate() int   { return int(p.sampleRate) }
func (p *Piece) LoopTime() float64 { return p.loopTime }

// SetTempo changes the tempo. Call before playback; already-scheduled events
// keep the times they were authored with.
func (p *Piece) SetTempo(bpm float64) {
	if bpm > 0 {
		p.tempo = bpm
	}
}

// SetTimeSignature sets beats per bar and the note value per beat.
func (p *Piece) SetTimeSignature(beatsPerBar, noteValue int) {
	if beatsPerBar > 0 {
		p.beatsPerBar = beatsPerBar
	}
	if noteValue > 0 {
		p.noteValue = noteValue
	}
}

// SetLoop sets the loop-back boundary in seconds; 0 disables looping. Call
// before playback.
func (p *Piece) SetLoop(seconds float64) { p.loopTime = seconds }

// BeatTime converts a beat number to seconds at the current tempo.
func (p *Piece) BeatTime(beat float64) float64 {
	return 60 / p.tempo * beat
}

// NoteLength returns the duration in seconds of multiplier bars' worth of
// the beat note value, shortened by the standard gap.
func (p *Piece) NoteLength(multiplier float64) float64 {
	return multiplier * (60 / p.tempo) * float64(p.beatsPerBar) / float64(p.noteValue) * noteGap
}

// AddTrack attaches a track to the piece.
func (p *Piece) AddTrack(t *score.Track) {
	if p.eventLog != nil {
		t.SetObserver(p.logEvent)
	}
	p.tracks = append(p.tracks, t)
}

// NewTrack creates a track bound to the given sink and attaches it.
func (p *Piece) NewTrack(target score.EventSink) *score.Track {
	t := score.NewTrack(target)
	p.AddTrack(t)
	return t
}

// Tracks returns the attached tracks.
func (p *Piece) Tracks() []*score.Track { return p.tracks }

// MakeNote schedules a note: a NoteOn at the given beat and the matching
// NoteOff a NoteLength(length) later. The canonical way scores are authored.
func (p *Piece) MakeNote(t *score.Track, beat float64, note *music.Note, length, velocity float64) {
	on := p.BeatTime(beat)
	t.Add(score.NewNoteOn(on, note, velocity))
	t.Add(score.NewNoteOff(on+p.NoteLength(length), note))
}

// MakeNoteNamed is MakeNote for a textual note name such as "C#4".
func (p *Piece) MakeNoteNamed(t *score.Track, beat float64, name string, length, velocity float64) error {
	note, err := music.Parse(name)
	if err != nil {
		return err
	}
	p.MakeNote(t, beat, note, length, velocity)
	return nil
}

// Dispatch delivers, through every track, the events due in
// [prevTime, curTime), then advances prevTime. curTime must be
// non-decreasing between calls except across a loop wrap.
func (p *Piece) Dispatch(curTime, realTime float64) {
	for _, t := range p.tracks {
		t.Dispatch(p.prevTime, curTime, realTime)
	}
	p.prevTime = curTime
}

// SetTime seeks to a playback position. Safe to call from any goroutine; the
// audio path observes it at the next quantum boundary. Seeking never replays
// the skipped window.
func (p *Piece) SetTime(t float64) { p.playPos.Store(math.Float64bits(t)) }

// Position returns the externally observable playback position. +Inf after
// Stop, until the next SetTime.
func (p *Piece) Position() float64 { return math.Float64frombits(p.playPos.Load()) }

// Stop requests silence: at the next quantum boundary an AllNotesOff is
// broadcast to every node and the clock is parked past all finite event
// times, so every later dispatch window is empty until SetTime.
func (p *Piece) Stop() {
	select {
	case p.cmds <- command{kind: cmdStop}:
	default:
		// A stop is already queued.
	}
}

// Generate is the buffer-generation entry point the audio sink calls: it
// fills dst with len(dst)/numChans interleaved frames. The frame count must
// be a multiple of the synth quantum and numChans must match the graph; a
// mismatch is a caller bug and panics with ErrContractViolation.
func (p *Piece) Generate(dst []float32, numChans int) {
	quantum := p.synth.Quantum()
	if numChans <= 0 || len(dst)%numChans != 0 {
		panic(fmt.Errorf("%w: %d samples do not split into %d channels", score.ErrContractViolation, len(dst), numChans))
	}
	if numChans != p.synth.Channels() {
		panic(fmt.Errorf("%w: %d channels requested, graph has %d", score.ErrContractViolation, numChans, p.synth.Channels()))
	}
	frames := len(dst) / numChans
	if frames%quantum != 0 {
		panic(fmt.Errorf("%w: %d frames is not a multiple of quantum %d", score.ErrContractViolation, frames, quantum))
	}
	step := float64(quantum) / p.sampleRate
	for off := 0; off < frames; off += quantum {
		p.drainCommands()
		if pos := p.Position(); pos != p.curTime {
			// External seek: resynchronize without replaying the gap.
			p.curTime = pos
			p.prevTime = pos
		}
		p.Dispatch(p.curTime, p.realTime)
		p.synth.Render(p.realTime)
		for ch := 0; ch < numChans; ch++ {
			src := p.synth.Channel(ch)
			for i := 0; i < quantum; i++ {
				dst[(off+i)*numChans+ch] = src[i]
			}
		}
		preWrapReal := p.realTime
		before := p.curTime
		p.curTime += step
		p.realTime += step
		if p.loopTime > 0 && before <= p.loopTime && p.curTime > p.loopTime {
			// Flush events sitting exactly on the boundary, then restart the
			// musical clock; realTime keeps rising so nodes see continuous
			// wall time across the wrap.
			p.Dispatch(p.loopTime+loopEpsilon, preWrapReal)
			p.curTime = 0
			p.prevTime = 0
		}
		p.playPos.Store(math.Float64bits(p.curTime))
	}
}

func (p *Piece) drainCommands() {
	for {
		select {
		case cmd := <-p.cmds:
			switch cmd.kind {
			case cmdStop:
				p.synth.Broadcast(score.NewAllNotesOff(p.curTime), p.realTime)
				p.curTime = math.Inf(1)
				p.prevTime = math.Inf(1)
				p.playPos.Store(math.Float64bits(p.curTime))
			}
		default:
			return
		}
	}
}

func (p *Piece) logEvent(ev score.Event, realTime float64) {
	fmt.Fprintf(p.eventLog, "%.2f: %s\n", ev.Time, ev)
}
