// Package score holds the control-event model and the time-ordered tracks
// that deliver events into a synthesis graph.
package score

import (
	"errors"
	"fmt"

	"github.com/prestolab/presto-go/internal/music"
)

// ErrContractViolation marks caller/engine mismatches in the real-time path
// (buffer size not a quantum multiple, channel-count mismatch, malformed
// node wiring). Detected during wiring it is returned; detected while
// generating audio it is raised as a panic, since nothing can fix it at
// runtime.
var ErrContractViolation = errors.New("contract violation")

type EventKind int

const (
	EventNoteOn EventKind = iota + 1
	EventNoteOff
	EventAllNotesOff
)

// Event is a timed control message. Time is in seconds of musical (looping)
// playback time; the wall-clock-equivalent time is supplied separately at
// dispatch. Events are immutable once added to a track.
type Event struct {
	Kind     EventKind
	Time     float64
	Note     *music.Note // nil for EventAllNotesOff
	Velocity float64     // 0..1, NoteOn only

	// seq is the track-local insertion counter, the secondary sort key that
	// keeps simultaneous events in insertion order across a resort.
	seq uint64
}

// NewNoteOn schedules a note start. Velocity is clamped to [0,1].
func NewNoteOn(time float64, note *music.Note, velocity float64) Event {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	return Event{Kind: EventNoteOn, Time: time, Note: note, Velocity: velocity}
}

// NewNoteOff schedules a note release.
func NewNoteOff(time float64, note *music.Note) Event {
	return Event{Kind: EventNoteOff, Time: time, Note: note}
}

// NewAllNotesOff schedules a silence-all.
func NewAllNotesOff(time float64) Event {
	return Event{Kind: EventAllNotesOff, Time: time}
}

// String describes the event for the diagnostic log.
func (e Event) String() string {
	switch e.Kind {
	case EventNoteOn:
		return fmt.Sprintf("noteOn %s v=%.2f", e.Note, e.Velocity)
	case EventNoteOff:
		return fmt.Sprintf("noteOff %s", e.Note)
	case EventAllNotesOff:
		return "allNotesOff"
	default:
		return fmt.Sprintf("event(%d)", int(e.Kind))
	}
}

// EventSink receives dispatched events. realTime is the wall-clock-equivalent
// playback time, monotonic across loop wraps. Sinks must tolerate any event
// kind and ignore the ones they do not handle.
type EventSink interface {
	ProcessEvent(ev Event, realTime float64)
}
