// Package midisink mirrors scheduled events onto a MIDI output, so an
// external hardware or software instrument can double the internal synth.
package midisink

import (
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/prestolab/presto-go/internal/score"
)

// Sender transmits a single MIDI message. midi.SendTo(out) satisfies it.
type Sender func(msg midi.Message) error

// Sink converts events to channel voice messages. It can sit in front of
// another sink, forwarding every event after sending it.
type Sink struct {
	send    Sender
	channel uint8
	next    score.EventSink
}

func New(send Sender, channel uint8) *Sink {
	return &Sink{send: send, channel: channel & 0x0f}
}

// Tee forwards every event to next after transmitting it.
func (s *Sink) Tee(next score.EventSink) *Sink {
	s.next = next
	return s
}

const allNotesOffController = 123

func (s *Sink) ProcessEvent(ev score.Event, realTime float64) {
	switch ev.Kind {
	case score.EventNoteOn:
		vel := uint8(math.Round(ev.Velocity * 127))
		_ = s.send(midi.NoteOn(s.channel, uint8(ev.Note.Number()), vel))
	case score.EventNoteOff:
		_ = s.send(midi.NoteOff(s.channel, uint8(ev.Note.Number())))
	case score.EventAllNotesOff:
		_ = s.send(midi.ControlChange(s.channel, allNotesOffController, 0))
	}
	if s.next != nil {
		s.next.ProcessEvent(ev, realTime)
	}
}
