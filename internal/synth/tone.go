package synth

import (
	"math"

	"github.com/prestolab/presto-go/internal/music"
	"github.com/prestolab/presto-go/internal/score"
)

const twoPi = math.Pi * 2

type ToneParams struct {
	Voices     int
	Gain       float64
	AttackSec  float64
	ReleaseSec float64
}

func DefaultToneParams() ToneParams {
	return ToneParams{
		Voices:     12,
		Gain:       0.25,
		AttackSec:  0.005,
		ReleaseSec: 0.08,
	}
}

type toneVoice struct {
	active   bool
	note     *music.Note
	freq     float64
	phase    float64
	velocity float64
	env      float64
	released bool
	age      int
}

// Tone is a polyphonic sine generator. NoteOn starts a voice at the note's
// equal-tempered frequency, NoteOff releases it, AllNotesOff releases every
// voice. The optional "vibrato" input is read as a per-sample pitch offset
// in cents; left unconnected, pitch is fixed.
type Tone struct {
	Ports
	params  ToneParams
	out     *Output
	vibrato *Input
	voices  []toneVoice
	nextAge int
}

func NewTone(quantum int, params ToneParams) *Tone {
	if params.Voices <= 0 {
		params.Voices = 12
	}
	t := &Tone{
		params: params,
		voices: make([]toneVoice, params.Voices),
	}
	t.out = t.addOut("out", quantum)
	t.vibrato = t.addIn("vibrato")
	return t
}

// ActiveVoices returns the number of voices still sounding, release tails
// included.
func (t *Tone) ActiveVoices() int {
	n := 0
	for i := range t.voices {
		if t.voices[i].active {
			n++
		}
	}
	return n
}

func (t *Tone) Update(time, sampleRate float64) {
	data := t.out.Data()
	var mod []float32
	if t.vibrato.HasData() {
		mod = t.vibrato.Data()
	}
	attackStep := 1.0
	if t.params.AttackSec > 0 {
		attackStep = 1 / (t.params.AttackSec * sampleRate)
	}
	releaseStep := 1.0
	if t.params.ReleaseSec > 0 {
		releaseStep = 1 / (t.params.ReleaseSec * sampleRate)
	}
	for i := range data {
		var sum float64
		for v := range t.voices {
			vc := &t.voices[v]
			if !vc.active {
				continue
			}
			sum += math.Sin(twoPi*vc.phase) * vc.velocity * vc.env
			freq := vc.freq
			if mod != nil && mod[i] != 0 {
				freq = vc.freq * math.Pow(2, float64(mod[i])/1200)
			}
			vc.phase += freq / sampleRate
			if vc.phase >= 1 {
				vc.phase -= 1
			}
			if vc.released {
				vc.env -= releaseStep
				if vc.env <= 0 {
					vc.env = 0
					vc.active = false
				}
			} else if vc.env < 1 {
				vc.env += attackStep
				if vc.env > 1 {
					vc.env = 1
				}
			}
		}
		data[i] = float32(sum * t.params.Gain)
	}
}

func (t *Tone) ProcessEvent(ev score.Event, realTime float64) {
	switch ev.Kind {
	case score.EventNoteOn:
		vc := t.allocVoice(ev.Note)
		vc.active = true
		vc.note = ev.Note
		vc.freq = ev.Note.Frequency()
		vc.phase = 0
		vc.velocity = ev.Velocity
		vc.env = 0
		vc.released = false
		vc.age = t.nextAge
		t.nextAge++
	case score.EventNoteOff:
		for i := range t.voices {
			vc := &t.voices[i]
			if vc.active && !vc.released && vc.note == ev.Note {
				vc.released = true
			}
		}
	case score.EventAllNotesOff:
		for i := range t.voices {
			if t.voices[i].active {
				t.voices[i].released = true
			}
		}
	}
}

// allocVoice retriggers a sounding voice for the same note, else takes a free
// slot, else steals the oldest.
func (t *Tone) allocVoice(note *music.Note) *toneVoice {
	for i := range t.voices {
		if t.voices[i].active && t.voices[i].note == note {
			return &t.voices[i]
		}
	}
	for i := range t.voices {
		if !t.voices[i].active {
			return &t.voices[i]
		}
	}
	oldest := 0
	for i := range t.voices {
		if t.voices[i].age < t.voices[oldest].age {
			oldest = i
		}
	}
	return &t.voices[oldest]
}
