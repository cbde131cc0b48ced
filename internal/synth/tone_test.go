package synth

import (
	"math"
	"testing"

	"github.com/prestolab/presto-go/internal/music"
	"github.com/prestolab/presto-go/internal/score"
)

func note(t *testing.T, number int) *music.Note {
	t.Helper()
	n, err := music.New(number)
	if err != nil {
		t.Fatalf("note %d: %v", number, err)
	}
	return n
}

func energy(buf []float32) float64 {
	var e float64
	for _, s := range buf {
		e += math.Abs(float64(s))
	}
	return e
}

func TestToneProducesSoundAfterNoteOn(t *testing.T) {
	tone := NewTone(256, DefaultToneParams())
	tone.Update(0, 48000)
	if e := energy(tone.Out("out").Data()); e != 0 {
		t.Fatalf("silent tone produced energy %v", e)
	}
	tone.ProcessEvent(score.NewNoteOn(0, note(t, 69), 1), 0)
	tone.Update(0, 48000)
	if e := energy(tone.Out("out").Data()); e == 0 {
		t.Fatalf("expected audio after noteOn")
	}
	if tone.ActiveVoices() != 1 {
		t.Fatalf("active voices = %d, want 1", tone.ActiveVoices())
	}
}

func TestToneNoteOffReleasesVoice(t *testing.T) {
	tone := NewTone(256, DefaultToneParams())
	n := note(t, 60)
	tone.ProcessEvent(score.NewNoteOn(0, n, 1), 0)
	tone.ProcessEvent(score.NewNoteOff(0.1, n), 0.1)
	// Release tail is 80ms by default; half a second is plenty.
	for i := 0; i < 48000/2; i += 256 {
		tone.Update(0, 48000)
	}
	if tone.ActiveVoices() != 0 {
		t.Fatalf("voice still active after release tail")
	}
}

func TestToneNoteOffOnlyMatchingNote(t *testing.T) {
	tone := NewTone(64, DefaultToneParams())
	a := note(t, 60)
	b := note(t, 64)
	tone.ProcessEvent(score.NewNoteOn(0, a, 1), 0)
	tone.ProcessEvent(score.NewNoteOn(0, b, 1), 0)
	tone.ProcessEvent(score.NewNoteOff(0.1, a), 0.1)
	for i := 0; i < 48000; i += 64 {
		tone.Update(0, 48000)
	}
	if tone.ActiveVoices() != 1 {
		t.Fatalf("active voices = %d, want only the unreleased note", tone.ActiveVoices())
	}
}

func TestToneVoiceStealing(t *testing.T) {
	params := DefaultToneParams()
	params.Voices = 2
	tone := NewTone(64, params)
	tone.ProcessEvent(score.NewNoteOn(0, note(t, 60), 1), 0)
	tone.ProcessEvent(score.NewNoteOn(0, note(t, 62), 1), 0)
	tone.ProcessEvent(score.NewNoteOn(0, note(t, 64), 1), 0)
	if tone.ActiveVoices() != 2 {
		t.Fatalf("active voices = %d, want pool size 2", tone.ActiveVoices())
	}
}

func TestToneVibratoInputBendsPitch(t *testing.T) {
	const quantum = 512
	g := NewGraph(quantum, 1, 48000)
	params := DefaultToneParams()
	params.AttackSec = 0
	plain := NewTone(quantum, params)
	bent := NewTone(quantum, params)
	lfo := NewLFO(quantum, 1200, 0.0001, WaveSquare) // ~constant +1 octave over a quantum
	g.Add(lfo)
	g.Add(plain)
	g.Add(bent)
	if err := g.Connect(lfo, "out", bent, "vibrato"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	n := note(t, 69)
	plain.ProcessEvent(score.NewNoteOn(0, n, 1), 0)
	bent.ProcessEvent(score.NewNoteOn(0, n, 1), 0)
	g.Render(0)

	// The bent tone runs an octave up, so it crosses zero about twice as
	// often as the plain one.
	crossings := func(buf []float32) int {
		c := 0
		for i := 1; i < len(buf); i++ {
			if (buf[i-1] < 0) != (buf[i] < 0) {
				c++
			}
		}
		return c
	}
	pc := crossings(plain.Out("out").Data())
	bc := crossings(bent.Out("out").Data())
	if bc <= pc {
		t.Fatalf("vibrato had no effect: plain %d crossings, bent %d", pc, bc)
	}
}

func TestToneRetriggerSameNoteReusesVoice(t *testing.T) {
	tone := NewTone(64, DefaultToneParams())
	n := note(t, 72)
	tone.ProcessEvent(score.NewNoteOn(0, n, 1), 0)
	tone.ProcessEvent(score.NewNoteOn(0.5, n, 0.5), 0.5)
	if tone.ActiveVoices() != 1 {
		t.Fatalf("retrigger allocated a second voice")
	}
}

func TestLFOWaveforms(t *testing.T) {
	const quantum = 1000
	for _, wave := range []int{WaveSaw, WaveSquare, WaveTriangle, WaveRandom} {
		lfo := NewLFO(quantum, 2, 96, wave)
		lfo.Update(0, 48000)
		data := lfo.Out("out").Data()
		var lo, hi float32
		for _, s := range data {
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		if lo < -2 || hi > 2 {
			t.Fatalf("wave %d exceeded depth: [%v, %v]", wave, lo, hi)
		}
		if lo == 0 && hi == 0 {
			t.Fatalf("wave %d produced silence", wave)
		}
	}
}

func TestLFOZeroDepthIsSilent(t *testing.T) {
	lfo := NewLFO(16, 0, 5, WaveTriangle)
	data := lfo.Out("out").Data()
	data[0] = 1
	lfo.Update(0, 48000)
	for _, s := range data {
		if s != 0 {
			t.Fatalf("zero-depth LFO wrote %v", s)
		}
	}
}
