package synth

import (
	"math"

	"github.com/prestolab/presto-go/internal/score"
)

// LFO waveforms.
const (
	WaveSaw = iota
	WaveSquare
	WaveTriangle
	WaveRandom
)

// LFONode is a low-frequency modulation source. Each quantum it writes one
// buffer of values in [-depth, +depth]; the unit is whatever the consumer
// assigns to it (Tone reads its vibrato input as cents).
type LFONode struct {
	Ports
	out      *Output
	depth    float64
	rateHz   float64
	waveform int
	phase    float64
	randVal  float64
}

func NewLFO(quantum int, depth, rateHz float64, waveform int) *LFONode {
	l := &LFONode{}
	l.out = l.addOut("out", quantum)
	l.Set(depth, rateHz, waveform)
	return l
}

// Set reconfigures depth, rate, and waveform.
func (l *LFONode) Set(depth, rateHz float64, waveform int) {
	l.depth = depth
	l.rateHz = rateHz
	if waveform < WaveSaw || waveform > WaveRandom {
		waveform = WaveTriangle
	}
	l.waveform = waveform
}

func (l *LFONode) Update(time, sampleRate float64) {
	data := l.out.Data()
	if l.depth == 0 || l.rateHz == 0 || sampleRate == 0 {
		for i := range data {
			data[i] = 0
		}
		return
	}
	for i := range data {
		var waveVal float64
		switch l.waveform {
		case WaveSaw:
			waveVal = 1.0 - 2.0*l.phase
		case WaveSquare:
			if l.phase < 0.5 {
				waveVal = 1.0
			} else {
				waveVal = -1.0
			}
		case WaveRandom:
			waveVal = l.randVal
		default: // WaveTriangle
			if l.phase < 0.5 {
				waveVal = 4.0*l.phase - 1.0
			} else {
				waveVal = 3.0 - 4.0*l.phase
			}
		}
		data[i] = float32(waveVal * l.depth)

		oldPhase := l.phase
		l.phase += l.rateHz / sampleRate
		for l.phase >= 1.0 {
			l.phase -= 1.0
		}
		// Sample-and-hold: pick a new random value at each cycle boundary.
		if l.waveform == WaveRandom && l.phase < oldPhase {
			l.randVal = math.Sin(l.phase*12345.6789 + l.randVal*67890.1234)
			l.randVal -= math.Floor(l.randVal)
			l.randVal = l.randVal*2.0 - 1.0
		}
	}
}

func (l *LFONode) ProcessEvent(ev score.Event, realTime float64) {}
