package synth

import "github.com/prestolab/presto-go/internal/score"

// Distortion soft-clips its input: the portion of |s| exceeding Threshold is
// divided by Factor instead of passing through, preserving sign. With the
// default Factor of 1 the node is transparent; higher factors compress peaks
// harder. When the input is unconnected the output is left untouched for the
// quantum.
type Distortion struct {
	Ports
	in  *Input
	out *Output

	Gain      float64 // pre-scale applied before the knee
	Threshold float64 // level where compression starts
	Factor    float64 // compression ratio denominator; values <= 0 act as 1
}

func NewDistortion(quantum int) *Distortion {
	d := &Distortion{
		Gain:      1,
		Threshold: 0.7,
		Factor:    1,
	}
	d.in = d.addIn("in")
	d.out = d.addOut("out", quantum)
	return d
}

func (d *Distortion) Update(time, sampleRate float64) {
	if !d.in.HasData() {
		return
	}
	factor := d.Factor
	if factor <= 0 {
		factor = 1
	}
	src := d.in.Data()
	dst := d.out.Data()
	for i := range dst {
		s := float64(src[i]) * d.Gain
		mag := s
		if mag < 0 {
			mag = -mag
		}
		if over := mag - d.Threshold; over > 0 {
			mag = mag - over + over/factor
		}
		if s < 0 {
			mag = -mag
		}
		dst[i] = float32(mag)
	}
}

func (d *Distortion) ProcessEvent(ev score.Event, realTime float64) {}
