// Package synth implements the dataflow graph that turns control events and
// time into sample buffers: nodes with named ports, one quantum-sized buffer
// per output port, and borrowed read-only views on the consumer side.
package synth

// Output is a named producer port. It owns one quantum of samples, rewritten
// on every Update of the owning node.
type Output struct {
	name string
	data []float32
}

func (o *Output) Name() string { return o.name }

// Data returns the port's buffer. The owning node is the only writer.
func (o *Output) Data() []float32 { return o.data }

// Input is a named consumer port. When connected it borrows the source
// output's buffer; when unconnected HasData reports false and the owning
// node skips processing for the quantum.
type Input struct {
	name   string
	source *Output
}

func (in *Input) Name() string { return in.name }

func (in *Input) HasData() bool { return in != nil && in.source != nil }

// Data returns the connected source's buffer, or nil when unconnected.
func (in *Input) Data() []float32 {
	if in.source == nil {
		return nil
	}
	return in.source.data
}

// Ports is the port registry embedded by every node. Ports are declared at
// node construction and never change afterwards.
type Ports struct {
	ins  map[string]*Input
	outs map[string]*Output
}

func (p *Ports) addIn(name string) *Input {
	if p.ins == nil {
		p.ins = map[string]*Input{}
	}
	in := &Input{name: name}
	p.ins[name] = in
	return in
}

func (p *Ports) addOut(name string, quantum int) *Output {
	if p.outs == nil {
		p.outs = map[string]*Output{}
	}
	out := &Output{name: name, data: make([]float32, quantum)}
	p.outs[name] = out
	return out
}

// In returns the named input port, or nil.
func (p *Ports) In(name string) *Input { return p.ins[name] }

// Out returns the named output port, or nil.
func (p *Ports) Out(name string) *Output { return p.outs[name] }
