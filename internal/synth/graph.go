package synth

import (
	"fmt"

	"github.com/prestolab/presto-go/internal/score"
)

// DefaultQuantum is the number of frames processed per synthesis step.
const DefaultQuantum = 128

// Node is one processing element of the graph. Update is invoked once per
// quantum in topological order (producers before consumers) and must read and
// write exactly one quantum. ProcessEvent delivers control messages
// out-of-band from the sample path; nodes ignore kinds they do not handle.
type Node interface {
	Update(time float64, sampleRate float64)
	ProcessEvent(ev score.Event, realTime float64)
}

// ported is satisfied by every node embedding Ports.
type ported interface {
	In(name string) *Input
	Out(name string) *Output
}

// Graph is a static directed graph of nodes. Build it with Add and Connect
// before playback; topology must not change while rendering.
type Graph struct {
	quantum    int
	sampleRate float64
	nodes      []Node
	edges      map[Node][]Node
	order      []Node
	dirty      bool
	out        *OutputNode
}

// NewGraph creates a graph with its designated output node already added.
func NewGraph(quantum, channels int, sampleRate float64) *Graph {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	if channels <= 0 {
		channels = 2
	}
	g := &Graph{
		quantum:    quantum,
		sampleRate: sampleRate,
		edges:      map[Node][]Node{},
	}
	g.out = newOutputNode(quantum, channels)
	g.Add(g.out)
	return g
}

func (g *Graph) Quantum() int        { return g.quantum }
func (g *Graph) Channels() int       { return g.out.channels() }
func (g *Graph) SampleRate() float64 { return g.sampleRate }
func (g *Graph) Sink() *OutputNode   { return g.out }

// Add registers a node. Nodes must be added before they are connected.
func (g *Graph) Add(n Node) {
	g.nodes = append(g.nodes, n)
	g.dirty = true
}

func (g *Graph) contains(n Node) bool {
	for _, m := range g.nodes {
		if m == n {
			return true
		}
	}
	return false
}

// Connect wires src's named output to dst's named input. Unknown ports,
// foreign nodes, quantum-mismatched buffers, double connection, and cycles
// are all wiring contract violations.
func (g *Graph) Connect(src Node, outName string, dst Node, inName string) error {
	if !g.contains(src) || !g.contains(dst) {
		return fmt.Errorf("%w: connect involves a node not in the graph", score.ErrContractViolation)
	}
	sp, ok := src.(ported)
	if !ok {
		return fmt.Errorf("%w: source node has no ports", score.ErrContractViolation)
	}
	dp, ok := dst.(ported)
	if !ok {
		return fmt.Errorf("%w: destination node has no ports", score.ErrContractViolation)
	}
	out := sp.Out(outName)
	if out == nil {
		return fmt.Errorf("%w: no output port %q", score.ErrContractViolation, outName)
	}
	if len(out.data) != g.quantum {
		return fmt.Errorf("%w: output port %q holds %d frames, graph quantum is %d", score.ErrContractViolation, outName, len(out.data), g.quantum)
	}
	in := dp.In(inName)
	if in == nil {
		return fmt.Errorf("%w: no input port %q", score.ErrContractViolation, inName)
	}
	if in.source != nil {
		return fmt.Errorf("%w: input port %q already connected", score.ErrContractViolation, inName)
	}
	if src == dst || g.reaches(dst, src) {
		return fmt.Errorf("%w: connection %q->%q would create a cycle", score.ErrContractViolation, outName, inName)
	}
	in.source = out
	g.edges[src] = append(g.edges[src], dst)
	g.dirty = true
	return nil
}

// reaches reports whether to is reachable from from along existing edges.
func (g *Graph) reaches(from, to Node) bool {
	for _, next := range g.edges[from] {
		if next == to || g.reaches(next, to) {
			return true
		}
	}
	return false
}

// sort rebuilds the evaluation order (Kahn's algorithm, insertion order
// among ready nodes so unconnected nodes keep a stable position).
func (g *Graph) sort() {
	indeg := make(map[Node]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = 0
	}
	for _, dsts := range g.edges {
		for _, d := range dsts {
			indeg[d]++
		}
	}
	order := make([]Node, 0, len(g.nodes))
	ready := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, d := range g.edges[n] {
			indeg[d]--
			if indeg[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	g.order = order
	g.dirty = false
}

// Render produces one quantum: every node's Update in topological order.
// time is the wall-clock-equivalent playback time, monotonic across loops.
func (g *Graph) Render(time float64) {
	if g.dirty {
		g.sort()
	}
	for _, n := range g.order {
		n.Update(time, g.sampleRate)
	}
}

// Channel returns the output node's buffer for one channel.
func (g *Graph) Channel(ch int) []float32 { return g.out.Channel(ch) }

// Broadcast delivers an event to every node, bypassing tracks.
func (g *Graph) Broadcast(ev score.Event, realTime float64) {
	for _, n := range g.nodes {
		n.ProcessEvent(ev, realTime)
	}
}

// OutputNode aggregates the final per-channel signal. Channel ch reads from
// input port "in<ch>"; an unconnected channel stays silent.
type OutputNode struct {
	Ports
	ins  []*Input
	bufs [][]float32
}

func newOutputNode(quantum, channels int) *OutputNode {
	o := &OutputNode{
		ins:  make([]*Input, channels),
		bufs: make([][]float32, channels),
	}
	for ch := 0; ch < channels; ch++ {
		o.ins[ch] = o.addIn(ChannelInput(ch))
		o.bufs[ch] = make([]float32, quantum)
	}
	return o
}

// ChannelInput names the output node's input port for a channel.
func ChannelInput(ch int) string { return fmt.Sprintf("in%d", ch) }

func (o *OutputNode) channels() int { return len(o.bufs) }

// Channel returns the aggregated buffer for one channel.
func (o *OutputNode) Channel(ch int) []float32 { return o.bufs[ch] }

func (o *OutputNode) Update(time, sampleRate float64) {
	for ch, in := range o.ins {
		dst := o.bufs[ch]
		if !in.HasData() {
			for i := range dst {
				dst[i] = 0
			}
			continue
		}
		copy(dst, in.Data())
	}
}

func (o *OutputNode) ProcessEvent(ev score.Event, realTime float64) {}
