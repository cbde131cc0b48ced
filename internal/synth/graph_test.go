package synth

import (
	"errors"
	"testing"

	"github.com/prestolab/presto-go/internal/music"
	"github.com/prestolab/presto-go/internal/score"
)

// constNode writes a fixed value, recording its position in the evaluation
// order.
type constNode struct {
	Ports
	out     *Output
	value   float32
	updates *[]string
	name    string
}

func newConstNode(quantum int, value float32, name string, updates *[]string) *constNode {
	n := &constNode{value: value, name: name, updates: updates}
	n.out = n.addOut("out", quantum)
	return n
}

func (n *constNode) Update(time, sampleRate float64) {
	if n.updates != nil {
		*n.updates = append(*n.updates, n.name)
	}
	for i := range n.out.Data() {
		n.out.Data()[i] = n.value
	}
}

func (n *constNode) ProcessEvent(ev score.Event, realTime float64) {}

// addOneNode copies its input plus one, for order checks.
type addOneNode struct {
	Ports
	in      *Input
	out     *Output
	updates *[]string
	name    string
}

func newAddOneNode(quantum int, name string, updates *[]string) *addOneNode {
	n := &addOneNode{name: name, updates: updates}
	n.in = n.addIn("in")
	n.out = n.addOut("out", quantum)
	return n
}

func (n *addOneNode) Update(time, sampleRate float64) {
	if n.updates != nil {
		*n.updates = append(*n.updates, n.name)
	}
	if !n.in.HasData() {
		return
	}
	src := n.in.Data()
	dst := n.out.Data()
	for i := range dst {
		dst[i] = src[i] + 1
	}
}

func (n *addOneNode) ProcessEvent(ev score.Event, realTime float64) {}

func TestGraphRendersInTopologicalOrder(t *testing.T) {
	var order []string
	g := NewGraph(8, 1, 48000)
	inc := newAddOneNode(8, "inc", &order)
	src := newConstNode(8, 0.5, "src", &order)
	// Added consumer-first on purpose; Connect must still evaluate the
	// producer first.
	g.Add(inc)
	g.Add(src)
	if err := g.Connect(src, "out", inc, "in"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := g.Connect(inc, "out", g.Sink(), ChannelInput(0)); err != nil {
		t.Fatalf("connect sink: %v", err)
	}
	g.Render(0)
	wantFirst := "src"
	for _, name := range order {
		if name == "inc" && wantFirst != "" {
			t.Fatalf("consumer ran before producer: order %v", order)
		}
		if name == "src" {
			wantFirst = ""
		}
	}
	for _, s := range g.Channel(0) {
		if s != 1.5 {
			t.Fatalf("channel sample = %v, want 1.5", s)
		}
	}
}

func TestGraphUnconnectedChannelIsSilent(t *testing.T) {
	g := NewGraph(8, 2, 48000)
	src := newConstNode(8, 0.25, "src", nil)
	g.Add(src)
	if err := g.Connect(src, "out", g.Sink(), ChannelInput(0)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	g.Render(0)
	for _, s := range g.Channel(1) {
		if s != 0 {
			t.Fatalf("unconnected channel produced %v, want 0", s)
		}
	}
}

func TestConnectRejectsMalformedWiring(t *testing.T) {
	g := NewGraph(8, 1, 48000)
	src := newConstNode(8, 1, "src", nil)
	inc := newAddOneNode(8, "inc", nil)
	g.Add(src)
	g.Add(inc)

	if err := g.Connect(src, "nope", inc, "in"); !errors.Is(err, score.ErrContractViolation) {
		t.Fatalf("unknown output port: got %v", err)
	}
	if err := g.Connect(src, "out", inc, "nope"); !errors.Is(err, score.ErrContractViolation) {
		t.Fatalf("unknown input port: got %v", err)
	}
	outside := newConstNode(8, 1, "outside", nil)
	if err := g.Connect(outside, "out", inc, "in"); !errors.Is(err, score.ErrContractViolation) {
		t.Fatalf("foreign node: got %v", err)
	}
	if err := g.Connect(src, "out", inc, "in"); err != nil {
		t.Fatalf("valid connect failed: %v", err)
	}
	if err := g.Connect(src, "out", inc, "in"); !errors.Is(err, score.ErrContractViolation) {
		t.Fatalf("double connect: got %v", err)
	}
}

func TestConnectRejectsQuantumMismatch(t *testing.T) {
	g := NewGraph(8, 1, 48000)
	src := newConstNode(16, 1, "src", nil)
	inc := newAddOneNode(8, "inc", nil)
	g.Add(src)
	g.Add(inc)
	if err := g.Connect(src, "out", inc, "in"); !errors.Is(err, score.ErrContractViolation) {
		t.Fatalf("quantum mismatch: got %v", err)
	}
}

func TestConnectRejectsCycles(t *testing.T) {
	g := NewGraph(8, 1, 48000)
	a := newAddOneNode(8, "a", nil)
	b := newAddOneNode(8, "b", nil)
	g.Add(a)
	g.Add(b)
	if err := g.Connect(a, "out", b, "in"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := g.Connect(b, "out", a, "in"); !errors.Is(err, score.ErrContractViolation) {
		t.Fatalf("cycle: got %v", err)
	}
	if err := g.Connect(a, "out", a, "in"); !errors.Is(err, score.ErrContractViolation) {
		t.Fatalf("self loop: got %v", err)
	}
}

func TestOneOutputMayFeedSeveralInputs(t *testing.T) {
	g := NewGraph(8, 2, 48000)
	src := newConstNode(8, 0.5, "src", nil)
	g.Add(src)
	if err := g.Connect(src, "out", g.Sink(), ChannelInput(0)); err != nil {
		t.Fatalf("connect ch0: %v", err)
	}
	if err := g.Connect(src, "out", g.Sink(), ChannelInput(1)); err != nil {
		t.Fatalf("connect ch1: %v", err)
	}
	g.Render(0)
	if g.Channel(0)[0] != 0.5 || g.Channel(1)[0] != 0.5 {
		t.Fatalf("fan-out failed: %v %v", g.Channel(0)[0], g.Channel(1)[0])
	}
}

func TestBroadcastReachesEveryNode(t *testing.T) {
	g := NewGraph(8, 1, 48000)
	tone := NewTone(8, DefaultToneParams())
	g.Add(tone)
	n, err := music.New(69)
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	tone.ProcessEvent(score.NewNoteOn(0, n, 1), 0)
	if tone.ActiveVoices() != 1 {
		t.Fatalf("expected 1 active voice")
	}
	g.Broadcast(score.NewAllNotesOff(0), 0)
	// Voice is released; it dies within the release tail.
	for i := 0; i < 48000; i += 8 {
		g.Render(0)
		if tone.ActiveVoices() == 0 {
			return
		}
	}
	t.Fatalf("voice still active after broadcast allNotesOff")
}
