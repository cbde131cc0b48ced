// Command play_scale builds a small synthesis graph, schedules a scale on it,
// and either plays it on the audio device or renders it to a WAV file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/prestolab/presto-go"
	"github.com/prestolab/presto-go/internal/midisink"
	"github.com/prestolab/presto-go/internal/music"
	"github.com/prestolab/presto-go/internal/score"
	"github.com/prestolab/presto-go/internal/sequencer"
	"github.com/prestolab/presto-go/internal/synth"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		rootName   = flag.String("root", "C4", "root note, e.g. C4, F#3")
		scaleName  = flag.String("scale", "major", "scale name (see -list-scales)")
		listScales = flag.Bool("list-scales", false, "print known scale names and exit")
		scalesFile = flag.String("scales", "", "YAML file with extra scale patterns")
		octaves    = flag.Int("octaves", 1, "number of octaves to span")
		tempo      = flag.Float64("tempo", 120, "beats per minute")
		loopAt     = flag.Float64("loop", 0, "loop back to the start after N seconds (0 = no loop)")
		distort    = flag.Bool("distort", false, "run the tone through soft-clip distortion")
		vibrato    = flag.Float64("vibrato", 0, "vibrato depth in cents (0 = off)")
		wavPath    = flag.String("wav", "", "render to a WAV file instead of playing")
		midiPort   = flag.String("midi", "", "also send events to the named MIDI output port")
		verbose    = flag.Bool("v", false, "log scheduled events as they dispatch")
	)
	flag.Parse()

	if *scalesFile != "" {
		f, err := os.Open(*scalesFile)
		if err != nil {
			log.Fatal(err)
		}
		err = music.LoadScalePatterns(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}
	if *listScales {
		fmt.Println(strings.Join(music.ScaleNames(), "\n"))
		return
	}

	root, err := music.Parse(*rootName)
	if err != nil {
		log.Fatal(err)
	}
	notes, err := music.GenerateScale(root, *scaleName, *octaves)
	if err != nil {
		log.Fatal(err)
	}

	graph, tone := buildGraph(*sampleRate, *distort, *vibrato)

	opts := sequencer.Options{Tempo: *tempo, LoopTime: *loopAt}
	if *verbose {
		opts.EventLog = os.Stderr
	}
	piece := sequencer.NewWithOptions(graph, *sampleRate, opts)

	var target score.EventSink = tone
	if *midiPort != "" {
		out, err := midi.FindOutPort(*midiPort)
		if err != nil {
			log.Fatalf("midi port %q: %v", *midiPort, err)
		}
		send, err := midi.SendTo(out)
		if err != nil {
			log.Fatal(err)
		}
		target = midisink.New(midisink.Sender(send), 0).Tee(tone)
	}

	track := piece.NewTrack(target)
	for i, n := range notes {
		piece.MakeNote(track, float64(i), n, 0.9, 0.8)
	}
	lengthSec := piece.BeatTime(float64(len(notes))) + 0.5

	if *wavPath != "" {
		samples := presto.RenderSamples(piece, lengthSec)
		wav := presto.EncodeWAVFloat32LE(samples, *sampleRate, 2)
		if err := os.WriteFile(*wavPath, wav, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.2fs)\n", *wavPath, lengthSec)
		return
	}

	pl, err := presto.NewPlayer(*sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	if err := pl.Play(piece); err != nil {
		log.Fatal(err)
	}
	if *loopAt > 0 {
		fmt.Println("looping; press ctrl-c to quit")
		select {}
	}
	time.Sleep(time.Duration(lengthSec * float64(time.Second)))
	piece.Stop()
	time.Sleep(200 * time.Millisecond)
	if err := pl.Stop(); err != nil {
		log.Fatal(err)
	}
}

func buildGraph(sampleRate int, distort bool, vibratoCents float64) (*synth.Graph, *synth.Tone) {
	graph := synth.NewGraph(synth.DefaultQuantum, 2, float64(sampleRate))
	tone := synth.NewTone(synth.DefaultQuantum, synth.DefaultToneParams())
	graph.Add(tone)

	if vibratoCents > 0 {
		lfo := synth.NewLFO(synth.DefaultQuantum, vibratoCents, 5, synth.WaveTriangle)
		graph.Add(lfo)
		mustConnect(graph, lfo, "out", tone, "vibrato")
	}

	var last synth.Node = tone
	if distort {
		dist := synth.NewDistortion(synth.DefaultQuantum)
		dist.Factor = 3
		graph.Add(dist)
		mustConnect(graph, tone, "out", dist, "in")
		last = dist
	}
	for ch := 0; ch < 2; ch++ {
		mustConnect(graph, last, "out", graph.Sink(), synth.ChannelInput(ch))
	}
	return graph, tone
}

func mustConnect(g *synth.Graph, src synth.Node, out string, dst synth.Node, in string) {
	if err := g.Connect(src, out, dst, in); err != nil {
		log.Fatal(err)
	}
}
