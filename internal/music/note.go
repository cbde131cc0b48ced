package music

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// MaxNotes is the exclusive upper bound of valid pitch numbers; pitch numbers
// follow the MIDI convention (0..127, middle C = 60, A4 = 69).
const MaxNotes = 128

var (
	ErrInvalidNoteName   = errors.New("invalid note name")
	ErrInvalidNoteNumber = errors.New("note number out of range")
)

// Note is an immutable pitch. Notes are interned: New and Parse return one
// shared instance per pitch number, so two equal notes are pointer-equal.
type Note struct {
	number int
}

var (
	registryMu sync.Mutex
	registry   [MaxNotes]*Note
)

// New returns the interned Note for the given pitch number.
func New(number int) (*Note, error) {
	if number < 0 || number >= MaxNotes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNoteNumber, number)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if registry[number] == nil {
		registry[number] = &Note{number: number}
	}
	return registry[number], nil
}

// pitchClasses maps class index to display name. Sharp spellings only;
// flats are not part of the name grammar.
var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// classOf returns the pitch class for a letter (A-G) plus optional sharp,
// or -1 when the combination names no class (E# and B# do not exist).
func classOf(letter byte, sharp bool) int {
	var base int
	switch letter {
	case 'C':
		base = 0
	case 'D':
		base = 2
	case 'E':
		base = 4
	case 'F':
		base = 5
	case 'G':
		base = 7
	case 'A':
		base = 9
	case 'B':
		base = 11
	default:
		return -1
	}
	if !sharp {
		return base
	}
	if letter == 'E' || letter == 'B' {
		return -1
	}
	return base + 1
}

// Parse interprets a textual note name: one pitch-class letter, an optional
// '#', and a signed octave (e.g. "C#4", "a-1"). A4 is pitch number 69.
func Parse(name string) (*Note, error) {
	if len(name) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	letter := name[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	rest := name[1:]
	sharp := false
	if rest[0] == '#' {
		sharp = true
		rest = rest[1:]
	}
	class := classOf(letter, sharp)
	if class < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	// The octave is a signed digit string; Atoi alone would also admit "+4".
	if len(rest) == 0 || (rest[0] != '-' && (rest[0] < '0' || rest[0] > '9')) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	return New((octave+1)*12 + class)
}

// Number returns the pitch number in [0,128).
func (n *Note) Number() int { return n.number }

// PitchClass returns the semitone class within the octave (0=C .. 11=B).
func (n *Note) PitchClass() int { return n.number % 12 }

// Octave returns the octave in scientific pitch notation (C4 = middle C).
func (n *Note) Octave() int { return n.number/12 - 1 }

// Name returns the pitch-class name concatenated with the octave, e.g. "A4".
func (n *Note) Name() string {
	return pitchClasses[n.PitchClass()] + strconv.Itoa(n.Octave())
}

func (n *Note) String() string { return n.Name() }

// Frequency returns the equal-tempered frequency in Hz, A4 = 440.
func (n *Note) Frequency() float64 { return n.Detuned(0) }

// Detuned returns the frequency shifted by the given number of cents.
func (n *Note) Detuned(cents float64) float64 {
	return 440 * math.Pow(2, float64(n.number-69)/12+cents/1200)
}

// Offset returns the interned note the given number of semitones away.
func (n *Note) Offset(semitones int) (*Note, error) {
	return New(n.number + semitones)
}

// Shift returns the interned note the given number of octaves away.
func (n *Note) Shift(octaves int) (*Note, error) {
	return n.Offset(12 * octaves)
}
