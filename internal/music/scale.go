package music

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrUnknownScale = errors.New("unknown scale")

// Scale patterns list the semitone interval between consecutive degrees,
// omitting each octave's final interval: GenerateScale closes every octave
// with the note exactly that many octaves above the root, which supplies it.
var builtinScales = map[string][]int{
	"major":            {2, 2, 1, 2, 2, 2},
	"minor":            {2, 1, 2, 2, 1, 2},
	"harmonic minor":   {2, 1, 2, 2, 1, 3},
	"dorian":           {2, 1, 2, 2, 2, 1},
	"mixolydian":       {2, 2, 1, 2, 2, 1},
	"pentatonic":       {2, 2, 3, 2},
	"minor pentatonic": {3, 2, 2, 3},
	"blues":            {3, 2, 1, 1, 3},
	"whole tone":       {2, 2, 2, 2, 2},
	"chromatic":        {1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
}

var (
	scalesMu     sync.Mutex
	customScales = map[string][]int{}
)

// scalePattern looks up a pattern, custom registrations first.
func scalePattern(name string) ([]int, bool) {
	scalesMu.Lock()
	defer scalesMu.Unlock()
	if p, ok := customScales[name]; ok {
		return p, true
	}
	p, ok := builtinScales[name]
	return p, ok
}

// RegisterScale adds or replaces a named interval pattern.
func RegisterScale(name string, intervals []int) error {
	if name == "" || len(intervals) == 0 {
		return fmt.Errorf("%w: empty scale definition %q", ErrUnknownScale, name)
	}
	p := make([]int, len(intervals))
	copy(p, intervals)
	scalesMu.Lock()
	defer scalesMu.Unlock()
	customScales[name] = p
	return nil
}

// LoadScalePatterns reads a YAML mapping of scale name to interval list and
// registers every entry, e.g.:
//
//	hirajoshi: [2, 1, 4, 1]
//	iwato: [1, 4, 1, 4]
func LoadScalePatterns(r io.Reader) error {
	var defs map[string][]int
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil {
		return fmt.Errorf("parse scale patterns: %w", err)
	}
	for name, intervals := range defs {
		if err := RegisterScale(name, intervals); err != nil {
			return err
		}
	}
	return nil
}

// ScaleNames returns the names of all known patterns, built-in and registered.
func ScaleNames() []string {
	scalesMu.Lock()
	defer scalesMu.Unlock()
	names := make([]string, 0, len(builtinScales)+len(customScales))
	for name := range builtinScales {
		if _, shadowed := customScales[name]; !shadowed {
			names = append(names, name)
		}
	}
	for name := range customScales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateScale walks the named interval pattern upward from root for
// numOctaves octaves, closing each octave with the note exactly that many
// octaves above root. The result is strictly ascending with
// numOctaves*len(pattern) + numOctaves + 1 notes; numOctaves below 1 is
// treated as 1. Any step leaving the valid pitch range fails with
// ErrInvalidNoteNumber.
func GenerateScale(root *Note, scaleName string, numOctaves int) ([]*Note, error) {
	pattern, ok := scalePattern(scaleName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScale, scaleName)
	}
	if numOctaves < 1 {
		numOctaves = 1
	}
	notes := make([]*Note, 0, numOctaves*len(pattern)+numOctaves+1)
	notes = append(notes, root)
	cur := root
	var err error
	for oct := 1; oct <= numOctaves; oct++ {
		for _, iv := range pattern {
			cur, err = cur.Offset(iv)
			if err != nil {
				return nil, err
			}
			notes = append(notes, cur)
		}
		cur, err = root.Shift(oct)
		if err != nil {
			return nil, err
		}
		notes = append(notes, cur)
	}
	return notes, nil
}
