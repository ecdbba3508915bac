// Package bank describes the sound bank an engine session loads: one-shot
// events, music cues built from segments, and the parameters cues read.
package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

var ErrInvalidManifest = errors.New("invalid bank manifest")

// Manifest is the JSON document found at the root of a media path.
type Manifest struct {
	Name       string           `json:"name"`
	Events     map[string]Event `json:"events"`
	Cues       map[string]Cue   `json:"cues"`
	Parameters map[string]Param `json:"parameters"`

	// Gain trims the whole bank before the master limiter. Zero means 1.
	Gain float64 `json:"gain,omitempty"`
}

// Event is a fire-and-forget sound. When Files lists more than one file a
// random one is chosen on every start.
type Event struct {
	Files  []string `json:"files"`
	Volume float64  `json:"volume,omitempty"`
}

// Cue is an interactive music prompt.
type Cue struct {
	Segments  []Segment `json:"segments"`
	Loop      bool      `json:"loop,omitempty"`
	Parameter string    `json:"parameter,omitempty"`
	Volume    float64   `json:"volume,omitempty"`
}

type Segment struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

// Param is a numeric input read by cues. The bass parameter must span 0 to 2,
// one value per bass variation.
type Param struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses the named manifest from fsys.
func Load(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Validate checks cross references between cues, segments and parameters.
func (m *Manifest) Validate() error {
	if len(m.Events) == 0 && len(m.Cues) == 0 {
		return fmt.Errorf("%w: no events or cues", ErrInvalidManifest)
	}
	for name, ev := range m.Events {
		if len(ev.Files) == 0 {
			return fmt.Errorf("%w: event %q has no files", ErrInvalidManifest, name)
		}
	}
	seen := make(map[int]string)
	for name, cue := range m.Cues {
		if len(cue.Segments) == 0 {
			return fmt.Errorf("%w: cue %q has no segments", ErrInvalidManifest, name)
		}
		if cue.Parameter != "" {
			if _, ok := m.Parameters[cue.Parameter]; !ok {
				return fmt.Errorf("%w: cue %q reads undefined parameter %q", ErrInvalidManifest, name, cue.Parameter)
			}
		}
		for _, seg := range cue.Segments {
			if seg.File == "" {
				return fmt.Errorf("%w: segment %d of cue %q has no file", ErrInvalidManifest, seg.ID, name)
			}
			if other, dup := seen[seg.ID]; dup {
				return fmt.Errorf("%w: segment id %d used by cues %q and %q", ErrInvalidManifest, seg.ID, other, name)
			}
			seen[seg.ID] = name
		}
	}
	if m.Gain < 0 {
		return fmt.Errorf("%w: negative gain", ErrInvalidManifest)
	}
	for name, p := range m.Parameters {
		if p.Max < p.Min {
			return fmt.Errorf("%w: parameter %q has max < min", ErrInvalidManifest, name)
		}
	}
	return nil
}

// Files returns every asset path referenced by the manifest, sorted and
// without duplicates.
func (m *Manifest) Files() []string {
	set := make(map[string]struct{})
	for _, ev := range m.Events {
		for _, f := range ev.Files {
			set[f] = struct{}{}
		}
	}
	for _, cue := range m.Cues {
		for _, seg := range cue.Segments {
			set[seg.File] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// SegmentID looks up a segment id by its name.
func (m *Manifest) SegmentID(name string) (int, bool) {
	for _, cue := range m.Cues {
		for _, seg := range cue.Segments {
			if seg.Name == name {
				return seg.ID, true
			}
		}
	}
	return 0, false
}

// Marshal encodes the manifest as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
