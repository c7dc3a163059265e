package main

import (
	"github.com/pkg/errors"
)

// KeyZone assigns one rendered sample to a contiguous range of MIDI keys.
type KeyZone struct {
	Sample *RenderedSample `json:"-"`
	Low    int             `json:"low"`
	High   int             `json:"high"`
	Root   int             `json:"root"`
}

// MultisampleMap is an ordered set of key zones partitioning 0..127.
type MultisampleMap struct {
	Zones []KeyZone `json:"zones"`
}

// BuildMultisampleMap splits the keyboard between neighbouring samples at
// floor((a+b)/2): the lower sample keeps the midpoint key. The first zone
// starts at 0 and the last ends at 127.
func BuildMultisampleMap(samples []*RenderedSample) (*MultisampleMap, error) {
	if len(samples) == 0 {
		return nil, errors.Wrap(ErrConfig, "no samples to map")
	}
	for i, s := range samples {
		if s.Note < 0 || s.Note > 127 {
			return nil, errors.Wrapf(ErrRange, "sample note %d not in 0..127", s.Note)
		}
		if i > 0 && s.Note <= samples[i-1].Note {
			return nil, errors.Wrapf(ErrConfig, "sample notes not strictly ascending at %d -> %d", samples[i-1].Note, s.Note)
		}
	}

	m := &MultisampleMap{Zones: make([]KeyZone, len(samples))}
	low := 0
	for i, s := range samples {
		high := 127
		if i+1 < len(samples) {
			high = (s.Note + samples[i+1].Note) / 2
		}
		m.Zones[i] = KeyZone{Sample: s, Low: low, High: high, Root: s.Note}
		low = high + 1
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the zones cover 0..127 exactly once, in order, and
// that every zone contains its root key.
func (m *MultisampleMap) Validate() error {
	if len(m.Zones) == 0 {
		return errors.Wrap(ErrConfig, "map has no zones")
	}
	next := 0
	for i, z := range m.Zones {
		if z.Low != next {
			return errors.Wrapf(ErrConfig, "zone %d starts at %d, want %d", i, z.Low, next)
		}
		if z.High < z.Low {
			return errors.Wrapf(ErrConfig, "zone %d is empty (%d..%d)", i, z.Low, z.High)
		}
		if z.Root < z.Low || z.Root > z.High {
			return errors.Wrapf(ErrConfig, "zone %d root %d outside %d..%d", i, z.Root, z.Low, z.High)
		}
		next = z.High + 1
	}
	if next != 128 {
		return errors.Wrapf(ErrConfig, "zones end at %d, want 127", next-1)
	}
	return nil
}

// ZoneFor returns the zone containing key.
func (m *MultisampleMap) ZoneFor(key int) (KeyZone, bool) {
	for _, z := range m.Zones {
		if key >= z.Low && key <= z.High {
			return z, true
		}
	}
	return KeyZone{}, false
}
