package main

import (
	"context"
	"log"
	"runtime"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RenderConfig selects the notes and timing of a multisample render.
type RenderConfig struct {
	KeyOn     time.Duration
	MinNote   int
	MaxNote   int
	Increment int
	// Workers caps concurrent renders; 0 means one per CPU.
	Workers int
}

// SampleNotes lists min, min+increment, ... up to max, with max always last.
func SampleNotes(minNote, maxNote, increment int) ([]int, error) {
	if increment <= 0 {
		return nil, errors.Wrapf(ErrConfig, "note increment %d must be positive", increment)
	}
	if minNote > maxNote {
		return nil, errors.Wrapf(ErrConfig, "min note %d above max note %d", minNote, maxNote)
	}
	if minNote < 0 || maxNote > 127 {
		return nil, errors.Wrapf(ErrRange, "note range %d..%d not in 0..127", minNote, maxNote)
	}

	var notes []int
	for n := minNote; ; n += increment {
		notes = append(notes, n)
		if maxNote-n < increment {
			break
		}
	}
	if notes[len(notes)-1] != maxNote {
		notes = append(notes, maxNote)
	}
	return notes, nil
}

// RenderSamples renders v at every note of cfg, in parallel, and returns the
// samples in ascending note order. The first failure cancels the pass.
func RenderSamples(ctx context.Context, v *Voice, cfg RenderConfig) ([]*RenderedSample, error) {
	notes, err := SampleNotes(cfg.MinNote, cfg.MaxNote, cfg.Increment)
	if err != nil {
		return nil, err
	}
	if _, err := keyOnSamples(cfg.KeyOn); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	samples := make([]*RenderedSample, len(notes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, note := range notes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := Render(v, note, cfg.KeyOn)
			if err != nil {
				return errors.WithMessagef(err, "note %d", note)
			}
			log.Printf("[render] note %d: %d samples (%v)", note, len(s.PCM), s.Duration().Round(time.Millisecond))
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(samples, func(a, b int) bool { return samples[a].Note < samples[b].Note })
	return samples, nil
}
