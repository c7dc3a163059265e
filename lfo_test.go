package main

import "testing"

func TestLFODelayAndFadeIn(t *testing.T) {
	l := newLFO(LFO{
		Rate: 70, Delay: 50, PitchModDepth: 99, AmpModDepth: 99,
		PitchModSensitivity: 7, Waveform: lfoSawUp,
	}, SampleRate)
	l.keyOn()

	delayed, ramp := 0, float32(0)
	for block := 0; block < 10*SampleRate/blockSize; block++ {
		l.step(blockSize)
		if l.delayPhase < 0.5 {
			if l.pitchMod() != 0 || l.ampMod() != 0 {
				t.Fatalf("block %d: modulation %v/%v during the delay", block, l.pitchMod(), l.ampMod())
			}
			delayed++
			continue
		}
		if l.delayRamp < ramp {
			t.Fatalf("block %d: fade-in fell from %v to %v", block, ramp, l.delayRamp)
		}
		ramp = l.delayRamp
		if ramp == 1 {
			break
		}
	}
	if ramp != 1 {
		t.Fatalf("fade-in stopped at %v", ramp)
	}
	// Delay 50 holds the LFO back for roughly 0.3 s.
	if got := float64(delayed*blockSize) / SampleRate; got < 0.25 || got > 0.4 {
		t.Errorf("delay lasted %.3f s", got)
	}

	// keyOn restarts the delay.
	l.keyOn()
	l.step(blockSize)
	if l.delayRamp != 0 {
		t.Errorf("delay ramp %v right after key-on", l.delayRamp)
	}
}

func TestLFONoDelay(t *testing.T) {
	l := newLFO(LFO{Rate: 35, AmpModDepth: 99, Waveform: lfoSquare}, SampleRate)
	l.keyOn()
	l.step(blockSize)
	if l.delayRamp != 1 {
		t.Errorf("delay 0: ramp %v after one block, want 1", l.delayRamp)
	}
}

func TestLFOWaveforms(t *testing.T) {
	tests := []struct {
		waveform uint8
		phase    float32
		want     float64
	}{
		{lfoTriangle, 0, 1},
		{lfoTriangle, 0.25, 0.5},
		{lfoTriangle, 0.5, 0},
		{lfoTriangle, 0.75, 0.5},
		{lfoSawDown, 0.25, 0.75},
		{lfoSawUp, 0.25, 0.25},
		{lfoSquare, 0.25, 0},
		{lfoSquare, 0.75, 1},
		{lfoSine, 0, 0.5},
		{lfoSine, 0.25, 0},
		{lfoSine, 0.75, 1},
	}
	for _, tt := range tests {
		l := newLFO(LFO{Waveform: tt.waveform}, SampleRate)
		l.phase = tt.phase
		if got := l.waveformValue(); !near(float64(got), tt.want, 1e-3) {
			t.Errorf("waveform %d at phase %v = %v, want %v", tt.waveform, tt.phase, got, tt.want)
		}
	}
}

func TestLFOSampleAndHoldIsReproducible(t *testing.T) {
	p := LFO{Rate: 99, PitchModDepth: 99, PitchModSensitivity: 7, Waveform: lfoSampleHold}
	run := func() []float32 {
		l := newLFO(p, SampleRate)
		l.keyOn()
		var out []float32
		for i := 0; i < 2000; i++ {
			l.step(blockSize)
			out = append(out, l.value)
		}
		return out
	}

	a, b := run(), run()
	distinct := map[float32]bool{}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d: %v vs %v", i, a[i], b[i])
		}
		if a[i] < 0 || a[i] >= 1 {
			t.Fatalf("step %d: held value %v outside [0, 1)", i, a[i])
		}
		distinct[a[i]] = true
	}
	if len(distinct) < 10 {
		t.Errorf("only %d distinct held values in 2000 blocks", len(distinct))
	}
}
