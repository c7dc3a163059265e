package main

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// risingZeroCrossings counts upward zero crossings in pcm.
func risingZeroCrossings(pcm []float32) int {
	n := 0
	for i := 1; i < len(pcm); i++ {
		if pcm[i-1] < 0 && pcm[i] >= 0 {
			n++
		}
	}
	return n
}

func TestRenderInitVoicePitch(t *testing.T) {
	tests := []struct {
		note      int
		transpose uint8
		hz        int
	}{
		{69, TransposeCentre, 440},
		{57, TransposeCentre, 220},
		{69, TransposeCentre + 12, 880},
	}
	for _, tt := range tests {
		v := InitVoice()
		v.Transpose = tt.transpose
		s, err := Render(v, tt.note, time.Second)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		// Half a second of the held part, after the attack.
		held := s.PCM[SampleRate/10 : SampleRate/10+SampleRate/2]
		got := risingZeroCrossings(held)
		if want := tt.hz / 2; got < want-2 || got > want+2 {
			t.Errorf("note %d transpose %d: %d cycles in 0.5 s, want about %d", tt.note, tt.transpose, got, want)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	v := randomVoice(rand.New(rand.NewSource(99)), "DETERMINE ")
	a, err := Render(v, 64, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := Render(v, 64, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(a.PCM) != len(b.PCM) {
		t.Fatalf("lengths differ: %d vs %d", len(a.PCM), len(b.PCM))
	}
	for i := range a.PCM {
		if math.Float32bits(a.PCM[i]) != math.Float32bits(b.PCM[i]) {
			t.Fatalf("sample %d differs: %v vs %v", i, a.PCM[i], b.PCM[i])
		}
	}
}

func TestRenderLength(t *testing.T) {
	v := InitVoice()
	s, err := Render(v, 60, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if s.KeyOnSamples != 4800 {
		t.Errorf("KeyOnSamples = %d, want 4800", s.KeyOnSamples)
	}
	if s.Note != 60 || s.SampleRate != SampleRate {
		t.Errorf("note %d rate %d", s.Note, s.SampleRate)
	}
	tail := len(s.PCM) - s.KeyOnSamples
	if tail <= 0 || tail > SampleRate/2 {
		t.Errorf("release tail of a fast-release voice is %d samples", tail)
	}
	if last := s.PCM[len(s.PCM)-1]; math.Abs(float64(last)) > 1e-3 {
		t.Errorf("voice still sounding at end of buffer: %v", last)
	}
	if d := s.Duration(); d <= 100*time.Millisecond || d > 600*time.Millisecond {
		t.Errorf("Duration = %v", d)
	}

	// Odd key-on lengths end in a partial block.
	s, err = Render(v, 60, 1001*time.Microsecond)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if s.KeyOnSamples != 48 {
		t.Errorf("KeyOnSamples = %d, want 48", s.KeyOnSamples)
	}
}

func TestRenderReleaseTailIsCapped(t *testing.T) {
	v := InitVoice()
	v.Operators[0].Envelope.Levels[3] = 99
	s, err := Render(v, 60, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := s.KeyOnSamples + int(MaxReleaseTail.Seconds()*SampleRate)
	if len(s.PCM) != want {
		t.Errorf("a voice that never decays rendered %d samples, want %d", len(s.PCM), want)
	}
}

func TestRenderEndsWhenCarriersAreSilent(t *testing.T) {
	v := InitVoice()
	// OP2 modulates OP1 in algorithm 1 and never finishes its release.
	v.Operators[1].Envelope.Levels[3] = 99
	v.Operators[1].OutputLevel = 60
	s, err := Render(v, 60, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if tail := len(s.PCM) - s.KeyOnSamples; tail > SampleRate/2 {
		t.Errorf("sustained modulator kept the render going for %d samples", tail)
	}
}

func TestRenderSlowReleaseIsLonger(t *testing.T) {
	fast, err := Render(InitVoice(), 60, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	v := InitVoice()
	v.Operators[0].Envelope.Rates[3] = 40
	slow, err := Render(v, 60, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(slow.PCM) <= len(fast.PCM) {
		t.Errorf("release rate 40 tail (%d) not longer than rate 99 (%d)", len(slow.PCM), len(fast.PCM))
	}
}

func TestRenderErrors(t *testing.T) {
	v := InitVoice()
	for _, note := range []int{-1, 128, 1000} {
		if _, err := Render(v, note, time.Second); !errors.Is(err, ErrRange) {
			t.Errorf("note %d: expected ErrRange, got %v", note, err)
		}
	}
	for _, d := range []time.Duration{0, -time.Second, 10 * time.Nanosecond, MaxKeyOn + time.Millisecond} {
		if _, err := Render(v, 60, d); !errors.Is(err, ErrConfig) {
			t.Errorf("key-on %v: expected ErrConfig, got %v", d, err)
		}
	}

	bad := InitVoice()
	bad.Algorithm = 33
	if _, err := Render(bad, 60, time.Second); !errors.Is(err, ErrRange) {
		t.Errorf("algorithm 33: expected ErrRange, got %v", err)
	}
}

func TestRenderModulationChangesOutput(t *testing.T) {
	base := InitVoice()
	base.Algorithm = 32
	base.Operators[5].OutputLevel = 99

	ref, err := Render(base, 60, 200*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	variants := map[string]func(v *Voice){
		"feedback": func(v *Voice) { v.Feedback = 7 },
		"modulator": func(v *Voice) {
			v.Algorithm = 1
			v.Operators[1].OutputLevel = 90
		},
		"lfo amp": func(v *Voice) {
			v.LFO.AmpModDepth = 99
			v.LFO.Rate = 70
			v.Operators[0].AmpModSensitivity = 3
		},
		"lfo pitch": func(v *Voice) {
			v.LFO.PitchModDepth = 99
			v.LFO.Rate = 70
			v.LFO.PitchModSensitivity = 7
		},
		"pitch envelope": func(v *Voice) { v.PitchEnvelope.Levels = [4]uint8{80, 50, 50, 50} },
		"fixed frequency": func(v *Voice) {
			v.Operators[0].Mode = 1
			v.Operators[0].Coarse = 2
		},
	}
	for name, mutate := range variants {
		v := *base
		mutate(&v)
		s, err := Render(&v, 60, 200*time.Millisecond)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		same := true
		for i := 0; i < s.KeyOnSamples && i < ref.KeyOnSamples; i++ {
			if s.PCM[i] != ref.PCM[i] {
				same = false
				break
			}
		}
		if same {
			t.Errorf("%s: output identical to the unmodulated voice", name)
		}
	}
}

func TestRenderAllAlgorithms(t *testing.T) {
	for id := 1; id <= 32; id++ {
		v := InitVoice()
		v.Algorithm = uint8(id)
		v.Feedback = 6
		for i := range v.Operators {
			v.Operators[i].OutputLevel = 80
			v.Operators[i].Coarse = uint8(i + 1)
		}
		s, err := Render(v, 48, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("algorithm %d: %v", id, err)
		}
		var peak float64
		for _, x := range s.PCM {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				t.Fatalf("algorithm %d produced %v", id, x)
			}
			peak = math.Max(peak, math.Abs(float64(x)))
		}
		if peak == 0 {
			t.Errorf("algorithm %d is silent", id)
		}
	}
}
