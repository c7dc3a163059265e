package main

import "testing"

func renderSamples(e *envelope, gate bool, n int) float32 {
	var v float32
	for i := 0; i < n; i += blockSize {
		v = e.render(gate, blockSize)
	}
	return v
}

func TestOperatorEnvelopeCycle(t *testing.T) {
	e := newEnvelope(float32(referenceSampleRate)/SampleRate, true)
	e.setOperator([4]uint8{99, 99, 99, 99}, [4]uint8{99, 99, 99, 0}, operatorLevel(99))

	if !e.released() {
		t.Fatal("a fresh envelope should be idle in its release stage")
	}

	sustain := renderSamples(&e, true, SampleRate/10)
	if sustain != 15 {
		t.Errorf("sustain level = %v, want 15", sustain)
	}
	if e.stage != 2 {
		t.Errorf("stage after attack = %d, want 2", e.stage)
	}

	first := e.render(false, blockSize)
	if first >= sustain {
		t.Errorf("release did not start falling: %v", first)
	}
	end := renderSamples(&e, false, SampleRate)
	if !e.released() {
		t.Error("release did not finish within a second")
	}
	if end != 0.125*0.5 {
		t.Errorf("release floor = %v, want %v", end, 0.125*0.5)
	}
}

func TestOperatorEnvelopeSlowAttack(t *testing.T) {
	e := newEnvelope(1, true)
	e.setOperator([4]uint8{40, 99, 99, 99}, [4]uint8{99, 99, 99, 0}, operatorLevel(99))

	prev := float32(-1)
	for i := 0; i < 40; i++ {
		v := e.render(true, blockSize)
		if v < prev {
			t.Fatalf("attack went down at block %d: %v < %v", i, v, prev)
		}
		prev = v
	}
	if prev >= 15 {
		t.Errorf("rate 40 attack finished within 40 blocks")
	}
}

func TestOperatorEnvelopeLevels(t *testing.T) {
	e := newEnvelope(1, true)
	e.setOperator([4]uint8{99, 99, 99, 99}, [4]uint8{99, 50, 0, 0}, operatorLevel(0))
	for i, l := range e.level {
		if l != 0.125*0.5 {
			t.Errorf("output level 0: stage %d level = %v, want floor", i, l)
		}
	}

	e.setOperator([4]uint8{99, 99, 99, 99}, [4]uint8{99, 50, 0, 0}, operatorLevel(99))
	if !(e.level[0] > e.level[1] && e.level[1] > e.level[2]) {
		t.Errorf("levels not decreasing: %v", e.level)
	}
}

func TestPitchEnvelope(t *testing.T) {
	e := newEnvelope(1, false)
	e.setPitch([4]uint8{99, 99, 99, 99}, [4]uint8{50, 50, 50, 50})
	for i := 0; i < 100; i++ {
		if v := e.render(i < 50, blockSize); v != 0 {
			t.Fatalf("flat pitch envelope moved to %v", v)
		}
	}

	e = newEnvelope(1, false)
	e.setPitch([4]uint8{99, 99, 99, 99}, [4]uint8{99, 50, 50, 50})
	renderSamples(&e, true, 48)
	if v := e.value(); e.stage != 0 || v <= 0 {
		t.Errorf("pitch envelope at stage %d value %v, want rising in stage 0", e.stage, v)
	}
	if got := pitchEnvelopeLevel(99); got <= 1.5 {
		t.Errorf("pitchEnvelopeLevel(99) = %v octaves, want above 1.5", got)
	}
	if got := pitchEnvelopeLevel(0); got >= -1.5 {
		t.Errorf("pitchEnvelopeLevel(0) = %v octaves, want below -1.5", got)
	}
}
