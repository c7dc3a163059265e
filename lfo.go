package main

// LFO waveforms in panel order.
const (
	lfoTriangle = iota
	lfoSawDown
	lfoSawUp
	lfoSquare
	lfoSine
	lfoSampleHold
)

// noise is the sample-and-hold source. A fixed seed keeps renders
// reproducible.
type noise struct{ state uint32 }

func newNoise() noise { return noise{state: 0x21} }

func (n *noise) float() float32 {
	n.state = n.state*1664525 + 1013904223
	return float32(n.state) / 4294967296.0
}

// lfo is the voice-wide modulation oscillator. Frequencies and delay
// increments are in cycles per sample.
type lfo struct {
	phase     float32
	frequency float32

	delayPhase     float32
	delayIncrement [2]float32
	delayRamp      float32

	waveform   uint8
	resetPhase bool

	ampModDepth   float32
	pitchModDepth float32

	value  float32
	random float32
	rng    noise
}

func newLFO(p LFO, sampleRate float32) lfo {
	oneHz := 1 / sampleRate
	delay := lfoDelay(int(p.Delay))
	return lfo{
		frequency:      lfoFrequency(int(p.Rate)) * oneHz,
		delayIncrement: [2]float32{delay[0] * oneHz, delay[1] * oneHz},
		waveform:       p.Waveform,
		resetPhase:     p.Sync != 0,
		ampModDepth:    float32(p.AmpModDepth) * 0.01,
		pitchModDepth:  float32(p.PitchModDepth) * 0.01 * pitchModSensitivity[p.PitchModSensitivity],
		rng:            newNoise(),
	}
}

// keyOn restarts the delay and, with sync on, the waveform.
func (l *lfo) keyOn() {
	if l.resetPhase {
		l.phase = 0
	}
	l.delayPhase = 0
}

func (l *lfo) step(samples float32) {
	l.phase += l.frequency * samples
	if l.phase >= 1 {
		l.phase -= 1
		l.random = l.rng.float()
	}
	l.value = l.waveformValue()

	inc := l.delayIncrement[1]
	if l.delayPhase < 0.5 {
		inc = l.delayIncrement[0]
	}
	l.delayPhase = min(l.delayPhase+inc*samples, 1)
	if l.delayPhase < 0.5 {
		l.delayRamp = 0
	} else {
		l.delayRamp = (l.delayPhase - 0.5) * 2
	}
}

func (l *lfo) waveformValue() float32 {
	switch l.waveform {
	case lfoTriangle:
		if l.phase < 0.5 {
			return 2 * (0.5 - l.phase)
		}
		return 2 * (l.phase - 0.5)
	case lfoSawDown:
		return 1 - l.phase
	case lfoSawUp:
		return l.phase
	case lfoSquare:
		if l.phase < 0.5 {
			return 0
		}
		return 1
	case lfoSine:
		return 0.5 + 0.5*sine(l.phase+0.5)
	default:
		return l.random
	}
}

// pitchMod is in octaves.
func (l *lfo) pitchMod() float32 {
	return (l.value - 0.5) * l.delayRamp * l.pitchModDepth
}

func (l *lfo) ampMod() float32 {
	return (1 - l.value) * l.delayRamp * l.ampModDepth
}
