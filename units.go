package main

import "math"

// Conversions from DX7 parameter values to engine units. Rates, levels and
// the LFO tables follow the DX7's own integer arithmetic.

const (
	sineLUTBits = 9
	sineLUTSize = 1 << sineLUTBits

	minLFOFrequency = 0.005865
)

// sineLUT holds one sine cycle plus a guard entry for interpolation. Built
// once in init and read-only afterwards.
var sineLUT [sineLUTSize + 1]float32

func init() {
	for i := range sineLUT {
		sineLUT[i] = float32(math.Sin(2 * math.Pi * float64(i) / sineLUTSize))
	}
}

// sinePM returns sin(2π(phase/2³² + pm)) with linear interpolation.
func sinePM(phase uint32, pm float32) float32 {
	const maxIndex = 32
	if pm > maxIndex-1 {
		pm = maxIndex - 1
	} else if pm < -(maxIndex - 1) {
		pm = -(maxIndex - 1)
	}
	offset := uint32((pm + maxIndex) * (4294967296.0 / (maxIndex * 2)))
	phase += offset * (maxIndex * 2)

	integral := phase >> (32 - sineLUTBits)
	fractional := float32(phase<<sineLUTBits) / 4294967296.0
	a := sineLUT[integral]
	b := sineLUT[integral+1]
	return a + (b-a)*fractional
}

// sine returns sin(2π·phase) for a phase in cycles.
func sine(phase float32) float32 {
	return sinePM(uint32(uint64(float64(wrap01(phase))*4294967296.0)), 0)
}

func wrap01(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

func pow2(x float32) float32 {
	return float32(math.Exp2(float64(x)))
}

func semitonesToRatio(semitones float32) float32 {
	return pow2(semitones / 12)
}

var coarseSemitones = [32]float32{
	-12.000000, 0.000000, 12.000000, 19.019550, 24.000000, 27.863137,
	31.019550, 33.688259, 36.000000, 38.039100, 39.863137, 41.513180,
	43.019550, 44.405276, 45.688259, 46.882687, 48.000000, 49.049554,
	50.039100, 50.975130, 51.863137, 52.707809, 53.513180, 54.282743,
	55.019550, 55.726274, 56.405276, 57.058650, 57.688259, 58.295772,
	58.882687, 59.450356,
}

var ampModSensitivity = [4]float32{0.0, 0.2588, 0.4274, 1.0}

var pitchModSensitivity = [8]float32{
	0.0, 0.0781250, 0.1562500, 0.2578125, 0.4296875, 0.7187500, 1.1953125, 2.0,
}

var cubeRoot = [17]float32{
	0.0, 0.39685062976, 0.50000000000, 0.57235744065, 0.62996081605,
	0.67860466725, 0.72112502092, 0.75914745216, 0.79370070937, 0.82548197054,
	0.85498810729, 0.88258719406, 0.90856038354, 0.93312785379, 0.95646563396,
	0.97871693135, 1.0,
}

func interpolate(table []float32, index, size float32) float32 {
	index *= size
	i := int(index)
	if i > len(table)-2 {
		i = len(table) - 2
	}
	frac := index - float32(i)
	return table[i] + (table[i+1]-table[i])*frac
}

// operatorLevel maps a 0..99 level onto the DX7's internal 0..127 scale.
func operatorLevel(level int) int {
	if level >= 20 {
		return level + 28
	}
	if level < 15 {
		return (level * (36 - level)) >> 3
	}
	return 27 + level
}

func pitchEnvelopeLevel(level int) float32 {
	l := (float32(level) - 50) / 32
	tail := float32(math.Max(float64(abs32(l)+0.02-1), 0))
	return l * (1 + tail*tail*5.3056)
}

func operatorEnvelopeIncrement(rate int) float32 {
	scaled := (rate * 41) >> 6
	mantissa := 4 + (scaled & 3)
	exponent := 2 + (scaled >> 2)
	return float32(mantissa<<exponent) / (1 << 24)
}

func pitchEnvelopeIncrement(rate int) float32 {
	r := float32(rate) * 0.01
	return (1 + 192*r*(r*r*r*r+0.3333)) / (21.3 * 44100)
}

// lfoFrequency is in cycles per second.
func lfoFrequency(rate int) float32 {
	scaled := 1
	if rate != 0 {
		scaled = (rate * 165) >> 6
	}
	if scaled < 160 {
		scaled *= 11
	} else {
		scaled *= 11 + ((scaled - 160) >> 4)
	}
	return float32(scaled) * minLFOFrequency
}

// lfoDelay returns the delay ramp increments (per second) before and after
// the delay phase reaches its midpoint.
func lfoDelay(delay int) [2]float32 {
	if delay == 0 {
		return [2]float32{100000, 100000}
	}
	d := 99 - delay
	d = (16 + (d & 15)) << (1 + (d >> 4))
	second := d & 0xff80
	if second < 0x80 {
		second = 0x80
	}
	return [2]float32{float32(d) * minLFOFrequency, float32(second) * minLFOFrequency}
}

// normalizeVelocity maps a 0..1 velocity onto the DX7 sensitivity scale.
func normalizeVelocity(velocity float32) float32 {
	return 16 * (interpolate(cubeRoot[:], velocity, 16) - 0.918)
}

func rateScaling(note float32, sensitivity int) float32 {
	return pow2(float32(sensitivity) * (note*0.33333 - 7) * 0.03125)
}

// keyboardScaling returns the level offset for note relative to the break
// point. Break point 0 is MIDI note 21 (A-1).
func keyboardScaling(note float32, ks KeyScaling) float32 {
	x := note - float32(ks.BreakPoint) - 21
	curve, depth := ks.LeftCurve, ks.LeftDepth
	if x > 0 {
		curve, depth = ks.RightCurve, ks.RightDepth
	}

	t := abs32(x)
	if curve == 1 || curve == 2 {
		t = min(t*0.010467, 1)
		t = t * t * t * 96
	}
	if curve < 2 {
		t = -t
	}
	return t * float32(depth) * 0.02677
}

// frequencyRatio is a multiple of the note frequency in ratio mode and an
// absolute frequency in Hz in fixed mode.
func frequencyRatio(op *Operator) float32 {
	fine := float32(1)
	var semitones float32
	if op.Fixed() {
		semitones = float32(int(op.Coarse&3)*100+int(op.Fine)) * 0.39864
	} else {
		semitones = coarseSemitones[op.Coarse]
		if op.Fine != 0 {
			fine = 1 + 0.01*float32(op.Fine)
		}
	}
	semitones += (float32(op.Detune) - DetuneCentre) * 0.015
	return semitonesToRatio(semitones) * fine
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
