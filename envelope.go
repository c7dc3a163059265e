package main

// previousLevel marks a segment that starts from the level of the stage
// before it rather than from a captured value.
const previousLevel = -100

const (
	envStages       = 4
	envReleaseStage = envStages - 1
)

// envelope is the DX7 four-stage rate/level generator. Stages 0..2 run while
// the key is held (stage 2 sustains), stage 3 is the release.
type envelope struct {
	stage     int
	phase     float32
	start     float32
	increment [envStages]float32
	level     [envStages]float32
	scale     float32

	// Operator envelopes bend ascending segments into the DX7's
	// fast-then-slow attack shape; pitch envelopes stay linear.
	reshapeAscending bool
}

func newEnvelope(scale float32, reshapeAscending bool) envelope {
	e := envelope{
		stage:            envReleaseStage,
		phase:            1,
		scale:            scale,
		reshapeAscending: reshapeAscending,
	}
	for i := range e.increment {
		e.increment[i] = 0.001
		e.level[i] = 1 / float32(int(1)<<i)
	}
	e.level[envReleaseStage] = 0
	return e
}

// setOperator programs an amplitude envelope. outputLevel is already on the
// 0..127 scale returned by operatorLevel.
func (e *envelope) setOperator(rates, levels [4]uint8, outputLevel int) {
	for i := range e.level {
		scaled := (operatorLevel(int(levels[i])) &^ 1) + outputLevel - 133
		if scaled < 1 {
			e.level[i] = 0.125 * 0.5
		} else {
			e.level[i] = 0.125 * float32(scaled)
		}
	}

	for i := range e.increment {
		inc := operatorEnvelopeIncrement(int(rates[i]))
		from := e.level[(i+envStages-1)%envStages]
		to := e.level[i]
		switch {
		case from == to:
			// Plateaus still take time on the DX7.
			inc *= 0.6
			if i == 0 && levels[i] == 0 {
				inc *= 20
			}
		case from < to:
			from, to = max(from, 6.7), max(to, 6.7)
			if from == to {
				inc = 1
			} else {
				inc *= 7.2 / (to - from)
			}
		default:
			inc *= 1 / (from - to)
		}
		e.increment[i] = inc * e.scale
	}
}

// setPitch programs a pitch envelope; levels are in octaves.
func (e *envelope) setPitch(rates, levels [4]uint8) {
	for i := range e.level {
		e.level[i] = pitchEnvelopeLevel(int(levels[i]))
	}
	for i := range e.increment {
		from := e.level[(i+envStages-1)%envStages]
		to := e.level[i]
		inc := pitchEnvelopeIncrement(int(rates[i]))
		if from != to {
			inc *= 1 / abs32(from-to)
		} else if i != envReleaseStage {
			inc = 0.2
		}
		e.increment[i] = inc * e.scale
	}
}

// render advances the envelope by rate samples and returns its level.
func (e *envelope) render(gate bool, rate float32) float32 {
	if gate {
		if e.stage == envReleaseStage {
			e.start = e.value()
			e.stage = 0
			e.phase = 0
		}
	} else if e.stage != envReleaseStage {
		e.start = e.value()
		e.stage = envReleaseStage
		e.phase = 0
	}

	e.phase += e.increment[e.stage] * rate
	if e.phase >= 1 {
		if e.stage >= envStages-2 {
			e.phase = 1
		} else {
			e.phase = 0
			e.stage++
		}
		e.start = previousLevel
	}
	return e.value()
}

// released reports whether the release segment has run to completion.
func (e *envelope) released() bool {
	return e.stage == envReleaseStage && e.phase >= 1
}

func (e *envelope) value() float32 {
	return e.valueAt(e.stage, e.phase, e.start)
}

func (e *envelope) valueAt(stage int, phase, start float32) float32 {
	from := start
	if start == previousLevel {
		from = e.level[(stage+envStages-1)%envStages]
	}
	to := e.level[stage]
	if e.reshapeAscending && from < to {
		from, to = max(from, 6.7), max(to, 6.7)
		phase *= (2.5 - phase) * 0.666667
	}
	return phase*(to-from) + from
}
