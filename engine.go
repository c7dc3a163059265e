package main

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// SampleRate is the fixed output rate of every render.
	SampleRate = 48000

	// Parameters (envelopes, LFO, pitch) update once per block; operator
	// amplitudes are interpolated across it.
	blockSize = 24

	// Envelope rates are defined at the DX7's 44.1 kHz reference.
	referenceSampleRate = 44100

	// MaxKeyOn bounds the held part of a note.
	MaxKeyOn = 60 * time.Second
	// MaxReleaseTail bounds rendering after key-off.
	MaxReleaseTail = 10 * time.Second

	// An operator below this amplitude (about -80 dBFS) counts as silent.
	silenceThreshold = 1e-4

	// Batch renders play every note at this MIDI velocity.
	defaultVelocity = 100
)

// RenderedSample is one note rendered by the engine.
type RenderedSample struct {
	Note         int
	SampleRate   int
	PCM          []float32
	KeyOnSamples int
}

// Duration is the key-on time plus the release tail.
func (s *RenderedSample) Duration() time.Duration {
	return time.Duration(len(s.PCM)) * time.Second / time.Duration(s.SampleRate)
}

type operatorState struct {
	phase     uint32
	amplitude float32
}

// voiceEngine is the per-render synthesis state for one voice at one note.
type voiceEngine struct {
	voice *Voice
	alg   *Algorithm

	note  float32 // transposed, in MIDI semitones
	oneHz float32
	a0    float32

	ratios    [6]float32
	opEnv     [6]envelope
	pitchEnv  envelope
	rateScale [6]float32
	// Constant per render: key scaling plus velocity, limited by headroom.
	levelOffset [6]float32

	lfo      lfo
	ops      [6]operatorState
	feedback [2]float32
	gate     bool

	amplitude [6]float32
}

func newVoiceEngine(v *Voice, note int) (*voiceEngine, error) {
	if note < 0 || note > 127 {
		return nil, errors.Wrapf(ErrRange, "MIDI note %d not in 0..127", note)
	}
	alg, err := AlgorithmByID(int(v.Algorithm))
	if err != nil {
		return nil, err
	}
	if v.Transpose > 48 || v.Feedback > 7 || v.LFO.PitchModSensitivity > 7 {
		return nil, errors.Wrapf(ErrRange, "voice %q has parameters outside their domain", v.Name)
	}

	e := &voiceEngine{
		voice: v,
		alg:   alg,
		note:  float32(note) - TransposeCentre + float32(v.Transpose),
		oneHz: 1.0 / SampleRate,
		a0:    55.0 / SampleRate,
		lfo:   newLFO(v.LFO, SampleRate),
	}

	scale := float32(referenceSampleRate) / SampleRate
	e.pitchEnv = newEnvelope(scale, false)
	e.pitchEnv.setPitch(v.PitchEnvelope.Rates, v.PitchEnvelope.Levels)

	velocity := normalizeVelocity(defaultVelocity / 127.0)
	for i := range v.Operators {
		op := &v.Operators[i]
		if op.Coarse > 31 || op.AmpModSensitivity > 3 || op.OutputLevel > 99 {
			return nil, errors.Wrapf(ErrRange, "OP%d has parameters outside their domain", i+1)
		}
		level := operatorLevel(int(op.OutputLevel))
		e.opEnv[i] = newEnvelope(scale, true)
		e.opEnv[i].setOperator(op.Envelope.Rates, op.Envelope.Levels, level)

		e.ratios[i] = frequencyRatio(op)
		e.rateScale[i] = rateScaling(e.note, int(op.RateScaling))

		headroom := float32(127 - level)
		offset := keyboardScaling(e.note, op.KeyScaling) + velocity*float32(op.VelocitySensitivity)
		e.levelOffset[i] = 0.125 * min(offset, headroom)
	}
	return e, nil
}

// renderBlock renders len(out) samples, at most blockSize.
func (e *voiceEngine) renderBlock(gate bool, out []float32) {
	size := len(out)
	rate := float32(size)

	if gate && !e.gate {
		if e.voice.OscKeySync != 0 {
			for i := range e.ops {
				e.ops[i].phase = 0
			}
		}
		e.lfo.keyOn()
	}
	e.gate = gate

	e.lfo.step(rate)
	pitchMod := e.pitchEnv.render(gate, rate) + e.lfo.pitchMod()
	f0 := e.a0 * 0.25 * semitonesToRatio(e.note-9+pitchMod*12)
	ampMod := e.lfo.ampMod()

	var frequency [6]uint32
	var increment [6]float32
	for i := range e.voice.Operators {
		op := &e.voice.Operators[i]

		f := e.ratios[i] * f0
		if op.Fixed() {
			f = e.ratios[i] * e.oneHz * pow2(pitchMod)
		}
		frequency[i] = uint32(min(f, 0.5) * 4294967296.0)

		level := e.opEnv[i].render(gate, rate*e.rateScale[i]) + e.levelOffset[i]
		levelMod := 1 - pow2(6.4*(ampModSensitivity[op.AmpModSensitivity]*ampMod-1))
		a := min(pow2(-14+level*levelMod), 4)
		e.amplitude[i] = a
		increment[i] = (a - e.ops[i].amplitude) / rate
	}

	var fbScale float32
	if e.voice.Feedback != 0 {
		fbScale = float32(int(1)<<e.voice.Feedback) / 512
	}

	alg := e.alg
	var outputs [6]float32
	for s := range out {
		for _, i := range alg.Order {
			var pm float32
			for _, m := range alg.Modulators[i] {
				pm += outputs[m]
			}
			if i == alg.FeedbackDst {
				pm += (e.feedback[0] + e.feedback[1]) * fbScale
			}

			st := &e.ops[i]
			st.phase += frequency[i]
			y := sinePM(st.phase, pm) * st.amplitude
			st.amplitude += increment[i]
			outputs[i] = y

			if i == alg.FeedbackSrc {
				e.feedback[1] = e.feedback[0]
				e.feedback[0] = y
			}
		}

		var sum float32
		for _, c := range alg.Carriers {
			sum += outputs[c]
		}
		out[s] = sum
	}
}

// silent reports whether every operator is in its release and every carrier
// has either decayed below the silence threshold or finished releasing to
// level 0. Modulators reach the output only through carriers.
func (e *voiceEngine) silent() bool {
	for i := range e.opEnv {
		if e.opEnv[i].stage != envReleaseStage {
			return false
		}
	}
	for _, c := range e.alg.Carriers {
		done := e.opEnv[c].released() && e.voice.Operators[c].Envelope.Levels[envReleaseStage] == 0
		if e.amplitude[c] >= silenceThreshold && !done {
			return false
		}
	}
	return true
}

func keyOnSamples(keyOn time.Duration) (int, error) {
	if keyOn <= 0 {
		return 0, errors.Wrapf(ErrConfig, "key-on duration %v must be positive", keyOn)
	}
	if keyOn > MaxKeyOn {
		return 0, errors.Wrapf(ErrConfig, "key-on duration %v exceeds %v", keyOn, MaxKeyOn)
	}
	n := int(int64(keyOn) * SampleRate / int64(time.Second))
	if n == 0 {
		return 0, errors.Wrapf(ErrConfig, "key-on duration %v is shorter than one sample", keyOn)
	}
	return n, nil
}

// Render synthesizes v at note, holding the key for keyOn and then rendering
// the release until the voice is silent or MaxReleaseTail has elapsed. The
// result depends only on its arguments.
func Render(v *Voice, note int, keyOn time.Duration) (*RenderedSample, error) {
	held, err := keyOnSamples(keyOn)
	if err != nil {
		return nil, err
	}
	e, err := newVoiceEngine(v, note)
	if err != nil {
		return nil, err
	}

	pcm := make([]float32, 0, held+SampleRate)
	block := make([]float32, blockSize)
	for n := 0; n < held; n += blockSize {
		b := block[:min(blockSize, held-n)]
		e.renderBlock(true, b)
		pcm = append(pcm, b...)
	}

	maxTail := int(int64(MaxReleaseTail) * SampleRate / int64(time.Second))
	for n := 0; n < maxTail; n += blockSize {
		b := block[:min(blockSize, maxTail-n)]
		e.renderBlock(false, b)
		pcm = append(pcm, b...)
		if e.silent() {
			break
		}
	}

	return &RenderedSample{
		Note:         note,
		SampleRate:   SampleRate,
		PCM:          pcm,
		KeyOnSamples: held,
	}, nil
}
