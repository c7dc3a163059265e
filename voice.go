package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// PackedVoiceSize is the size of one voice record inside a 32-voice bulk dump.
	PackedVoiceSize = 128
	// VCEDSize is the size of the unpacked single-voice parameter block.
	VCEDSize = 155

	packedOperatorSize = 17
	vcedOperatorSize   = 21
	voiceNameLen       = 10

	packedNameIdx = 118
	vcedNameIdx   = 145

	// TransposeCentre is the stored transpose value meaning "no transpose" (C3).
	TransposeCentre = 24
	// DetuneCentre is the stored detune value meaning "no detune".
	DetuneCentre = 7
)

type Envelope struct {
	Rates  [4]uint8 `json:"rates"`
	Levels [4]uint8 `json:"levels"`
}

type KeyScaling struct {
	BreakPoint uint8 `json:"break_point"`
	LeftDepth  uint8 `json:"left_depth"`
	RightDepth uint8 `json:"right_depth"`
	LeftCurve  uint8 `json:"left_curve"`
	RightCurve uint8 `json:"right_curve"`
}

type Operator struct {
	Envelope            Envelope   `json:"envelope"`
	KeyScaling          KeyScaling `json:"key_scaling"`
	RateScaling         uint8      `json:"rate_scaling"`
	AmpModSensitivity   uint8      `json:"amp_mod_sensitivity"`
	VelocitySensitivity uint8      `json:"velocity_sensitivity"`
	OutputLevel         uint8      `json:"output_level"`
	Mode                uint8      `json:"mode"` // 0 ratio, 1 fixed
	Coarse              uint8      `json:"coarse"`
	Fine                uint8      `json:"fine"`
	Detune              uint8      `json:"detune"`
}

// Fixed reports whether the operator runs at a fixed frequency.
func (op *Operator) Fixed() bool { return op.Mode == 1 }

type LFO struct {
	Rate                uint8 `json:"rate"`
	Delay               uint8 `json:"delay"`
	PitchModDepth       uint8 `json:"pitch_mod_depth"`
	AmpModDepth         uint8 `json:"amp_mod_depth"`
	Sync                uint8 `json:"sync"`
	Waveform            uint8 `json:"waveform"`
	PitchModSensitivity uint8 `json:"pitch_mod_sensitivity"`
}

// Voice is a decoded DX7 patch. Operators[0] is OP1.
type Voice struct {
	Operators     [6]Operator `json:"operators"`
	PitchEnvelope Envelope    `json:"pitch_envelope"`
	Algorithm     uint8       `json:"algorithm"` // 1..32
	Feedback      uint8       `json:"feedback"`
	OscKeySync    uint8       `json:"osc_key_sync"`
	LFO           LFO         `json:"lfo"`
	Transpose     uint8       `json:"transpose"`
	Name          string      `json:"name"`
}

// bitField locates one parameter inside a byte record. Values are read as
// (data[offset] >> shift) & (1<<width - 1) and must not exceed max once
// masked. bias is added after decoding and removed before encoding.
type bitField[T any] struct {
	name   string
	offset int
	shift  uint8
	width  uint8
	max    uint8
	bias   uint8
	ref    func(*T) *uint8
}

func (f bitField[T]) decode(data []byte, base int, dst *T) error {
	raw := (data[base+f.offset] >> f.shift) & (1<<f.width - 1)
	if raw > f.max {
		return errors.Wrapf(ErrFormat, "%s = %d at byte %d exceeds %d", f.name, raw, base+f.offset, f.max)
	}
	*f.ref(dst) = raw + f.bias
	return nil
}

func (f bitField[T]) encode(src *T, base int, data []byte) error {
	v := *f.ref(src)
	if v < f.bias || v-f.bias > f.max {
		return errors.Wrapf(ErrFormat, "%s = %d out of range", f.name, v)
	}
	data[base+f.offset] |= (v - f.bias) << f.shift
	return nil
}

func byteField[T any](name string, offset int, max uint8, ref func(*T) *uint8) bitField[T] {
	return bitField[T]{name: name, offset: offset, width: 7, max: max, ref: ref}
}

func envelopeFields[T any](prefix string, offset int, env func(*T) *Envelope) []bitField[T] {
	var fields []bitField[T]
	for i := 0; i < 4; i++ {
		i := i
		fields = append(fields,
			byteField(fmt.Sprintf("%s rate %d", prefix, i+1), offset+i, 99, func(t *T) *uint8 { return &env(t).Rates[i] }),
			byteField(fmt.Sprintf("%s level %d", prefix, i+1), offset+4+i, 99, func(t *T) *uint8 { return &env(t).Levels[i] }),
		)
	}
	return fields
}

func opEnv(op *Operator) *Envelope { return &op.Envelope }
func voicePEG(v *Voice) *Envelope { return &v.PitchEnvelope }
func opKS(op *Operator) *KeyScaling { return &op.KeyScaling }

// Packed 128-byte layout, offsets relative to the 17-byte operator block.
var packedOperatorFields = append(envelopeFields("op envelope", 0, opEnv),
	byteField("break point", 8, 99, func(op *Operator) *uint8 { return &opKS(op).BreakPoint }),
	byteField("left depth", 9, 99, func(op *Operator) *uint8 { return &opKS(op).LeftDepth }),
	byteField("right depth", 10, 99, func(op *Operator) *uint8 { return &opKS(op).RightDepth }),
	bitField[Operator]{name: "left curve", offset: 11, shift: 0, width: 2, max: 3, ref: func(op *Operator) *uint8 { return &opKS(op).LeftCurve }},
	bitField[Operator]{name: "right curve", offset: 11, shift: 2, width: 2, max: 3, ref: func(op *Operator) *uint8 { return &opKS(op).RightCurve }},
	bitField[Operator]{name: "rate scaling", offset: 12, shift: 0, width: 3, max: 7, ref: func(op *Operator) *uint8 { return &op.RateScaling }},
	bitField[Operator]{name: "detune", offset: 12, shift: 3, width: 4, max: 14, ref: func(op *Operator) *uint8 { return &op.Detune }},
	bitField[Operator]{name: "amp mod sensitivity", offset: 13, shift: 0, width: 2, max: 3, ref: func(op *Operator) *uint8 { return &op.AmpModSensitivity }},
	bitField[Operator]{name: "velocity sensitivity", offset: 13, shift: 2, width: 3, max: 7, ref: func(op *Operator) *uint8 { return &op.VelocitySensitivity }},
	byteField("output level", 14, 99, func(op *Operator) *uint8 { return &op.OutputLevel }),
	bitField[Operator]{name: "oscillator mode", offset: 15, shift: 0, width: 1, max: 1, ref: func(op *Operator) *uint8 { return &op.Mode }},
	bitField[Operator]{name: "coarse", offset: 15, shift: 1, width: 5, max: 31, ref: func(op *Operator) *uint8 { return &op.Coarse }},
	byteField("fine", 16, 99, func(op *Operator) *uint8 { return &op.Fine }),
)

var packedVoiceFields = append(envelopeFields("pitch envelope", 102, voicePEG),
	bitField[Voice]{name: "algorithm", offset: 110, width: 5, max: 31, bias: 1, ref: func(v *Voice) *uint8 { return &v.Algorithm }},
	bitField[Voice]{name: "feedback", offset: 111, shift: 0, width: 3, max: 7, ref: func(v *Voice) *uint8 { return &v.Feedback }},
	bitField[Voice]{name: "osc key sync", offset: 111, shift: 3, width: 1, max: 1, ref: func(v *Voice) *uint8 { return &v.OscKeySync }},
	byteField("lfo rate", 112, 99, func(v *Voice) *uint8 { return &v.LFO.Rate }),
	byteField("lfo delay", 113, 99, func(v *Voice) *uint8 { return &v.LFO.Delay }),
	byteField("lfo pitch mod depth", 114, 99, func(v *Voice) *uint8 { return &v.LFO.PitchModDepth }),
	byteField("lfo amp mod depth", 115, 99, func(v *Voice) *uint8 { return &v.LFO.AmpModDepth }),
	bitField[Voice]{name: "lfo sync", offset: 116, shift: 0, width: 1, max: 1, ref: func(v *Voice) *uint8 { return &v.LFO.Sync }},
	bitField[Voice]{name: "lfo waveform", offset: 116, shift: 1, width: 3, max: 5, ref: func(v *Voice) *uint8 { return &v.LFO.Waveform }},
	bitField[Voice]{name: "pitch mod sensitivity", offset: 116, shift: 4, width: 3, max: 7, ref: func(v *Voice) *uint8 { return &v.LFO.PitchModSensitivity }},
	byteField("transpose", 117, 48, func(v *Voice) *uint8 { return &v.Transpose }),
)

// Unpacked 155-byte layout used by single-voice dumps: one parameter per byte.
var vcedOperatorFields = append(envelopeFields("op envelope", 0, opEnv),
	byteField("break point", 8, 99, func(op *Operator) *uint8 { return &opKS(op).BreakPoint }),
	byteField("left depth", 9, 99, func(op *Operator) *uint8 { return &opKS(op).LeftDepth }),
	byteField("right depth", 10, 99, func(op *Operator) *uint8 { return &opKS(op).RightDepth }),
	byteField("left curve", 11, 3, func(op *Operator) *uint8 { return &opKS(op).LeftCurve }),
	byteField("right curve", 12, 3, func(op *Operator) *uint8 { return &opKS(op).RightCurve }),
	byteField("rate scaling", 13, 7, func(op *Operator) *uint8 { return &op.RateScaling }),
	byteField("amp mod sensitivity", 14, 3, func(op *Operator) *uint8 { return &op.AmpModSensitivity }),
	byteField("velocity sensitivity", 15, 7, func(op *Operator) *uint8 { return &op.VelocitySensitivity }),
	byteField("output level", 16, 99, func(op *Operator) *uint8 { return &op.OutputLevel }),
	byteField("oscillator mode", 17, 1, func(op *Operator) *uint8 { return &op.Mode }),
	byteField("coarse", 18, 31, func(op *Operator) *uint8 { return &op.Coarse }),
	byteField("fine", 19, 99, func(op *Operator) *uint8 { return &op.Fine }),
	byteField("detune", 20, 14, func(op *Operator) *uint8 { return &op.Detune }),
)

var vcedVoiceFields = append(envelopeFields("pitch envelope", 126, voicePEG),
	bitField[Voice]{name: "algorithm", offset: 134, width: 7, max: 31, bias: 1, ref: func(v *Voice) *uint8 { return &v.Algorithm }},
	byteField("feedback", 135, 7, func(v *Voice) *uint8 { return &v.Feedback }),
	byteField("osc key sync", 136, 1, func(v *Voice) *uint8 { return &v.OscKeySync }),
	byteField("lfo rate", 137, 99, func(v *Voice) *uint8 { return &v.LFO.Rate }),
	byteField("lfo delay", 138, 99, func(v *Voice) *uint8 { return &v.LFO.Delay }),
	byteField("lfo pitch mod depth", 139, 99, func(v *Voice) *uint8 { return &v.LFO.PitchModDepth }),
	byteField("lfo amp mod depth", 140, 99, func(v *Voice) *uint8 { return &v.LFO.AmpModDepth }),
	byteField("lfo sync", 141, 1, func(v *Voice) *uint8 { return &v.LFO.Sync }),
	byteField("lfo waveform", 142, 5, func(v *Voice) *uint8 { return &v.LFO.Waveform }),
	byteField("pitch mod sensitivity", 143, 7, func(v *Voice) *uint8 { return &v.LFO.PitchModSensitivity }),
	byteField("transpose", 144, 48, func(v *Voice) *uint8 { return &v.Transpose }),
)

// recordLayout describes one of the two voice encodings.
type recordLayout struct {
	size     int
	opSize   int
	nameIdx  int
	opFields []bitField[Operator]
	vcFields []bitField[Voice]
}

var (
	packedLayout = recordLayout{PackedVoiceSize, packedOperatorSize, packedNameIdx, packedOperatorFields, packedVoiceFields}
	vcedLayout   = recordLayout{VCEDSize, vcedOperatorSize, vcedNameIdx, vcedOperatorFields, vcedVoiceFields}
)

// operatorBase returns the start of operator k (0 = OP1). Both encodings store OP6 first.
func (l recordLayout) operatorBase(k int) int {
	return (5 - k) * l.opSize
}

func (l recordLayout) decode(data []byte) (*Voice, error) {
	if len(data) != l.size {
		return nil, errors.Wrapf(ErrFormat, "voice record is %d bytes, want %d", len(data), l.size)
	}
	for i, b := range data {
		if b > 0x7F {
			return nil, errors.Wrapf(ErrFormat, "byte %d = 0x%02X is not 7-bit", i, b)
		}
	}

	v := &Voice{}
	for k := range v.Operators {
		base := l.operatorBase(k)
		for _, f := range l.opFields {
			if err := f.decode(data, base, &v.Operators[k]); err != nil {
				return nil, errors.WithMessagef(err, "OP%d", k+1)
			}
		}
	}
	for _, f := range l.vcFields {
		if err := f.decode(data, 0, v); err != nil {
			return nil, err
		}
	}
	v.Name = string(data[l.nameIdx : l.nameIdx+voiceNameLen])
	return v, nil
}

func (l recordLayout) encode(v *Voice) ([]byte, error) {
	name, err := v.paddedName()
	if err != nil {
		return nil, err
	}

	data := make([]byte, l.size)
	for k := range v.Operators {
		base := l.operatorBase(k)
		for _, f := range l.opFields {
			if err := f.encode(&v.Operators[k], base, data); err != nil {
				return nil, errors.WithMessagef(err, "OP%d", k+1)
			}
		}
	}
	for _, f := range l.vcFields {
		if err := f.encode(v, 0, data); err != nil {
			return nil, err
		}
	}
	copy(data[l.nameIdx:], name)
	return data, nil
}

func (v *Voice) paddedName() (string, error) {
	if len(v.Name) > voiceNameLen {
		return "", errors.Wrapf(ErrFormat, "voice name %q longer than %d characters", v.Name, voiceNameLen)
	}
	for i := 0; i < len(v.Name); i++ {
		if v.Name[i] > 0x7F {
			return "", errors.Wrapf(ErrFormat, "voice name %q is not 7-bit ASCII", v.Name)
		}
	}
	return v.Name + strings.Repeat(" ", voiceNameLen-len(v.Name)), nil
}

// DecodeVoice unpacks a 128-byte bulk-dump voice record.
func DecodeVoice(packed []byte) (*Voice, error) {
	return packedLayout.decode(packed)
}

// Pack encodes the voice into its 128-byte bulk-dump record.
func (v *Voice) Pack() ([]byte, error) {
	return packedLayout.encode(v)
}

// DecodeVCED unpacks the 155-byte parameter block of a single-voice dump.
func DecodeVCED(data []byte) (*Voice, error) {
	return vcedLayout.decode(data)
}

// VCED encodes the voice as a single-voice parameter block.
func (v *Voice) VCED() ([]byte, error) {
	return vcedLayout.encode(v)
}

// TrimmedName is the voice name without DX7 padding.
func (v *Voice) TrimmedName() string {
	return strings.TrimRight(v.Name, " \x00")
}
