package main

import (
	"os"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

const (
	sysexStart = 0xF0
	sysexEnd   = 0xF7
	yamahaID   = 0x43

	formatSingleVoice = 0x00
	formatBank        = 0x09

	// BankVoices is the number of voices in a bulk dump.
	BankVoices = 32

	bankPayloadSize = BankVoices * PackedVoiceSize

	// BankDumpSize is the full length of a 32-voice bulk dump message.
	BankDumpSize = 6 + bankPayloadSize + 2
	// SingleVoiceDumpSize is the full length of a single-voice dump message.
	SingleVoiceDumpSize = 6 + VCEDSize + 2
)

// Bank holds the packed voice records of a dump. Records are validated for
// framing and checksum only; fields are checked when a voice is decoded.
type Bank struct {
	Channel uint8
	records [][]byte
}

// VoiceName pairs a 0-based voice index with its raw 10-character name.
type VoiceName struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// checksum is the DX7 two's-complement checksum of a dump payload.
func checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum = (sum + b) & 0x7F
	}
	return (0x80 - sum) & 0x7F
}

// unframe checks the Yamaha header of a dump and returns the format byte,
// MIDI channel, and the payload between the header and the checksum.
func unframe(data []byte) (format, channel byte, payload []byte, err error) {
	if len(data) < 8 || data[0] != sysexStart || data[len(data)-1] != sysexEnd {
		return 0, 0, nil, errors.Wrap(ErrFormat, "message is not a SysEx frame")
	}

	var body []byte
	if !midi.Message(data).GetSysEx(&body) {
		return 0, 0, nil, errors.Wrap(ErrFormat, "message is not a SysEx frame")
	}
	if body[0] != yamahaID {
		return 0, 0, nil, errors.Wrapf(ErrFormat, "manufacturer id 0x%02X is not Yamaha", body[0])
	}
	if body[1]&0xF0 != 0 {
		return 0, 0, nil, errors.Wrapf(ErrFormat, "sub-status 0x%02X is not a dump", body[1])
	}

	channel = body[1] & 0x0F
	format = body[2]
	count := int(body[3])<<7 | int(body[4])
	payload = body[5 : len(body)-1]
	if count != len(payload) {
		return 0, 0, nil, errors.Wrapf(ErrFormat, "byte count %d does not match payload of %d bytes", count, len(payload))
	}

	for i, b := range payload {
		if b > 0x7F {
			return 0, 0, nil, errors.Wrapf(ErrFormat, "payload byte %d = 0x%02X is not 7-bit", i, b)
		}
	}

	want := body[len(body)-1]
	if got := checksum(payload); got != want {
		return 0, 0, nil, errors.Wrapf(ErrFormat, "checksum mismatch: computed 0x%02X, stored 0x%02X", got, want)
	}
	return format, channel, payload, nil
}

// ParseBank validates a DX7 dump. A 32-voice bulk dump yields 32 records; a
// single-voice dump yields a one-voice bank.
func ParseBank(data []byte) (*Bank, error) {
	switch len(data) {
	case BankDumpSize, SingleVoiceDumpSize:
	default:
		return nil, errors.Wrapf(ErrFormat, "dump is %d bytes, want %d (bank) or %d (single voice)",
			len(data), BankDumpSize, SingleVoiceDumpSize)
	}

	format, channel, payload, err := unframe(data)
	if err != nil {
		return nil, err
	}

	b := &Bank{Channel: channel}
	switch {
	case format == formatBank && len(payload) == bankPayloadSize:
		for i := 0; i < BankVoices; i++ {
			b.records = append(b.records, payload[i*PackedVoiceSize:(i+1)*PackedVoiceSize])
		}
	case format == formatSingleVoice && len(payload) == VCEDSize:
		v, err := DecodeVCED(payload)
		if err != nil {
			return nil, err
		}
		packed, err := v.Pack()
		if err != nil {
			return nil, err
		}
		b.records = append(b.records, packed)
	default:
		return nil, errors.Wrapf(ErrFormat, "unsupported dump format 0x%02X with %d byte payload", format, len(payload))
	}
	return b, nil
}

// LoadBankFile reads and parses a .syx file.
func LoadBankFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	b, err := ParseBank(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return b, nil
}

// Len returns the number of voices in the bank.
func (b *Bank) Len() int { return len(b.records) }

// Voice returns a copy of the packed record at index (0-based).
func (b *Bank) Voice(index int) ([]byte, error) {
	if index < 0 || index >= len(b.records) {
		return nil, errors.Wrapf(ErrIndex, "voice %d not in bank of %d", index, len(b.records))
	}
	out := make([]byte, PackedVoiceSize)
	copy(out, b.records[index])
	return out, nil
}

// Names lists every voice in bank order without decoding the records.
func (b *Bank) Names() []VoiceName {
	names := make([]VoiceName, 0, len(b.records))
	for i, rec := range b.records {
		names = append(names, VoiceName{Index: i, Name: recordName(rec)})
	}
	return names
}

// Decode unpacks the voice at index.
func (b *Bank) Decode(index int) (*Voice, error) {
	packed, err := b.Voice(index)
	if err != nil {
		return nil, err
	}
	v, err := DecodeVoice(packed)
	if err != nil {
		return nil, errors.WithMessagef(err, "voice %d", index)
	}
	return v, nil
}

// PeekName reads only the name bytes of a packed record.
func PeekName(packed []byte) (string, error) {
	if len(packed) != PackedVoiceSize {
		return "", errors.Wrapf(ErrFormat, "voice record is %d bytes, want %d", len(packed), PackedVoiceSize)
	}
	return recordName(packed), nil
}

// recordName slices the name out of a record already known to be packed size.
func recordName(packed []byte) string {
	return string(packed[packedNameIdx : packedNameIdx+voiceNameLen])
}

// LoadVoice parses a dump and decodes the voice at index.
func LoadVoice(data []byte, index int) (*Voice, error) {
	b, err := ParseBank(data)
	if err != nil {
		return nil, err
	}
	return b.Decode(index)
}

func frame(channel, format byte, payload []byte) []byte {
	body := []byte{yamahaID, channel & 0x0F, format, byte(len(payload) >> 7), byte(len(payload) & 0x7F)}
	body = append(body, payload...)
	body = append(body, checksum(payload))
	return midi.SysEx(body).Bytes()
}

// EncodeBank builds a 32-voice bulk dump. Slots past len(voices) hold InitVoice.
func EncodeBank(voices []*Voice, channel uint8) ([]byte, error) {
	if len(voices) > BankVoices {
		return nil, errors.Wrapf(ErrIndex, "%d voices do not fit a bank of %d", len(voices), BankVoices)
	}
	payload := make([]byte, 0, bankPayloadSize)
	for i := 0; i < BankVoices; i++ {
		v := InitVoice()
		if i < len(voices) {
			v = voices[i]
		}
		packed, err := v.Pack()
		if err != nil {
			return nil, errors.WithMessagef(err, "voice %d", i)
		}
		payload = append(payload, packed...)
	}
	return frame(channel, formatBank, payload), nil
}

// SingleVoiceDump builds the message that loads v into the edit buffer.
func SingleVoiceDump(v *Voice, channel uint8) ([]byte, error) {
	vced, err := v.VCED()
	if err != nil {
		return nil, err
	}
	return frame(channel, formatSingleVoice, vced), nil
}

// InitVoice returns the DX7 "INIT VOICE": algorithm 1, only OP1 audible.
func InitVoice() *Voice {
	v := &Voice{
		Algorithm:     1,
		Transpose:     TransposeCentre,
		PitchEnvelope: Envelope{Rates: [4]uint8{99, 99, 99, 99}, Levels: [4]uint8{50, 50, 50, 50}},
		LFO:           LFO{Rate: 35, PitchModSensitivity: 3, Sync: 1},
		OscKeySync:    1,
		Name:          "INIT VOICE",
	}
	for i := range v.Operators {
		v.Operators[i] = Operator{
			Envelope:   Envelope{Rates: [4]uint8{99, 99, 99, 99}, Levels: [4]uint8{99, 99, 99, 0}},
			KeyScaling: KeyScaling{BreakPoint: 39},
			Coarse:     1,
			Detune:     DetuneCentre,
		}
	}
	v.Operators[0].OutputLevel = 99
	return v
}
