package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DX7 is an open MIDI output connected to a DX7 (or compatible) synth.
type DX7 struct {
	channel uint8 // 0-based
	out     drivers.Out
}

// OpenDX7 opens output port portIndex. channel is 0-based.
func OpenDX7(channel uint8, portIndex int) (*DX7, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}

	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	log.Printf("Opened DX7 MIDI output %q on channel %d", out.String(), channel+1)
	return &DX7{
		channel: channel,
		out:     out,
	}, closer, nil
}

// Send transmits a MIDI message to the synth.
func (d *DX7) Send(msg midi.Message) error {
	if !d.out.IsOpen() {
		if err := d.out.Open(); err != nil {
			return err
		}
	}
	return d.out.Send(msg.Bytes())
}

// SendSysEx transmits a complete F0..F7 message.
func (d *DX7) SendSysEx(data []byte) error {
	return d.Send(midi.Message(data))
}

// SendVoice loads v into the synth's edit buffer as a single-voice dump.
func (d *DX7) SendVoice(v *Voice) error {
	dump, err := SingleVoiceDump(v, d.channel)
	if err != nil {
		return errors.WithMessage(err, "building single voice dump")
	}
	if err := d.SendSysEx(dump); err != nil {
		return errors.Wrapf(err, "sending voice %q", v.Name)
	}
	return nil
}

func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}
