package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// voiceDescription is the JSON shape printed by describe and the MCP tool.
// readVoiceJSON accepts it back, ignoring the derived fields.
type voiceDescription struct {
	Index int `json:"index"`
	*Voice
	Carriers []int `json:"carriers"`
}

func describeVoice(index int, v *Voice) ([]byte, error) {
	alg, err := AlgorithmByID(int(v.Algorithm))
	if err != nil {
		return nil, err
	}
	d := voiceDescription{Index: index, Voice: v}
	for op := range v.Operators {
		if alg.IsCarrier(op) {
			d.Carriers = append(d.Carriers, op+1)
		}
	}
	asJson, err := json.MarshalIndent(&d, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal voice to JSON")
	}
	return asJson, nil
}

func dumpVoice(w io.Writer, index int, v *Voice) error {
	asJson, err := describeVoice(index, v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(asJson, '\n'))
	return errors.WithStack(err)
}

// readVoiceJSON parses a voice and checks every field by packing it.
func readVoiceJSON(r io.Reader) (*Voice, error) {
	asJson, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read voice JSON")
	}
	v := &Voice{}
	if err := json.Unmarshal(asJson, v); err != nil {
		return nil, errors.Wrapf(ErrFormat, "failed to unmarshal voice JSON: %v", err)
	}
	if _, err := v.Pack(); err != nil {
		return nil, err
	}
	return v, nil
}

func readVoiceFile(path string) (*Voice, error) {
	if path == "-" {
		return readVoiceJSON(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return readVoiceJSON(f)
}
