package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/kennygrant/sanitize"
	"github.com/pkg/errors"
)

// Descriptor formats understood by WriteInstrument.
const (
	FormatElmulti = "elmulti"
	FormatSFZ     = "sfz"
	FormatJSON    = "json"
)

const (
	wavBitDepth = 16
	// Peaks above this are scaled down, instrument-wide.
	normalizePeak = 0.5
	// Elektron stores velocity as a fraction of 255.
	elmultiVelocity = 0.9960785
)

var descriptorFormats = []string{FormatElmulti, FormatSFZ, FormatJSON}

// Instrument is the result of writing a multisample to disk.
type Instrument struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Samples    []string `json:"samples"`
	Gain       float64  `json:"gain"`
}

// instrumentZone is the file-level view of a key zone.
type instrumentZone struct {
	File   string `json:"file"`
	Low    int    `json:"low"`
	High   int    `json:"high"`
	Root   int    `json:"root"`
	Frames int    `json:"frames"`
}

func validFormat(format string) error {
	for _, f := range descriptorFormats {
		if f == format {
			return nil
		}
	}
	return errors.Wrapf(ErrConfig, "unknown descriptor format %q (want one of %s)", format, strings.Join(descriptorFormats, ", "))
}

// instrumentBaseName turns a voice name into a file-name stem.
func instrumentBaseName(voiceName string) string {
	base := sanitize.BaseName(strings.TrimSpace(voiceName))
	base = strings.Trim(base, "-")
	if base == "" {
		return "dx7-voice"
	}
	return base
}

func sampleFileName(base string, note int) string {
	return fmt.Sprintf("%s-%03d.wav", base, note)
}

// normalizationGain scales the loudest sample of the whole instrument down
// to normalizePeak so that relative key levels are preserved.
func normalizationGain(m *MultisampleMap) float64 {
	var peak float64
	for _, z := range m.Zones {
		for _, s := range z.Sample.PCM {
			peak = math.Max(peak, math.Abs(float64(s)))
		}
	}
	if peak > normalizePeak {
		return normalizePeak / peak
	}
	return 1
}

func writeWAV(path string, s *RenderedSample, gain float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}

	const fullScale = 1<<(wavBitDepth-1) - 1
	data := make([]int, len(s.PCM))
	for i, v := range s.PCM {
		x := math.Max(-1, math.Min(1, float64(v)*gain))
		data[i] = int(math.Round(x * fullScale))
	}

	enc := wav.NewEncoder(f, s.SampleRate, wavBitDepth, 1, 1)
	buf := &audio.IntBuffer{Data: data, Format: &audio.Format{SampleRate: s.SampleRate, NumChannels: 1}, SourceBitDepth: wavBitDepth}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return errors.Wrapf(err, "finishing %s", path)
	}
	return errors.WithStack(f.Close())
}

// WriteInstrument writes one WAV per zone into dir, then the descriptor.
// If any file fails, everything written so far is removed and no
// descriptor is left behind.
func WriteInstrument(dir, voiceName, format string, m *MultisampleMap) (inst *Instrument, err error) {
	if err := validFormat(format); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}

	base := instrumentBaseName(voiceName)
	inst = &Instrument{Name: base, Gain: normalizationGain(m)}

	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, p := range written {
			if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Printf("[write] could not remove %s: %v", p, rmErr)
			}
		}
		inst = nil
	}()

	zones := make([]instrumentZone, len(m.Zones))
	for i, z := range m.Zones {
		name := sampleFileName(base, z.Root)
		path := filepath.Join(dir, name)
		if err := writeWAV(path, z.Sample, inst.Gain); err != nil {
			os.Remove(path)
			return nil, err
		}
		written = append(written, path)
		inst.Samples = append(inst.Samples, path)
		zones[i] = instrumentZone{File: name, Low: z.Low, High: z.High, Root: z.Root, Frames: len(z.Sample.PCM)}
		log.Printf("[write] %s keys %d..%d root %d", name, z.Low, z.High, z.Root)
	}

	descPath := filepath.Join(dir, base+"."+format)
	f, err := os.Create(descPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	written = append(written, descPath)

	if err := writeDescriptor(f, format, base, zones); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	inst.Descriptor = descPath
	return inst, nil
}

func writeDescriptor(w io.Writer, format, name string, zones []instrumentZone) error {
	switch format {
	case FormatElmulti:
		return writeElmulti(w, name, zones)
	case FormatSFZ:
		return errors.WithStack(sfzTemplate.Execute(w, struct {
			Name  string
			Zones []instrumentZone
		}{name, zones}))
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.WithStack(enc.Encode(struct {
			Name       string           `json:"name"`
			SampleRate int              `json:"sample_rate"`
			Zones      []instrumentZone `json:"zones"`
		}{name, SampleRate, zones}))
	}
}

// Elektron multi-sample mapping (.elmulti).
type elmultiFile struct {
	Version  int           `toml:"version"`
	Name     string        `toml:"name"`
	KeyZones []elmultiZone `toml:"key-zones"`
}

type elmultiZone struct {
	Pitch          int            `toml:"pitch"`
	KeyCenter      float64        `toml:"key-center"`
	VelocityLayers []elmultiLayer `toml:"velocity-layers"`
}

type elmultiLayer struct {
	Velocity    float64       `toml:"velocity"`
	Strategy    string        `toml:"strategy"`
	SampleSlots []elmultiSlot `toml:"sample-slots"`
}

type elmultiSlot struct {
	Sample    string `toml:"sample"`
	TrimStart int    `toml:"trim-start"`
	TrimEnd   int    `toml:"trim-end"`
}

func writeElmulti(w io.Writer, name string, zones []instrumentZone) error {
	doc := elmultiFile{Name: name}
	for _, z := range zones {
		doc.KeyZones = append(doc.KeyZones, elmultiZone{
			Pitch:     z.Root,
			KeyCenter: float64(z.Root),
			VelocityLayers: []elmultiLayer{{
				Velocity:    elmultiVelocity,
				Strategy:    "Forward",
				SampleSlots: []elmultiSlot{{Sample: z.File, TrimStart: 0, TrimEnd: z.Frames}},
			}},
		})
	}

	if _, err := fmt.Fprintln(w, "# ELEKTRON MULTI-SAMPLE MAPPING FORMAT"); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(toml.NewEncoder(w).Encode(doc))
}

var sfzTemplate = template.Must(template.New("sfz").Parse(`// {{.Name}}
<control>
default_path=./

<group>
{{range .Zones}}<region> sample={{.File}} lokey={{.Low}} hikey={{.High}} pitch_keycenter={{.Root}}
{{end}}`))
