package main

import (
	"encoding/binary"
	"io"
	"math"
)

// pcmReader streams a rendered buffer as little-endian float32 frames.
type pcmReader struct {
	pcm  []float32
	gain float32
	pos  int
}

func newPCMReader(s *RenderedSample) *pcmReader {
	gain := float32(1)
	var peak float32
	for _, v := range s.PCM {
		peak = max(peak, abs32(v))
	}
	if peak > normalizePeak {
		gain = normalizePeak / peak
	}
	return &pcmReader{pcm: s.PCM, gain: gain}
}

func (r *pcmReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.pcm) {
		return 0, io.EOF
	}
	if len(p) < 4 {
		return 0, io.ErrShortBuffer
	}
	n := 0
	for n+4 <= len(p) && r.pos < len(r.pcm) {
		binary.LittleEndian.PutUint32(p[n:], math.Float32bits(r.pcm[r.pos]*r.gain))
		n += 4
		r.pos++
	}
	return n, nil
}
