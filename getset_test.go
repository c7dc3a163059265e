package main

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestDescribeVoiceRoundTrip(t *testing.T) {
	v := randomVoice(rand.New(rand.NewSource(5)), "ROUNDTRIP ")
	var buf bytes.Buffer
	if err := dumpVoice(&buf, 3, v); err != nil {
		t.Fatalf("dumpVoice: %v", err)
	}

	var asMap map[string]any
	if err := json.Unmarshal(buf.Bytes(), &asMap); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"index", "name", "algorithm", "operators", "carriers", "lfo"} {
		if _, ok := asMap[key]; !ok {
			t.Errorf("description has no %q", key)
		}
	}

	back, err := readVoiceJSON(&buf)
	if err != nil {
		t.Fatalf("readVoiceJSON: %v", err)
	}
	if !reflect.DeepEqual(back, v) {
		t.Errorf("round trip changed the voice:\n got %+v\nwant %+v", back, v)
	}
}

func TestDescribeVoiceCarriers(t *testing.T) {
	v := InitVoice()
	v.Algorithm = 32
	out, err := describeVoice(0, v)
	if err != nil {
		t.Fatal(err)
	}
	var d struct {
		Carriers []int `json:"carriers"`
	}
	if err := json.Unmarshal(out, &d); err != nil {
		t.Fatal(err)
	}
	sort.Ints(d.Carriers)
	if !reflect.DeepEqual(d.Carriers, []int{1, 2, 3, 4, 5, 6}) {
		t.Errorf("algorithm 32 carriers = %v", d.Carriers)
	}
}

func TestReadVoiceJSONRejects(t *testing.T) {
	tests := map[string]string{
		"not json":    "{",
		"bad level":   `{"name":"X","algorithm":1,"operators":[{"output_level":120}]}`,
		"algorithm 0": `{"name":"X","algorithm":0}`,
	}
	for name, text := range tests {
		if _, err := readVoiceJSON(strings.NewReader(text)); !errors.Is(err, ErrFormat) {
			t.Errorf("%s: got %v, want ErrFormat", name, err)
		}
	}
}
