package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gitlab.com/gomidi/midi/v2"
)

// noteSender is anything that accepts channel messages; *DX7 in practice.
type noteSender interface {
	Send(msg midi.Message) error
}

// playNotesFromText plays a whitespace- or comma-separated list of note
// names ("C4 E4 G4", "r" for a rest) one after another.
func playNotesFromText(s noteSender, channel uint8, notesText string, step time.Duration) error {
	tokens := strings.FieldsFunc(notesText, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
	if len(tokens) == 0 {
		return fmt.Errorf("no notes provided")
	}

	for _, tok := range tokens {
		n, isRest, err := parseNoteToken(tok)
		if err != nil {
			return fmt.Errorf("invalid note %q: %w", tok, err)
		}

		if isRest {
			time.Sleep(step)
			continue
		}

		if err := s.Send(midi.NoteOn(channel, n, defaultVelocity)); err != nil {
			return fmt.Errorf("note on failed for %d: %w", n, err)
		}
		time.Sleep(step * 5 / 6)
		if err := s.Send(midi.NoteOff(channel, n)); err != nil {
			return fmt.Errorf("note off failed for %d: %w", n, err)
		}
		time.Sleep(step / 6)
	}

	return nil
}

// parseNote accepts a MIDI note number ("60") or a note name ("C4").
func parseNote(s string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("MIDI note out of range: %d", n)
		}
		return n, nil
	}
	n, isRest, err := parseNoteToken(s)
	if err != nil {
		return 0, err
	}
	if isRest {
		return 0, fmt.Errorf("a rest is not a note")
	}
	return int(n), nil
}

// parseNoteToken parses C4 / C#4 / Bb3 (C4 = 60) or r / rest.
func parseNoteToken(tok string) (uint8, bool, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, false, fmt.Errorf("empty token")
	}

	if strings.EqualFold(t, "r") || strings.EqualFold(t, "rest") {
		return 0, true, nil
	}

	if len(t) < 2 {
		return 0, false, fmt.Errorf("too short")
	}

	base := strings.ToUpper(string(t[0]))
	accidental := 0
	rest := t[1:]

	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			accidental = 1
			rest = rest[1:]
		case 'b', 'B':
			accidental = -1
			rest = rest[1:]
		}
	}

	if rest == "" {
		return 0, false, fmt.Errorf("missing octave")
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false, fmt.Errorf("invalid octave: %w", err)
	}

	semitone, ok := noteLetters[base]
	if !ok {
		return 0, false, fmt.Errorf("invalid note letter %q", base)
	}

	n := 12*(octave+1) + semitone + accidental
	if n < 0 || n > 127 {
		return 0, false, fmt.Errorf("MIDI note out of range: %d", n)
	}

	return uint8(n), false, nil
}

var noteLetters = map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteName formats a MIDI note as C4-style text.
func noteName(n int) string {
	return fmt.Sprintf("%s%d", noteNames[n%12], n/12-1)
}
