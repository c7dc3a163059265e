package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var version = "0.1.0"

var (
	configPath string

	keyOnMs    int
	minNote    string
	maxNote    string
	increment  int
	outputDir  string
	format     string
	workers    int
	previewKey string
	portHint   string
	channel    int
	notesText  string
	voiceJSON  string
	asBank     bool
)

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dx7-to-tonverk",
	Short: "Turn DX7 voices into multisample instruments",
	Long: `dx7-to-tonverk renders a voice from a DX7 SysEx bank across the keyboard
and writes one WAV per sampled key plus a key-zone descriptor for a hardware
sampler (Elektron .elmulti by default).

Voice numbers are 0-based bank positions as printed by "list".`,
	Version:      version,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list <sysex_file>",
	Short: "List the voices in a bank",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var describeCmd = &cobra.Command{
	Use:   "describe <sysex_file> <patch_number>",
	Short: "Print a decoded voice as JSON",
	Args:  cobra.ExactArgs(2),
	RunE:  runDescribe,
}

var generateCmd = &cobra.Command{
	Use:   "generate <sysex_file> <patch_number>",
	Short: "Render a voice into a multisample instrument",
	Long: `Render a voice at every sampled note and write the instrument.

Examples:
  dx7-to-tonverk generate rom1a.syx 9
  dx7-to-tonverk generate rom1a.syx 9 --min-midi-note C2 --max-midi-note C7 --note-increment 6
  dx7-to-tonverk generate rom1a.syx 9 --format sfz --output-dir out/`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

var previewCmd = &cobra.Command{
	Use:   "preview <sysex_file> <patch_number>",
	Short: "Render one note and play it",
	Args:  cobra.ExactArgs(2),
	RunE:  runPreview,
}

var sendCmd = &cobra.Command{
	Use:   "send [<sysex_file> <patch_number>]",
	Short: "Send a voice to a connected DX7 and audition it",
	Args:  cobra.RangeArgs(0, 2),
	RunE:  runSend,
}

var encodeCmd = &cobra.Command{
	Use:   "encode <out.syx> <voice.json>...",
	Short: "Pack voice JSON files (as printed by describe) into a SysEx dump",
	Long: `Pack voice JSON files into a SysEx dump. One voice is written as a
single-voice dump unless --bank is given; several voices always make a
32-voice bank, with unused slots set to INIT VOICE. "-" reads stdin.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEncode,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the bank tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")

	for _, cmd := range []*cobra.Command{generateCmd, previewCmd} {
		cmd.Flags().IntVar(&keyOnMs, "key-on-duration", 2000, "Key-on duration in milliseconds")
	}
	generateCmd.Flags().StringVar(&minNote, "min-midi-note", "60", "Lowest sampled note (number or name, C4 = 60)")
	generateCmd.Flags().StringVar(&maxNote, "max-midi-note", "108", "Highest sampled note, always rendered")
	generateCmd.Flags().IntVar(&increment, "note-increment", 3, "Semitones between sampled notes")
	generateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory for samples and descriptor")
	generateCmd.Flags().StringVarP(&format, "format", "f", FormatElmulti, "Descriptor format (elmulti, sfz, json)")
	generateCmd.Flags().IntVarP(&workers, "workers", "j", 0, "Parallel renders (0 = one per CPU)")

	previewCmd.Flags().StringVar(&previewKey, "note", "C4", "Note to render")

	sendCmd.Flags().StringVar(&portHint, "port", "dx7", "Part of the MIDI output port name")
	for _, cmd := range []*cobra.Command{sendCmd, encodeCmd} {
		cmd.Flags().IntVar(&channel, "channel", 1, "MIDI channel (1-16)")
	}
	sendCmd.Flags().StringVar(&notesText, "notes", "C4 E4 G4", "Notes to play after sending, empty for none")
	sendCmd.Flags().StringVar(&voiceJSON, "json", "", "Send a voice JSON file instead of a bank voice")

	encodeCmd.Flags().BoolVar(&asBank, "bank", false, "Always write a 32-voice bank")

	rootCmd.AddCommand(listCmd, describeCmd, generateCmd, previewCmd, sendCmd, encodeCmd, mcpCmd)
}

// loadConfig merges the config file with any flags set on cmd.
func loadConfig(cmd *cobra.Command) (Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("key-on-duration") {
		cfg.KeyOnDurationMs = keyOnMs
	}
	if flags.Changed("min-midi-note") {
		if cfg.MinNote, err = parseNote(minNote); err != nil {
			return cfg, errors.Wrapf(ErrConfig, "--min-midi-note: %v", err)
		}
	}
	if flags.Changed("max-midi-note") {
		if cfg.MaxNote, err = parseNote(maxNote); err != nil {
			return cfg, errors.Wrapf(ErrConfig, "--max-midi-note: %v", err)
		}
	}
	if flags.Changed("note-increment") {
		cfg.NoteIncrement = increment
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("format") {
		cfg.Format = format
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("port") {
		cfg.MIDI.Port = portHint
	}
	if flags.Changed("channel") {
		cfg.MIDI.Channel = channel
	}
	return cfg, cfg.Validate()
}

func parsePatchNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrIndex, "patch number %q is not a number", s)
	}
	return n, nil
}

func loadBankVoice(path, patch string) (*Voice, int, error) {
	index, err := parsePatchNumber(patch)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	v, err := LoadVoice(data, index)
	if err != nil {
		return nil, 0, errors.WithMessage(err, path)
	}
	return v, index, nil
}

func runList(cmd *cobra.Command, args []string) error {
	bank, err := LoadBankFile(args[0])
	if err != nil {
		return err
	}
	for _, n := range bank.Names() {
		fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", n.Index, n.Name)
	}
	return nil
}

func runDescribe(cmd *cobra.Command, args []string) error {
	v, index, err := loadBankVoice(args[0], args[1])
	if err != nil {
		return err
	}
	return dumpVoice(cmd.OutOrStdout(), index, v)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	v, index, err := loadBankVoice(args[0], args[1])
	if err != nil {
		return err
	}

	inst, err := generateInstrument(cmd.Context(), v, cfg)
	if err != nil {
		return err
	}
	log.Printf("Wrote %d samples for voice %d %q, descriptor %s", len(inst.Samples), index, v.Name, inst.Descriptor)
	return nil
}

// generateInstrument renders every note before writing anything, so a
// failed render leaves no files behind.
func generateInstrument(ctx context.Context, v *Voice, cfg Config) (*Instrument, error) {
	start := time.Now()
	samples, err := RenderSamples(ctx, v, cfg.RenderConfig())
	if err != nil {
		return nil, err
	}
	m, err := BuildMultisampleMap(samples)
	if err != nil {
		return nil, err
	}
	inst, err := WriteInstrument(cfg.OutputDir, v.TrimmedName(), cfg.Format, m)
	if err != nil {
		return nil, err
	}
	log.Printf("[render] %d notes in %v", len(samples), time.Since(start).Round(time.Millisecond))
	return inst, nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	note, err := parseNote(previewKey)
	if err != nil {
		return errors.Wrapf(ErrRange, "--note: %v", err)
	}
	v, _, err := loadBankVoice(args[0], args[1])
	if err != nil {
		return err
	}
	s, err := Render(v, note, cfg.KeyOn())
	if err != nil {
		return err
	}
	log.Printf("Playing %q at %s (%v)", v.Name, noteName(note), s.Duration().Round(time.Millisecond))
	return previewSample(s)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var v *Voice
	switch {
	case voiceJSON != "":
		if v, err = readVoiceFile(voiceJSON); err != nil {
			return err
		}
	case len(args) == 2:
		if v, _, err = loadBankVoice(args[0], args[1]); err != nil {
			return err
		}
	default:
		return errors.Wrap(ErrConfig, "send needs <sysex_file> <patch_number> or --json")
	}

	portIdx, err := findOutPort(cfg.MIDI.Port)
	if err != nil {
		return err
	}
	dx7, closer, err := OpenDX7(uint8(cfg.MIDI.Channel-1), portIdx)
	if err != nil {
		return errors.Wrap(err, "opening DX7 output")
	}
	defer closer()

	if err := dx7.SendVoice(v); err != nil {
		return err
	}
	log.Printf("Sent %q", v.Name)

	if notesText == "" {
		return nil
	}
	// Give the synth time to load the edit buffer.
	time.Sleep(100 * time.Millisecond)
	return playNotesFromText(dx7, dx7.channel, notesText, 360*time.Millisecond)
}

func runEncode(cmd *cobra.Command, args []string) error {
	if channel < 1 || channel > 16 {
		return errors.Wrapf(ErrConfig, "MIDI channel %d not in 1..16", channel)
	}
	out, files := args[0], args[1:]

	var voices []*Voice
	for _, path := range files {
		v, err := readVoiceFile(path)
		if err != nil {
			return errors.WithMessage(err, path)
		}
		voices = append(voices, v)
	}

	var dump []byte
	var err error
	if len(voices) == 1 && !asBank {
		dump, err = SingleVoiceDump(voices[0], uint8(channel-1))
	} else {
		dump, err = EncodeBank(voices, uint8(channel-1))
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, dump, 0o644); err != nil {
		return errors.WithStack(err)
	}
	log.Printf("Wrote %d voices to %s (%d bytes)", len(voices), out, len(dump))
	return nil
}
