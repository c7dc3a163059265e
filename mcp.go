package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPServer(defaults Config) *server.MCPServer {
	s := server.NewMCPServer(
		"DX7 to Tonverk",
		version,
		server.WithToolCapabilities(false),
	)

	listTool := mcp.NewTool("dx7_list-voices",
		mcp.WithDescription("Lists the voices of a DX7 SysEx bank as index: name."),
		mcp.WithString("sysex_file", mcp.Required(), mcp.Description("Path to a 32-voice bulk dump or single voice dump (.syx).")),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling list voices request.")

		path, err := request.RequireString("sysex_file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		bank, err := LoadBankFile(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Printf("[mcp] %d voices in %s", bank.Len(), path)

		asJson, err := json.MarshalIndent(bank.Names(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal voice names: %w", err)
		}
		return mcp.NewToolResultText(string(asJson)), nil
	})

	describeTool := mcp.NewTool("dx7_describe-voice",
		mcp.WithDescription("Decodes one voice of a DX7 bank and returns its parameters as JSON."),
		mcp.WithString("sysex_file", mcp.Required(), mcp.Description("Path to the bank (.syx).")),
		mcp.WithNumber("patch", mcp.Required(), mcp.Description("0-based voice index.")),
	)
	s.AddTool(describeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling describe voice request.")

		path, err := request.RequireString("sysex_file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch, err := request.RequireInt("patch")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		v, _, err := loadBankVoice(path, fmt.Sprint(patch))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		asJson, err := describeVoice(patch, v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(asJson)), nil
	})

	generateTool := mcp.NewTool("dx7_generate-multisample",
		mcp.WithDescription("Renders one voice across the keyboard and writes WAV samples plus a key-zone descriptor."),
		mcp.WithString("sysex_file", mcp.Required(), mcp.Description("Path to the bank (.syx).")),
		mcp.WithNumber("patch", mcp.Required(), mcp.Description("0-based voice index.")),
		mcp.WithString("output_dir", mcp.Description("Directory for the instrument files.")),
		mcp.WithNumber("key_on_duration_ms", mcp.Description("Key-on duration in milliseconds (default 2000).")),
		mcp.WithNumber("min_midi_note", mcp.Description("Lowest sampled MIDI note (default 60).")),
		mcp.WithNumber("max_midi_note", mcp.Description("Highest sampled MIDI note (default 108).")),
		mcp.WithNumber("note_increment", mcp.Description("Semitones between samples (default 3).")),
		mcp.WithString("format", mcp.Description("Descriptor format: elmulti, sfz or json.")),
	)
	s.AddTool(generateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling generate multisample request.")

		path, err := request.RequireString("sysex_file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch, err := request.RequireInt("patch")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		cfg := defaults
		cfg.OutputDir = request.GetString("output_dir", cfg.OutputDir)
		cfg.KeyOnDurationMs = request.GetInt("key_on_duration_ms", cfg.KeyOnDurationMs)
		cfg.MinNote = request.GetInt("min_midi_note", cfg.MinNote)
		cfg.MaxNote = request.GetInt("max_midi_note", cfg.MaxNote)
		cfg.NoteIncrement = request.GetInt("note_increment", cfg.NoteIncrement)
		cfg.Format = request.GetString("format", cfg.Format)
		if err := cfg.Validate(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		v, _, err := loadBankVoice(path, fmt.Sprint(patch))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		inst, err := generateInstrument(ctx, v, cfg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		asJson, err := json.MarshalIndent(inst, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal instrument: %w", err)
		}
		return mcp.NewToolResultText(string(asJson)), nil
	})

	return s
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Tool results go to stdout; keep logs on stderr.
	log.SetOutput(cmd.ErrOrStderr())
	log.Println("Starting DX7 MCP server...")

	return server.ServeStdio(newMCPServer(cfg))
}
