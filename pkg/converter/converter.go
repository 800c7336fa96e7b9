package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFormat reports data that is not a well formed file of its format
var ErrFormat = errors.New("invalid format")

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatQ1      Format = "q1"
	FormatSyx     Format = "syx"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi", ".smf":
		return FormatMIDI
	case ".q1":
		return FormatQ1
	case ".syx":
		return FormatSyx
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	// Only Roland SysEx can carry a Q1 dump
	if IsRolandSyx(data) {
		return FormatSyx
	}

	if IsQ1(data) {
		return FormatQ1
	}
	return FormatUnknown
}

// ParseFormat maps a user supplied format name onto a Format
func ParseFormat(name string) Format {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "midi", "mid", "smf":
		return FormatMIDI
	case "q1":
		return FormatQ1
	case "syx", "sysex":
		return FormatSyx
	default:
		return FormatUnknown
	}
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}

	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	outputData, err := c.Convert(data, inputFormat, outputFormat)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// Convert converts data between two formats
func (c *Converter) Convert(data []byte, from, to Format) ([]byte, error) {
	switch {
	case from == FormatMIDI && to == FormatQ1:
		return c.MIDIToQ1(data)
	case from == FormatMIDI && to == FormatSyx:
		return c.MIDIToSyx(data)
	case from == FormatQ1 && to == FormatMIDI:
		return c.Q1ToMIDI(data)
	case from == FormatQ1 && to == FormatSyx:
		return c.Q1ToSyx(data)
	case from == FormatSyx && to == FormatMIDI:
		return c.SyxToMIDI(data)
	case from == FormatSyx && to == FormatQ1:
		return c.SyxToQ1(data)
	default:
		return nil, fmt.Errorf("unsupported conversion: %s to %s", from, to)
	}
}

// MIDIToQ1 converts MIDI data to a raw .q1 dump
func (c *Converter) MIDIToQ1(midiData []byte) ([]byte, error) {
	seq, err := c.midi.ParseMIDI(midiData)
	if err != nil {
		return nil, err
	}
	return c.q1.GenerateQ1(seq)
}

// MIDIToSyx converts MIDI data to .syx format
func (c *Converter) MIDIToSyx(midiData []byte) ([]byte, error) {
	seq, err := c.midi.ParseMIDI(midiData)
	if err != nil {
		return nil, err
	}
	return c.syx.GenerateSyx(seq)
}

// Q1ToMIDI converts a raw .q1 dump to MIDI format
func (c *Converter) Q1ToMIDI(q1Data []byte) ([]byte, error) {
	seq, err := c.q1.ParseQ1(q1Data)
	if err != nil {
		return nil, err
	}
	return c.midi.GenerateMIDI(seq)
}

// Q1ToSyx envelopes a raw .q1 dump as SysEx messages
func (c *Converter) Q1ToSyx(q1Data []byte) ([]byte, error) {
	if err := ValidateQ1(q1Data); err != nil {
		return nil, err
	}
	return c.device.WrapQ1(q1Data)
}

// SyxToMIDI converts .syx data to MIDI format
func (c *Converter) SyxToMIDI(syxData []byte) ([]byte, error) {
	seq, err := c.syx.ParseSyx(syxData)
	if err != nil {
		return nil, err
	}
	return c.midi.GenerateMIDI(seq)
}

// SyxToQ1 strips the SysEx envelopes from .syx data
func (c *Converter) SyxToQ1(syxData []byte) ([]byte, error) {
	if err := c.syx.ValidateSyx(syxData); err != nil {
		return nil, err
	}
	return c.device.UnwrapSyx(syxData)
}

// Info summarizes a file for the info command and the inspect endpoint.
// For MIDI input the layout is that of the document it would encode to.
type Info struct {
	Format       Format         `json:"format"`
	Device       string         `json:"device"`
	Manufacturer string         `json:"manufacturer,omitempty"` // SysEx input only, hex
	Name         string         `json:"name"`
	Blocks       int            `json:"blocks"`
	RawSize      int            `json:"rawSize"`
	Ticks        uint32         `json:"ticks"`
	Events       map[string]int `json:"events"`
}

// Inspect decodes data and reports its layout and event counts
func (c *Converter) Inspect(data []byte, format Format) (*Info, error) {
	if format == FormatUnknown {
		format = DetectFormatFromContent(data)
	}

	var raw []byte
	var manufacturer string
	var err error
	switch format {
	case FormatMIDI:
		raw, err = c.MIDIToQ1(data)
	case FormatQ1:
		raw = data
	case FormatSyx:
		var id []byte
		if id, err = ExtractManufacturerID(data); err != nil {
			return nil, err
		}
		manufacturer = fmt.Sprintf("% X", id)
		raw, err = c.SyxToQ1(data)
	default:
		return nil, fmt.Errorf("%w: unrecognized file format", ErrFormat)
	}
	if err != nil {
		return nil, err
	}

	layout, err := c.device.Layout(raw)
	if err != nil {
		return nil, err
	}
	seq, err := c.device.ParseQ1(raw)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Format:       format,
		Device:       c.device.Name(),
		Manufacturer: manufacturer,
		Name:         layout.Name,
		Blocks:       layout.Blocks,
		RawSize:      layout.RawSize,
		Ticks:        seq.End(),
		Events:       make(map[string]int),
	}
	for _, ev := range seq.Events {
		if ev.Kind != KindEndOfTrack {
			info.Events[ev.Kind.String()]++
		}
	}
	return info, nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> q1",
		"midi -> syx",
		"q1 -> midi",
		"q1 -> syx",
		"syx -> midi",
		"syx -> q1",
	}
}
