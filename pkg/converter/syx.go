package converter

import (
	"errors"
	"fmt"
)

// SysEx constants
const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7

	ManufacturerRoland = 0x41
)

// SyxConverter handles .syx file parsing and generation
type SyxConverter struct {
	device Device
}

// NewSyxConverter creates a new .syx converter
func NewSyxConverter(device Device) *SyxConverter {
	return &SyxConverter{device: device}
}

// ParseSyx parses .syx data and returns its sequence
func (s *SyxConverter) ParseSyx(data []byte) (*Sequence, error) {
	if s.device == nil {
		return nil, errors.New("no device configured")
	}

	// Validate SysEx structure first
	if err := s.ValidateSyx(data); err != nil {
		return nil, err
	}

	return s.device.ParseSyx(data)
}

// GenerateSyx creates .syx data from a sequence
func (s *SyxConverter) GenerateSyx(seq *Sequence) ([]byte, error) {
	if s.device == nil {
		return nil, errors.New("no device configured")
	}
	return s.device.GenerateSyx(seq)
}

// ValidateSyx validates a stream of one or more SysEx messages
func (s *SyxConverter) ValidateSyx(data []byte) error {
	msgs, err := SplitSysEx(data)
	if err != nil {
		return err
	}

	for n, msg := range msgs {
		// Check all data bytes are 7-bit (valid MIDI data)
		for i := 1; i < len(msg)-1; i++ {
			if msg[i] > 127 {
				return fmt.Errorf("%w: message %d byte %d is > 127 (0x%02X)", ErrFormat, n, i, msg[i])
			}
		}
	}
	return nil
}

// SplitSysEx cuts a byte stream into its F0 ... F7 messages. Bytes between
// messages are not allowed.
func SplitSysEx(data []byte) ([][]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: syx data too short", ErrFormat)
	}

	var msgs [][]byte
	start := -1
	for i, b := range data {
		switch {
		case b == SysExStart:
			if start >= 0 {
				return nil, fmt.Errorf("%w: message at offset %d not terminated", ErrFormat, start)
			}
			start = i
		case b == SysExEnd:
			if start < 0 {
				return nil, fmt.Errorf("%w: unexpected end byte at offset %d", ErrFormat, i)
			}
			msgs = append(msgs, data[start:i+1])
			start = -1
		case start < 0:
			return nil, fmt.Errorf("%w: expected start byte 0x%02X at offset %d, got 0x%02X", ErrFormat, SysExStart, i, b)
		}
	}
	if start >= 0 {
		return nil, fmt.Errorf("%w: expected end byte 0x%02X, got 0x%02X", ErrFormat, SysExEnd, data[len(data)-1])
	}
	return msgs, nil
}

// JoinSysEx concatenates messages into one stream
func JoinSysEx(msgs [][]byte) []byte {
	n := 0
	for _, m := range msgs {
		n += len(m)
	}
	out := make([]byte, 0, n)
	for _, m := range msgs {
		out = append(out, m...)
	}
	return out
}

// ExtractManufacturerID returns the one or three byte manufacturer ID of the
// first message in data
func ExtractManufacturerID(data []byte) ([]byte, error) {
	if len(data) < 3 || data[0] != SysExStart {
		return nil, fmt.Errorf("%w: no SysEx message header", ErrFormat)
	}
	if data[1] != 0x00 {
		return data[1:2], nil
	}
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: extended manufacturer ID truncated", ErrFormat)
	}
	return data[1:4], nil
}

// IsRolandSyx checks if the SysEx data is from a Roland device
func IsRolandSyx(data []byte) bool {
	id, err := ExtractManufacturerID(data)
	return err == nil && len(id) == 1 && id[0] == ManufacturerRoland
}
