package converter

import (
	"errors"
	"fmt"
)

// Q1 raw dump constants
const (
	q1Marker    = 0xFD
	q1MinLength = 42 // file control block and its trailer
)

// Q1Converter handles raw .q1 dumps: the unpacked block stream as stored in
// device memory, without SysEx envelopes.
type Q1Converter struct {
	device Device
}

// NewQ1Converter creates a new .q1 converter
func NewQ1Converter(device Device) *Q1Converter {
	return &Q1Converter{device: device}
}

// ParseQ1 parses .q1 data and returns its sequence
func (q *Q1Converter) ParseQ1(data []byte) (*Sequence, error) {
	if q.device == nil {
		return nil, errors.New("no device configured")
	}
	if err := ValidateQ1(data); err != nil {
		return nil, err
	}
	return q.device.ParseQ1(data)
}

// GenerateQ1 creates .q1 data from a sequence
func (q *Q1Converter) GenerateQ1(seq *Sequence) ([]byte, error) {
	if q.device == nil {
		return nil, errors.New("no device configured")
	}
	return q.device.GenerateQ1(seq)
}

// ValidateQ1 checks that data opens with a Q1 file control block
func ValidateQ1(data []byte) error {
	if len(data) < q1MinLength {
		return fmt.Errorf("%w: q1 data too short: minimum %d bytes required", ErrFormat, q1MinLength)
	}
	if data[0] != q1Marker || data[1] != 'F' || data[2] != 'Q' || data[3] != '1' {
		return fmt.Errorf("%w: expected FD 46 51 31, got % X", ErrFormat, data[:4])
	}
	return nil
}

// IsQ1 reports whether data looks like a raw Q1 dump
func IsQ1(data []byte) bool {
	return ValidateQ1(data) == nil
}
