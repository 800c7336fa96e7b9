// Package devices provides device-specific format handlers
package devices

import (
	"errors"
	"fmt"

	"github.com/james-see/msq2midi/pkg/converter"
	"github.com/james-see/msq2midi/pkg/converter/devices/q1"
)

// MSQ100DeviceID identifies the Roland MSQ-100 bulk dump format
const MSQ100DeviceID = q1.TypeID

// MSQ100 implements the Device interface for the Roland MSQ-100 sequencer
type MSQ100 struct {
	// Filter drops channel voice events before encoding
	Filter converter.Filter
	// Truncate ends an oversized document at the last block that fits
	Truncate bool
	// SequenceName is stored in the file control block
	SequenceName string
}

// NewMSQ100 creates a new MSQ-100 device handler
func NewMSQ100() *MSQ100 {
	return &MSQ100{SequenceName: q1.DefaultName}
}

// Name returns the device name
func (m *MSQ100) Name() string {
	return "Roland MSQ-100"
}

// ID returns the device ID
func (m *MSQ100) ID() uint8 {
	return MSQ100DeviceID
}

func (m *MSQ100) encode(seq *converter.Sequence) (*q1.Document, error) {
	if seq == nil {
		return nil, errors.New("nil sequence")
	}
	doc, err := q1.Encode(seq, q1.Options{
		Filter:   m.Filter,
		Name:     m.SequenceName,
		Truncate: m.Truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sequence: %w", err)
	}
	return doc, nil
}

// ParseQ1 decodes a raw Q1 dump
func (m *MSQ100) ParseQ1(data []byte) (*converter.Sequence, error) {
	seq, err := q1.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode q1 data: %w", err)
	}
	return seq, nil
}

// GenerateQ1 encodes seq into a raw Q1 dump
func (m *MSQ100) GenerateQ1(seq *converter.Sequence) ([]byte, error) {
	doc, err := m.encode(seq)
	if err != nil {
		return nil, err
	}
	return doc.Bytes(), nil
}

// ParseSyx unwraps and decodes a SysEx bulk dump
func (m *MSQ100) ParseSyx(data []byte) (*converter.Sequence, error) {
	raw, err := m.UnwrapSyx(data)
	if err != nil {
		return nil, err
	}
	return m.ParseQ1(raw)
}

// GenerateSyx encodes seq as a SysEx bulk dump, one message per block
func (m *MSQ100) GenerateSyx(seq *converter.Sequence) ([]byte, error) {
	doc, err := m.encode(seq)
	if err != nil {
		return nil, err
	}
	msgs, err := q1.EncodeSysEx(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap blocks: %w", err)
	}
	return converter.JoinSysEx(msgs), nil
}

// WrapQ1 envelopes an existing raw Q1 dump without re-encoding it
func (m *MSQ100) WrapQ1(data []byte) ([]byte, error) {
	doc, err := q1.SplitBlocks(data)
	if err != nil {
		return nil, fmt.Errorf("failed to split q1 data: %w", err)
	}
	msgs, err := q1.EncodeSysEx(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap blocks: %w", err)
	}
	return converter.JoinSysEx(msgs), nil
}

// UnwrapSyx validates the SysEx envelopes and returns the raw Q1 dump
func (m *MSQ100) UnwrapSyx(data []byte) ([]byte, error) {
	msgs, err := converter.SplitSysEx(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", q1.ErrFormat, err)
	}
	raw, err := q1.DecodeSysEx(msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap sysex: %w", err)
	}
	return raw, nil
}

// Layout reports the block structure of a raw Q1 dump
func (m *MSQ100) Layout(data []byte) (*converter.Layout, error) {
	fcb, _, err := q1.ParseFileControlBlock(data)
	if err != nil {
		return nil, err
	}
	doc, err := q1.SplitBlocks(data)
	if err != nil {
		return nil, err
	}
	return &converter.Layout{
		Name:    fcb.Name,
		Blocks:  doc.Len(),
		RawSize: doc.Size(),
	}, nil
}
