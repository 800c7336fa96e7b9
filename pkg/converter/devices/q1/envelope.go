package q1

import (
	"fmt"

	"github.com/james-see/msq2midi/pkg/debug"
)

// SysEx envelope identification
const (
	SysExStart     = 0xF0
	SysExEnd       = 0xF7
	ManufacturerID = 0x41 // Roland
	FunctionID     = 0x57
	TypeID         = 0x70
)

const envelopeHeaderSize = 5

// EncodeSysEx wraps every block of doc in its own checksummed SysEx message.
// Message i carries block index i.
func EncodeSysEx(doc *Document) ([][]byte, error) {
	if doc == nil || doc.Len() == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrFormat)
	}
	if doc.Len() > MaxBlocks {
		return nil, fmt.Errorf("%w: %d blocks, limit %d", ErrCapacity, doc.Len(), MaxBlocks)
	}

	msgs := make([][]byte, 0, doc.Len())
	for i, b := range doc.Blocks {
		packed := Pack7to8(b.Raw)
		msg := make([]byte, 0, envelopeHeaderSize+len(packed)+2)
		msg = append(msg, SysExStart, ManufacturerID, FunctionID, TypeID, byte(i))
		msg = append(msg, packed...)
		msg = append(msg, checksum(packed), SysExEnd)
		msgs = append(msgs, msg)
	}
	debug.Log("envelope", "wrapped %d blocks", len(msgs))
	return msgs, nil
}

// DecodeSysEx validates and unwraps the messages of one document and returns
// the concatenated raw stream. Any bad message fails the whole document.
func DecodeSysEx(msgs [][]byte) ([]byte, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: no messages", ErrFormat)
	}
	if len(msgs) > MaxBlocks {
		return nil, fmt.Errorf("%w: %d messages, limit %d", ErrCapacity, len(msgs), MaxBlocks)
	}

	var raw []byte
	for i, msg := range msgs {
		payload, err := unwrap(msg, i)
		if err != nil {
			debug.Log("envelope", "message %d rejected: %v", i, err)
			return nil, err
		}
		raw = append(raw, Unpack8to7(payload)...)
	}
	debug.Log("envelope", "unwrapped %d messages into %d raw bytes", len(msgs), len(raw))
	return raw, nil
}

// unwrap checks the envelope of the message expected at position index and
// returns its packed payload.
func unwrap(msg []byte, index int) ([]byte, error) {
	if len(msg) < envelopeHeaderSize+2 {
		return nil, fmt.Errorf("%w: message %d too short (%d bytes)", ErrFormat, index, len(msg))
	}
	if msg[0] != SysExStart || msg[len(msg)-1] != SysExEnd {
		return nil, fmt.Errorf("%w: message %d not framed by F0/F7", ErrFormat, index)
	}
	if msg[1] != ManufacturerID || msg[2] != FunctionID || msg[3] != TypeID {
		return nil, fmt.Errorf("%w: message %d has foreign header % X", ErrFormat, index, msg[1:4])
	}
	if int(msg[4]) != index {
		return nil, fmt.Errorf("%w: message %d carries block index %d", ErrSequence, index, msg[4])
	}

	payload := msg[envelopeHeaderSize : len(msg)-2]
	for _, b := range payload {
		if b&0x80 != 0 {
			return nil, fmt.Errorf("%w: message %d payload byte 0x%02X is not 7-bit", ErrFormat, index, b)
		}
	}
	if want, got := checksum(payload), msg[len(msg)-2]; want != got {
		return nil, fmt.Errorf("%w: message %d checksum 0x%02X, computed 0x%02X", ErrChecksum, index, got, want)
	}
	return payload, nil
}
