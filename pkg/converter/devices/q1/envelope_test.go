package q1

import (
	"bytes"
	"errors"
	"testing"

	"github.com/james-see/msq2midi/pkg/converter"
)

func testDocument(t *testing.T) *Document {
	t.Helper()
	var events []converter.Event
	for i := 0; i < 120; i++ {
		tick := uint32(i * 60)
		events = append(events,
			converter.NoteOn(tick, uint8(i%3), uint8(36+i%24), 100),
			converter.NoteOff(tick+30, uint8(i%3), uint8(36+i%24)),
		)
	}
	doc, err := Encode(&converter.Sequence{Events: events}, Options{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if doc.Len() < 3 {
		t.Fatalf("test document has only %d blocks", doc.Len())
	}
	return doc
}

func TestEncodeSysEx(t *testing.T) {
	doc := testDocument(t)

	msgs, err := EncodeSysEx(doc)
	if err != nil {
		t.Fatalf("EncodeSysEx() error = %v", err)
	}
	if len(msgs) != doc.Len() {
		t.Fatalf("EncodeSysEx() = %d messages, want %d", len(msgs), doc.Len())
	}

	for i, msg := range msgs {
		if !bytes.Equal(msg[:5], []byte{0xF0, 0x41, 0x57, 0x70, byte(i)}) {
			t.Errorf("message %d header = % X", i, msg[:5])
		}
		if msg[len(msg)-1] != 0xF7 {
			t.Errorf("message %d not terminated", i)
		}
		payload := msg[5 : len(msg)-2]
		var sum int
		for _, b := range payload {
			if b > 0x7F {
				t.Errorf("message %d carries 8-bit byte 0x%02X", i, b)
			}
			sum += int(b)
		}
		if msg[len(msg)-2] != byte(sum&0x7F) {
			t.Errorf("message %d checksum = 0x%02X, want 0x%02X", i, msg[len(msg)-2], sum&0x7F)
		}
	}

	// file control block: 42 raw bytes packed to 48
	if len(msgs[0]) != 5+48+2 {
		t.Errorf("file control block message = %d bytes, want %d", len(msgs[0]), 5+48+2)
	}
}

func TestSysExRoundTrip(t *testing.T) {
	doc := testDocument(t)

	msgs, err := EncodeSysEx(doc)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := DecodeSysEx(msgs)
	if err != nil {
		t.Fatalf("DecodeSysEx() error = %v", err)
	}

	want, err := Decode(doc.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("Decode() = %d events, want %d", got.Len(), want.Len())
	}
	for i := range want.Events {
		if !sameEvent(got.Events[i], want.Events[i]) {
			t.Errorf("event %d = %+v, want %+v", i, got.Events[i], want.Events[i])
		}
	}
}

func TestDecodeSysExErrors(t *testing.T) {
	doc := testDocument(t)

	fresh := func() [][]byte {
		msgs, err := EncodeSysEx(doc)
		if err != nil {
			t.Fatal(err)
		}
		return msgs
	}

	corrupt := fresh()
	corrupt[1][10] ^= 0x01

	gap := fresh()
	gap = append(gap[:1], gap[2:]...)

	swapped := fresh()
	swapped[1], swapped[2] = swapped[2], swapped[1]

	foreign := fresh()
	foreign[0][1] = 0x43

	unterminated := fresh()
	last := unterminated[len(unterminated)-1]
	last[len(last)-1] = 0x00

	highBit := fresh()
	highBit[1][8] |= 0x80

	tests := []struct {
		name string
		msgs [][]byte
		want error
	}{
		{"corrupt payload", corrupt, ErrChecksum},
		{"index gap", gap, ErrSequence},
		{"index order", swapped, ErrSequence},
		{"foreign header", foreign, ErrFormat},
		{"unterminated", unterminated, ErrFormat},
		{"8-bit payload", highBit, ErrFormat},
		{"short message", [][]byte{{0xF0, 0xF7}}, ErrFormat},
		{"empty", nil, ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := DecodeSysEx(tt.msgs)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeSysEx() error = %v, want %v", err, tt.want)
			}
			if raw != nil {
				t.Error("DecodeSysEx() returned partial data")
			}
		})
	}
}

func TestEncodeSysExEmpty(t *testing.T) {
	if _, err := EncodeSysEx(&Document{}); !errors.Is(err, ErrFormat) {
		t.Errorf("EncodeSysEx() error = %v, want ErrFormat", err)
	}
}
