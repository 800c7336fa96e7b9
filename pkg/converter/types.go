// Package converter provides conversion between Standard MIDI Files and Roland MSQ-100 Q1 sequence data
package converter

import (
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Ticks per quarter note used by every sequence handed to or returned by a Device
const Timebase = 120

// EventKind identifies the type of a timed event
type EventKind int

const (
	KindNoteOn EventKind = iota
	KindNoteOff
	KindControlChange
	KindProgramChange
	KindPitchBend
	KindPolyAftertouch
	KindChannelPressure
	KindTimeSignature
	KindTempo
	KindEndOfTrack
)

var kindNames = map[EventKind]string{
	KindNoteOn:          "NoteOn",
	KindNoteOff:         "NoteOff",
	KindControlChange:   "ControlChange",
	KindProgramChange:   "ProgramChange",
	KindPitchBend:       "PitchBend",
	KindPolyAftertouch:  "PolyAftertouch",
	KindChannelPressure: "ChannelPressure",
	KindTimeSignature:   "TimeSignature",
	KindTempo:           "Tempo",
	KindEndOfTrack:      "EndOfTrack",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsChannelVoice reports whether the kind is a channel voice message
func (k EventKind) IsChannelVoice() bool {
	return k <= KindChannelPressure
}

// Event is a single timed event.
//
// Data holds the message data bytes for channel voice events (key/velocity,
// controller/value, program, pitch bend LSB/MSB, pressure). Time signatures
// carry {numerator, denominator}; tempo carries the three microseconds per
// quarter note bytes.
type Event struct {
	Tick    uint32
	Kind    EventKind
	Channel uint8
	Data    []byte
}

// NoteOn creates a note on event
func NoteOn(tick uint32, channel, key, velocity uint8) Event {
	return Event{Tick: tick, Kind: KindNoteOn, Channel: channel, Data: []byte{key, velocity}}
}

// NoteOff creates a note off event with release velocity 0
func NoteOff(tick uint32, channel, key uint8) Event {
	return Event{Tick: tick, Kind: KindNoteOff, Channel: channel, Data: []byte{key, 0}}
}

// ControlChange creates a controller event
func ControlChange(tick uint32, channel, controller, value uint8) Event {
	return Event{Tick: tick, Kind: KindControlChange, Channel: channel, Data: []byte{controller, value}}
}

// ProgramChange creates a program change event
func ProgramChange(tick uint32, channel, program uint8) Event {
	return Event{Tick: tick, Kind: KindProgramChange, Channel: channel, Data: []byte{program}}
}

// PitchBend creates a pitch bend event from a 14-bit value (8192 = center)
func PitchBend(tick uint32, channel uint8, value uint16) Event {
	return Event{Tick: tick, Kind: KindPitchBend, Channel: channel, Data: []byte{byte(value & 0x7F), byte(value>>7) & 0x7F}}
}

// ChannelPressure creates a channel aftertouch event
func ChannelPressure(tick uint32, channel, pressure uint8) Event {
	return Event{Tick: tick, Kind: KindChannelPressure, Channel: channel, Data: []byte{pressure}}
}

// PolyAftertouch creates a polyphonic aftertouch event
func PolyAftertouch(tick uint32, channel, key, pressure uint8) Event {
	return Event{Tick: tick, Kind: KindPolyAftertouch, Channel: channel, Data: []byte{key, pressure}}
}

// TimeSignature creates a time signature change
func TimeSignature(tick uint32, numerator, denominator uint8) Event {
	return Event{Tick: tick, Kind: KindTimeSignature, Data: []byte{numerator, denominator}}
}

// Tempo creates a tempo change from microseconds per quarter note
func Tempo(tick uint32, mpqn uint32) Event {
	return Event{Tick: tick, Kind: KindTempo, Data: []byte{byte(mpqn >> 16), byte(mpqn >> 8), byte(mpqn)}}
}

// EndOfTrack creates an end of track marker
func EndOfTrack(tick uint32) Event {
	return Event{Tick: tick, Kind: KindEndOfTrack}
}

// Status returns the MIDI status byte for channel voice events, 0 otherwise
func (e Event) Status() uint8 {
	var base uint8
	switch e.Kind {
	case KindNoteOn:
		base = 0x90
	case KindNoteOff:
		base = 0x80
	case KindPolyAftertouch:
		base = 0xA0
	case KindControlChange:
		base = 0xB0
	case KindProgramChange:
		base = 0xC0
	case KindChannelPressure:
		base = 0xD0
	case KindPitchBend:
		base = 0xE0
	default:
		return 0
	}
	return base | (e.Channel & 0x0F)
}

// Byte returns data byte i, or 0 when absent
func (e Event) Byte(i int) uint8 {
	if i < len(e.Data) {
		return e.Data[i]
	}
	return 0
}

// Message converts the event into an SMF message. Returns nil for kinds with no message form.
func (e Event) Message() smf.Message {
	ch := e.Channel & 0x0F
	switch e.Kind {
	case KindNoteOn:
		return smf.Message(midi.NoteOn(ch, e.Byte(0), e.Byte(1)))
	case KindNoteOff:
		return smf.Message(midi.NoteOff(ch, e.Byte(0)))
	case KindControlChange:
		return smf.Message(midi.ControlChange(ch, e.Byte(0), e.Byte(1)))
	case KindProgramChange:
		return smf.Message(midi.ProgramChange(ch, e.Byte(0)))
	case KindPitchBend:
		abs := uint16(e.Byte(0)) | uint16(e.Byte(1))<<7
		return smf.Message(midi.Pitchbend(ch, int16(abs)-8192))
	case KindPolyAftertouch:
		return smf.Message(midi.PolyAfterTouch(ch, e.Byte(0), e.Byte(1)))
	case KindChannelPressure:
		return smf.Message(midi.AfterTouch(ch, e.Byte(0)))
	case KindTimeSignature:
		return smf.MetaTimeSig(e.Byte(0), e.Byte(1), 24, 8)
	case KindTempo:
		mpqn := uint32(e.Byte(0))<<16 | uint32(e.Byte(1))<<8 | uint32(e.Byte(2))
		if mpqn == 0 {
			return nil
		}
		return smf.MetaTempo(60000000.0 / float64(mpqn))
	}
	return nil
}

// EventFromMessage converts an SMF message at an absolute tick into an Event.
// The second return value is false for messages with no Event form (SysEx, text meta, ...).
// End of track is reported by the caller, not here.
func EventFromMessage(tick uint32, msg smf.Message) (Event, bool) {
	var ch, key, vel, ctl, val, prog, pressure uint8
	var rel int16
	var abs uint16

	m := midi.Message(msg)
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		return NoteOn(tick, ch, key, vel), true
	case m.GetNoteEnd(&ch, &key):
		return NoteOff(tick, ch, key), true
	case m.GetControlChange(&ch, &ctl, &val):
		return ControlChange(tick, ch, ctl, val), true
	case m.GetProgramChange(&ch, &prog):
		return ProgramChange(tick, ch, prog), true
	case m.GetPitchBend(&ch, &rel, &abs):
		return PitchBend(tick, ch, abs), true
	case m.GetPolyAfterTouch(&ch, &key, &pressure):
		return PolyAftertouch(tick, ch, key, pressure), true
	case m.GetAfterTouch(&ch, &pressure):
		return ChannelPressure(tick, ch, pressure), true
	}

	var num, denom, clocks, demis uint8
	if msg.GetMetaTimeSig(&num, &denom, &clocks, &demis) {
		return TimeSignature(tick, num, denom), true
	}

	var bpm float64
	if msg.GetMetaTempo(&bpm) && bpm > 0 {
		return Tempo(tick, uint32(60000000.0/bpm+0.5)), true
	}

	return Event{}, false
}

// Sequence is an ordered list of timed events at Timebase ticks per quarter note
type Sequence struct {
	Name   string
	Events []Event
}

// Add appends events to the sequence
func (s *Sequence) Add(events ...Event) {
	s.Events = append(s.Events, events...)
}

// Sort orders events by tick, keeping arrival order for equal ticks
func (s *Sequence) Sort() {
	sort.SliceStable(s.Events, func(i, j int) bool {
		return s.Events[i].Tick < s.Events[j].Tick
	})
}

// Len returns the number of events
func (s *Sequence) Len() int {
	return len(s.Events)
}

// End returns the tick of the last event
func (s *Sequence) End() uint32 {
	var end uint32
	for _, ev := range s.Events {
		if ev.Tick > end {
			end = ev.Tick
		}
	}
	return end
}

// Count returns the number of events of the given kind
func (s *Sequence) Count(kind EventKind) int {
	n := 0
	for _, ev := range s.Events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Device interface for device-specific format handling.
//
// Q1 data is the raw (unpacked) block stream; Syx data is the same document
// enveloped as a series of SysEx messages. WrapQ1 and UnwrapSyx move a
// document between the two without decoding it.
type Device interface {
	Name() string
	ID() uint8
	ParseQ1(data []byte) (*Sequence, error)
	GenerateQ1(seq *Sequence) ([]byte, error)
	ParseSyx(data []byte) (*Sequence, error)
	GenerateSyx(seq *Sequence) ([]byte, error)
	WrapQ1(data []byte) ([]byte, error)
	UnwrapSyx(data []byte) ([]byte, error)
	Layout(data []byte) (*Layout, error)
}

// Layout describes how a raw Q1 document is stored
type Layout struct {
	Name    string `json:"name"`
	Blocks  int    `json:"blocks"`
	RawSize int    `json:"rawSize"`
}

// Converter handles format conversions
type Converter struct {
	device Device
	midi   *MIDIConverter
	q1     *Q1Converter
	syx    *SyxConverter
}

// New creates a new Converter with the specified device
func New(device Device) *Converter {
	return &Converter{
		device: device,
		midi:   NewMIDIConverter(),
		q1:     NewQ1Converter(device),
		syx:    NewSyxConverter(device),
	}
}

// GetDevice returns the current device
func (c *Converter) GetDevice() Device {
	return c.device
}

// SetDevice sets the device for conversion
func (c *Converter) SetDevice(device Device) {
	c.device = device
	c.q1 = NewQ1Converter(device)
	c.syx = NewSyxConverter(device)
}

// MIDI returns the Standard MIDI File collaborator used for MIDI input and output
func (c *Converter) MIDI() *MIDIConverter {
	return c.midi
}
