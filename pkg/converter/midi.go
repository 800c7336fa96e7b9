package converter

import (
	"bytes"
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Output timebase limits
const (
	MinTimebase  = 96
	MaxTimebase  = 960
	timebaseStep = 24
)

// Defaults written into every generated MIDI file
const (
	DefaultTrackName = "MSQ-100 Sequence"
	DefaultTempo     = 100.0
)

// MIDIConverter handles Standard MIDI File parsing and generation
type MIDIConverter struct {
	// Track selects the source track when parsing: 0 merges all tracks,
	// n uses track n plus the time signatures of every track.
	Track int
	// Timebase is the resolution of generated files in ticks per quarter note
	Timebase uint16
}

// NewMIDIConverter creates a new MIDI converter
func NewMIDIConverter() *MIDIConverter {
	return &MIDIConverter{Timebase: Timebase}
}

// NormalizeTimebase clamps tb to 96..960 and rounds it down to a multiple of 24
func NormalizeTimebase(tb int) uint16 {
	if tb < MinTimebase {
		tb = MinTimebase
	}
	if tb > MaxTimebase {
		tb = MaxTimebase
	}
	return uint16(tb - tb%timebaseStep)
}

// rescale converts tick from one resolution to another
func rescale(tick uint64, from, to uint16) uint32 {
	if from == to || from == 0 {
		return uint32(tick)
	}
	return uint32(tick * uint64(to) / uint64(from))
}

// ParseMIDI parses MIDI data into a single sequence at Timebase ticks per
// quarter note, ending with one EndOfTrack event.
func (m *MIDIConverter) ParseMIDI(data []byte) (*Sequence, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("SMPTE time format is not supported")
	}
	resolution := mt.Resolution()

	if m.Track < 0 || m.Track > len(s.Tracks) {
		return nil, fmt.Errorf("track %d out of range: file has %d tracks", m.Track, len(s.Tracks))
	}

	seq := &Sequence{Name: "MIDI Sequence"}
	var end uint32
	named := false

	for i, track := range s.Tracks {
		selected := m.Track == 0 || m.Track == i+1
		var abs uint64

		for _, ev := range track {
			abs += uint64(ev.Delta)
			tick := rescale(abs, resolution, Timebase)
			msg := ev.Message

			// End of track: FF 2F 00
			if len(msg) >= 2 && msg[0] == 0xFF && msg[1] == 0x2F {
				if tick > end {
					end = tick
				}
				continue
			}

			var name string
			if msg.GetMetaTrackName(&name) {
				if selected && !named && name != "" {
					seq.Name, named = name, true
				}
				continue
			}

			e, ok := EventFromMessage(tick, msg)
			if !ok {
				continue
			}
			if !selected && e.Kind != KindTimeSignature {
				continue
			}
			seq.Add(e)
			if tick > end {
				end = tick
			}
		}
	}

	seq.Sort()
	seq.Add(EndOfTrack(end))
	return seq, nil
}

// GenerateMIDI creates a format 0 MIDI file from seq. Ticks are rescaled from
// Timebase to m.Timebase.
func (m *MIDIConverter) GenerateMIDI(seq *Sequence) ([]byte, error) {
	if seq == nil {
		return nil, errors.New("nil sequence")
	}

	tb := m.Timebase
	if tb == 0 {
		tb = Timebase
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tb)

	events := make([]Event, len(seq.Events))
	copy(events, seq.Events)
	sorted := &Sequence{Events: events}
	sorted.Sort()

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(DefaultTrackName))
	if !hasTempoAt(events, 0) {
		track.Add(0, smf.MetaTempo(DefaultTempo))
	}

	var last, end uint32
	for _, ev := range events {
		tick := rescale(uint64(ev.Tick), Timebase, tb)
		if ev.Kind == KindEndOfTrack {
			if tick > end {
				end = tick
			}
			continue
		}

		msg := ev.Message()
		if msg == nil {
			continue
		}
		track.Add(tick-last, msg)
		last = tick
		if tick > end {
			end = tick
		}
	}

	track.Close(end - last)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

func hasTempoAt(events []Event, tick uint32) bool {
	for _, ev := range events {
		if ev.Tick == tick && ev.Kind == KindTempo {
			return true
		}
	}
	return false
}
