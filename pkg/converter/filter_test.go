package converter

import (
	"testing"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		spec    string
		want    Filter
		wantErr bool
	}{
		{"", Filter{}, false},
		{"p", Filter{ProgramChange: true}, false},
		{"pab", Filter{ProgramChange: true, Aftertouch: true, PitchBend: true}, false},
		{"l", Filter{Controllers: true}, false},
		{"c1c16", Filter{Mute: 0x8001}, false},
		{"pax14", Filter{ProgramChange: true, Aftertouch: true, Solo: 1 << 13}, false},
		{"c17", Filter{}, true},
		{"x", Filter{}, true},
		{"z", Filter{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseFilter(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseFilter(%q) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestFilterAllows(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		ev     Event
		want   bool
	}{
		{"empty filter", Filter{}, ControlChange(0, 0, 7, 100), true},
		{"program change", Filter{ProgramChange: true}, ProgramChange(0, 0, 1), false},
		{"bank select", Filter{ProgramChange: true}, ControlChange(0, 0, 0, 1), false},
		{"volume with program filter", Filter{ProgramChange: true}, ControlChange(0, 0, 7, 1), true},
		{"controllers", Filter{Controllers: true}, ControlChange(0, 0, 7, 1), false},
		{"modulation survives", Filter{Controllers: true}, ControlChange(0, 0, 1, 64), true},
		{"poly aftertouch", Filter{Aftertouch: true}, PolyAftertouch(0, 0, 60, 1), false},
		{"channel pressure", Filter{Aftertouch: true}, ChannelPressure(0, 0, 1), false},
		{"pitch bend", Filter{PitchBend: true}, PitchBend(0, 0, 0), false},
		{"muted channel", Filter{Mute: 1 << 2}, NoteOn(0, 2, 60, 100), false},
		{"unmuted channel", Filter{Mute: 1 << 2}, NoteOn(0, 3, 60, 100), true},
		{"solo keeps", Filter{Solo: 1 << 4}, NoteOn(0, 4, 60, 100), true},
		{"solo drops", Filter{Solo: 1 << 4}, NoteOn(0, 5, 60, 100), false},
		{"solo beats mute", Filter{Solo: 1 << 4, Mute: 1 << 4}, NoteOn(0, 4, 60, 100), true},
		{"meta passes", Filter{Solo: 1 << 4}, TimeSignature(0, 3, 4), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Allows(tt.ev); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}
