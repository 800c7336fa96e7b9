package converter

import (
	"fmt"
	"strings"
)

// Controller numbers with special filter treatment
const (
	ControllerBankSelect = 0x00
	ControllerModulation = 0x01
)

// Filter selects which channel voice events are dropped before encoding.
// Channels in Mute and Solo are bitmasks over channels 0-15; a non-empty
// Solo mask keeps only the listed channels and takes precedence over Mute.
type Filter struct {
	ProgramChange bool   `json:"programChange"` // program change and bank select
	Aftertouch    bool   `json:"aftertouch"`    // polyphonic and channel aftertouch
	PitchBend     bool   `json:"pitchBend"`
	Controllers   bool   `json:"controllers"` // every controller except modulation
	Mute          uint16 `json:"mute,omitempty"`
	Solo          uint16 `json:"solo,omitempty"`
}

// MuteChannel drops events on channel (0-15)
func (f *Filter) MuteChannel(channel uint8) {
	f.Mute |= 1 << (channel & 0x0F)
}

// SoloChannel keeps events on channel (0-15), dropping every channel not soloed
func (f *Filter) SoloChannel(channel uint8) {
	f.Solo |= 1 << (channel & 0x0F)
}

// Allows reports whether ev passes the filter. Non channel voice events always pass.
func (f Filter) Allows(ev Event) bool {
	if !ev.Kind.IsChannelVoice() {
		return true
	}

	bit := uint16(1) << (ev.Channel & 0x0F)
	if f.Solo != 0 {
		if f.Solo&bit == 0 {
			return false
		}
	} else if f.Mute&bit != 0 {
		return false
	}

	switch ev.Kind {
	case KindProgramChange:
		return !f.ProgramChange
	case KindControlChange:
		ctl := ev.Byte(0)
		if ctl == ControllerBankSelect && f.ProgramChange {
			return false
		}
		if ctl != ControllerModulation && f.Controllers {
			return false
		}
	case KindPitchBend:
		return !f.PitchBend
	case KindPolyAftertouch, KindChannelPressure:
		return !f.Aftertouch
	}
	return true
}

// ParseFilter parses the compact filter syntax used on the command line:
// p = program change, l = controllers, a = aftertouch, b = pitch bend,
// c<n> = mute channel n, x<n> = solo channel n (channels 1-16).
// Example: "pax14" drops program changes and aftertouch and solos channel 14.
func ParseFilter(spec string) (Filter, error) {
	var f Filter
	spec = strings.ToLower(spec)

	for i := 0; i < len(spec); i++ {
		switch c := spec[i]; c {
		case 'p':
			f.ProgramChange = true
		case 'a':
			f.Aftertouch = true
		case 'b':
			f.PitchBend = true
		case 'l':
			f.Controllers = true
		case 'c', 'x':
			j := i + 1
			n := 0
			for j < len(spec) && spec[j] >= '0' && spec[j] <= '9' {
				n = n*10 + int(spec[j]-'0')
				j++
			}
			if j == i+1 || n < 1 || n > 16 {
				return Filter{}, fmt.Errorf("invalid filter %q: channel after %q must be 1-16", spec, c)
			}
			if c == 'c' {
				f.MuteChannel(uint8(n - 1))
			} else {
				f.SoloChannel(uint8(n - 1))
			}
			i = j - 1
		default:
			return Filter{}, fmt.Errorf("invalid filter %q: unknown option %q", spec, c)
		}
	}
	return f, nil
}
