package q1

import (
	"fmt"

	"github.com/james-see/msq2midi/pkg/converter"
	"github.com/james-see/msq2midi/pkg/debug"
)

// decoderState walks the opcode stream one time/command pair at a time
type decoderState struct {
	data []byte
	pos  int

	currTime         uint32
	ticksThisMeasure int
	lastMeasureTicks int
	numerator        int
	measureLength    int
	lastStatus       byte
	maintainVelocity bool
	measures         int
	done             bool
}

func newDecoderState(data []byte, pos int) *decoderState {
	return &decoderState{
		data:          data,
		pos:           pos,
		numerator:     4,
		measureLength: wholeNote,
	}
}

// Decode interprets a raw Q1 document (all blocks concatenated, headers and
// break markers included) and returns its events at converter.Timebase.
func Decode(raw []byte) (*converter.Sequence, error) {
	fcb, pos, err := ParseFileControlBlock(raw)
	if err != nil {
		return nil, err
	}
	if pos+phraseHeaderSize > len(raw) || raw[pos] != blockMarker || raw[pos+1] != blockPhrase {
		return nil, fmt.Errorf("%w: missing phrase block header at offset %d", ErrFormat, pos)
	}

	seq := &converter.Sequence{Name: fcb.Name}
	st := newDecoderState(raw, pos+phraseHeaderSize)
	for !st.done {
		if err := st.step(seq); err != nil {
			return nil, err
		}
	}

	seq.Add(converter.EndOfTrack(st.currTime))
	seq.Sort()
	debug.Log("decoder", "decoded %d events, %d measures, %d ticks", seq.Len(), st.measures, st.currTime)
	return seq, nil
}

func (st *decoderState) next() (byte, error) {
	if st.pos >= len(st.data) {
		return 0, fmt.Errorf("%w: data ends inside an event at offset %d", ErrFormat, st.pos)
	}
	b := st.data[st.pos]
	st.pos++
	return b, nil
}

// skipBreak steps over a block break: an optional second sentinel and the
// next block's header.
func (st *decoderState) skipBreak() {
	if st.pos < len(st.data) && st.data[st.pos] == Sentinel {
		st.pos++
	}
	if st.pos < len(st.data) && st.data[st.pos] == blockMarker {
		st.pos += phraseHeaderSize
		if st.pos > len(st.data) {
			st.pos = len(st.data)
		}
	}
}

// step consumes one time byte and, unless it was an overflow or a break, the
// command that follows it. Exhausted input ends the stream normally.
func (st *decoderState) step(seq *converter.Sequence) error {
	if st.pos >= len(st.data) {
		st.done = true
		return nil
	}

	t, _ := st.next()
	switch t {
	case Sentinel:
		st.skipBreak()
		return nil
	case OpOverflow:
		st.currTime += overflowTicks
		st.ticksThisMeasure += overflowTicks
		return nil
	case OpEnd:
		st.done = true
		return nil
	}
	// measure end and special function only follow a time byte
	if t >= overflowTicks {
		return fmt.Errorf("%w: opcode 0x%02X in time position at offset %d", ErrFormat, t, st.pos-1)
	}

	st.currTime += uint32(t)
	st.ticksThisMeasure += int(t)

	c, err := st.next()
	if err != nil {
		return err
	}
	switch c {
	case OpMeasureEnd:
		st.lastMeasureTicks = st.ticksThisMeasure
		st.ticksThisMeasure = 0
		st.measures++
		return nil
	case OpSpecial:
		return st.special(seq)
	case OpEnd:
		st.done = true
		return nil
	case Sentinel:
		st.skipBreak()
		return nil
	}

	return st.voice(seq, c)
}

func (st *decoderState) special(seq *converter.Sequence) error {
	fn, err := st.next()
	if err != nil {
		return err
	}
	val, err := st.next()
	if err != nil {
		return err
	}

	if fn == FuncMaintainVelocity {
		st.maintainVelocity = val != 0
		return nil
	}

	num := int(val)
	if num == 0 {
		num = 4
	}
	st.numerator = num
	st.measureLength = num * converter.Timebase
	seq.Add(converter.TimeSignature(st.currTime, uint8(num), 4))
	return nil
}

func (st *decoderState) voice(seq *converter.Sequence, c byte) error {
	var status, d0, d1 byte
	var err error

	if c&0x80 != 0 {
		if c >= 0xF0 {
			return fmt.Errorf("%w: unknown opcode 0x%02X at offset %d", ErrFormat, c, st.pos-1)
		}
		status = c
		st.lastStatus = c
		if d0, err = st.next(); err != nil {
			return err
		}
	} else {
		if st.lastStatus == 0 {
			return fmt.Errorf("%w: running status without a prior status at offset %d", ErrSequence, st.pos-1)
		}
		status = st.lastStatus
		d0 = c
	}

	if status < 0xC0 || status > 0xDF {
		if d1, err = st.next(); err != nil {
			return err
		}
	}

	seq.Add(voiceEvent(st.currTime, status, d0&0x7F, d1&0x7F))
	return nil
}

// voiceEvent builds a channel voice event; note on with velocity 0 is a release
func voiceEvent(tick uint32, status, d0, d1 byte) converter.Event {
	ch := status & 0x0F
	switch status & 0xF0 {
	case 0x80:
		return converter.NoteOff(tick, ch, d0)
	case 0x90:
		if d1 == 0 {
			return converter.NoteOff(tick, ch, d0)
		}
		return converter.NoteOn(tick, ch, d0, d1)
	case 0xA0:
		return converter.PolyAftertouch(tick, ch, d0, d1)
	case 0xB0:
		return converter.ControlChange(tick, ch, d0, d1)
	case 0xC0:
		return converter.ProgramChange(tick, ch, d0)
	case 0xD0:
		return converter.ChannelPressure(tick, ch, d0)
	default:
		return converter.PitchBend(tick, ch, uint16(d0)|uint16(d1)<<7)
	}
}
