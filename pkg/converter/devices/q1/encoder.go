package q1

import (
	"errors"
	"fmt"
	"sort"

	"github.com/james-see/msq2midi/pkg/converter"
	"github.com/james-see/msq2midi/pkg/debug"
)

// Opcodes of the phrase data stream
const (
	OpOverflow   = 0xF8 // advance 240 ticks
	OpMeasureEnd = 0xF9
	OpSpecial    = 0xFA
	OpEnd        = 0xFC
)

// Special function codes following OpSpecial
const (
	FuncBeatsPerMeasure  = 0x00
	FuncMaintainVelocity = 0x01
)

const (
	overflowTicks = 240
	wholeNote     = 4 * converter.Timebase
)

var (
	endOfData        = []byte{0x00, OpEnd}
	maintainVelocity = []byte{0x00, OpSpecial, FuncMaintainVelocity, 0x7F}
)

// Options controls encoding
type Options struct {
	Filter converter.Filter
	// Name is stored in the file control block; DefaultName when empty
	Name string
	// Truncate ends the document at the last block that fits instead of
	// failing with ErrCapacity
	Truncate bool
}

// encoderState is carried across the event scan
type encoderState struct {
	lastTick         uint32
	ticksThisMeasure int
	measureLength    int
	numerator        int
	denominator      int
	lastStatus       byte

	pendingSig bool
	sigTick    uint32
	sigNum     int
	sigDenom   int
	lastSigAt  int64
}

func newEncoderState() encoderState {
	return encoderState{
		measureLength: wholeNote,
		numerator:     4,
		denominator:   4,
		lastSigAt:     -1,
	}
}

// setSignature normalizes n/8 and n/16 signatures onto quarter notes where the
// numerator allows it and recomputes the measure length.
func (st *encoderState) setSignature(num, denom int) {
	if num < 1 {
		num = 4
	}
	if denom < 1 || denom > wholeNote {
		denom = 4
	}
	switch {
	case denom == 8 && num%2 == 0:
		num, denom = num/2, 4
	case denom == 16 && num%4 == 0:
		num, denom = num/4, 4
	}
	st.numerator, st.denominator = num, denom
	st.measureLength = (wholeNote / denom) * num
	if st.measureLength <= 0 {
		st.measureLength = wholeNote
	}
}

// signatureCode is the beats-per-measure value the device understands, 0 when
// the signature has no quarter-note form.
func (st *encoderState) signatureCode() byte {
	if st.denominator == 4 && st.numerator >= 1 && st.numerator <= 8 {
		return byte(st.numerator)
	}
	return 0
}

// advance moves the clock to tick and returns the elapsed delta
func (st *encoderState) advance(tick uint32) int {
	delta := 0
	if tick > st.lastTick {
		delta = int(tick - st.lastTick)
	}
	st.lastTick = tick
	return delta
}

type encoder struct {
	s      *session
	st     encoderState
	filter converter.Filter
}

// Encode converts seq into a raw Q1 document: the file control block, the
// first phrase block header, the maintain-velocity directive and the opcode
// stream, framed into blocks.
func Encode(seq *converter.Sequence, opts Options) (*Document, error) {
	if seq == nil {
		return nil, fmt.Errorf("%w: nil sequence", ErrFormat)
	}

	events := make([]converter.Event, len(seq.Events))
	copy(events, seq.Events)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Tick < events[j].Tick })

	e := &encoder{
		s:      newSession(NewFileControlBlock(opts.Name)),
		st:     newEncoderState(),
		filter: opts.Filter,
	}

	err := e.run(events)
	if errors.Is(err, ErrCapacity) && opts.Truncate {
		debug.Log("encoder", "truncating at %d blocks, tick %d: %v", e.s.blocks(), e.st.lastTick, err)
		doc, endErr := e.s.end()
		if endErr != nil {
			return nil, endErr
		}
		doc.Truncated = true
		return doc, nil
	}
	if err != nil {
		return nil, err
	}

	doc, err := e.s.end()
	if err != nil {
		return nil, err
	}
	debug.Log("encoder", "encoded %d events into %d blocks, %d bytes", len(events), doc.Len(), doc.Size())
	return doc, nil
}

func (e *encoder) run(events []converter.Event) error {
	if err := e.s.emit(maintainVelocity...); err != nil {
		return err
	}

	end := uint32(0)
	for _, ev := range events {
		if ev.Kind == converter.KindEndOfTrack {
			end = ev.Tick
			break
		}
		if ev.Tick > end {
			end = ev.Tick
		}
		if err := e.event(ev); err != nil {
			return fmt.Errorf("event %s at tick %d: %w", ev.Kind, ev.Tick, err)
		}
	}
	return e.endOfTrack(end)
}

func (e *encoder) event(ev converter.Event) error {
	switch ev.Kind {
	case converter.KindTempo:
		// the format carries no tempo
		return nil
	case converter.KindTimeSignature:
		return e.timeSignature(ev)
	}

	if !ev.Kind.IsChannelVoice() || !e.filter.Allows(ev) {
		return nil
	}

	noteOff := ev.Kind == converter.KindNoteOff || (ev.Kind == converter.KindNoteOn && ev.Byte(1) == 0)
	rest, err := e.decompose(e.st.advance(ev.Tick), noteOff)
	if err != nil {
		return err
	}
	return e.voice(ev, rest, noteOff)
}

// decompose emits measure ends and overflow opcodes for delta and returns the
// remainder, which is always shorter than the rest of the current measure and
// below 240. A note release landing exactly on a measure end is returned
// whole so it is written before the measure end.
func (e *encoder) decompose(delta int, noteOff bool) (int, error) {
	st := &e.st
	for {
		toEnd := st.measureLength - st.ticksThisMeasure

		if noteOff && delta == toEnd && toEnd < overflowTicks {
			return delta, nil
		}

		switch {
		case delta >= toEnd && toEnd < overflowTicks:
			if err := e.s.emit(byte(toEnd), OpMeasureEnd); err != nil {
				return 0, err
			}
			delta -= toEnd
			st.ticksThisMeasure = 0

			// a signature change on this boundary goes right after the measure end
			if st.pendingSig && st.lastTick-uint32(delta) == st.sigTick {
				if err := e.signature(); err != nil {
					return 0, err
				}
			}
		case delta >= overflowTicks:
			if err := e.s.emit(OpOverflow); err != nil {
				return 0, err
			}
			delta -= overflowTicks
			st.ticksThisMeasure += overflowTicks
		default:
			return delta, nil
		}
	}
}

func (e *encoder) timeSignature(ev converter.Event) error {
	st := &e.st
	if st.lastSigAt == int64(ev.Tick) {
		// first signature registered at a tick wins
		return nil
	}
	st.lastSigAt = int64(ev.Tick)

	st.pendingSig = true
	st.sigTick = ev.Tick
	st.sigNum, st.sigDenom = int(ev.Byte(0)), int(ev.Byte(1))

	rest, err := e.decompose(st.advance(ev.Tick), false)
	if err != nil {
		return err
	}
	if !st.pendingSig {
		return nil
	}

	if rest != 0 || st.ticksThisMeasure != 0 {
		// not on a boundary: end the short measure here
		if err := e.s.emit(byte(rest), OpMeasureEnd); err != nil {
			return err
		}
		st.ticksThisMeasure = 0
	}
	return e.signature()
}

// signature applies the pending signature and writes the beats-per-measure
// special function. It counts as a status change, so the next voice event
// always carries its status byte.
func (e *encoder) signature() error {
	st := &e.st
	st.setSignature(st.sigNum, st.sigDenom)
	if err := e.s.emit(0x00, OpSpecial, FuncBeatsPerMeasure, st.signatureCode()); err != nil {
		return err
	}
	st.lastStatus = OpSpecial
	st.pendingSig = false
	return nil
}

func (e *encoder) voice(ev converter.Event, delta int, noteOff bool) error {
	st := &e.st

	status := ev.Status()
	d0, d1 := ev.Byte(0), ev.Byte(1)
	if noteOff {
		status = 0x90 | (ev.Channel & 0x0F)
		d1 = 0
	}

	group := make([]byte, 0, 4)
	group = append(group, byte(delta))
	if status != st.lastStatus || status&0xF0 == 0xF0 {
		group = append(group, status)
	}
	group = append(group, d0&0x7F)
	if status < 0xC0 || status > 0xDF {
		group = append(group, d1&0x7F)
	}

	if err := e.s.emit(group...); err != nil {
		return err
	}
	st.lastStatus = status
	st.ticksThisMeasure += delta
	return nil
}

// endOfTrack advances to the end tick and completes the last measure
func (e *encoder) endOfTrack(tick uint32) error {
	st := &e.st
	rest, err := e.decompose(st.advance(tick), false)
	if err != nil {
		return err
	}
	if rest != 0 || st.ticksThisMeasure != 0 {
		if _, err := e.decompose(st.measureLength-st.ticksThisMeasure, false); err != nil {
			return err
		}
	}
	return nil
}
