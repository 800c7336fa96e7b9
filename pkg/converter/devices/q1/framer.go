package q1

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/james-see/msq2midi/pkg/debug"
)

// Document limits
const (
	MaxBlockSize    = 210 // raw bytes in a block, break markers included
	MaxBlocks       = 127 // file control block included
	MaxDocumentSize = MaxBlocks * MaxBlockSize
)

// room kept at the end of every block for the break marker and its pad
const breakReserve = 2

// Block markers
const (
	blockMarker = 0xFD
	blockFile   = 'F'
	blockPhrase = 'P'
)

const (
	nameLength       = 30
	fcbRecordLength  = 40
	phraseHeaderSize = 4
)

// DefaultName is the file name stored in a generated file control block
const DefaultName = "MSQ-100.0"

var phraseHeader = []byte{blockMarker, blockPhrase, 0x00, 0x00}

// FileControlBlock is the metadata record opening every Q1 document
type FileControlBlock struct {
	Name      string
	Conductor bool
	Track     uint8
	Phrase    uint16
	Timebase  uint8
	Tempo     uint8
}

// NewFileControlBlock returns the record the MSQ-100 expects for a single phrase dump
func NewFileControlBlock(name string) FileControlBlock {
	if name == "" {
		name = DefaultName
	}
	return FileControlBlock{
		Name:     name,
		Phrase:   1,
		Timebase: 120,
		Tempo:    100,
	}
}

// Bytes returns the 40-byte record followed by the FE FE end-of-block trailer
func (f FileControlBlock) Bytes() []byte {
	raw := make([]byte, 0, fcbRecordLength+2)
	raw = append(raw, blockMarker, blockFile, 'Q', '1')

	name := []byte(f.Name)
	for i := 0; i < nameLength; i++ {
		c := byte(' ')
		if i < len(name) && name[i] >= 0x20 && name[i] < 0x7F {
			c = name[i]
		} else if i < len(name) {
			c = '?'
		}
		raw = append(raw, c)
	}

	var conductor byte
	if f.Conductor {
		conductor = 0x01
	}
	raw = append(raw, conductor, f.Track, byte(f.Phrase), byte(f.Phrase>>8), f.Timebase, f.Tempo)
	return append(raw, Sentinel, Sentinel)
}

// ParseFileControlBlock validates the record at the start of raw and returns it
// along with the number of bytes it occupies, trailer included.
func ParseFileControlBlock(raw []byte) (FileControlBlock, int, error) {
	if len(raw) < fcbRecordLength+1 {
		return FileControlBlock{}, 0, fmt.Errorf("%w: file control block too short (%d bytes)", ErrFormat, len(raw))
	}
	if raw[0] != blockMarker || raw[1] != blockFile || raw[2] != 'Q' || raw[3] != '1' {
		return FileControlBlock{}, 0, fmt.Errorf("%w: bad file control block signature % X", ErrFormat, raw[:4])
	}

	fcb := FileControlBlock{
		Name:      strings.TrimRight(string(raw[4:4+nameLength]), " \x00"),
		Conductor: raw[34] != 0,
		Track:     raw[35],
		Phrase:    uint16(raw[36]) | uint16(raw[37])<<8,
		Timebase:  raw[38],
		Tempo:     raw[39],
	}
	if fcb.Timebase != 120 {
		return FileControlBlock{}, 0, fmt.Errorf("%w: unsupported timebase %d", ErrFormat, fcb.Timebase)
	}

	n := fcbRecordLength
	if raw[n] != Sentinel {
		return FileControlBlock{}, 0, fmt.Errorf("%w: file control block not terminated", ErrFormat)
	}
	for n < len(raw) && raw[n] == Sentinel {
		n++
	}
	return fcb, n, nil
}

// BlockKind tags the two block variants
type BlockKind int

const (
	FileControl BlockKind = iota
	PhraseData
)

func (k BlockKind) String() string {
	if k == FileControl {
		return "FCB"
	}
	return "PDB"
}

// Block is one framed chunk of raw Q1 data, header and break marker included
type Block struct {
	Kind BlockKind
	Raw  []byte
}

// Document is an ordered list of blocks; block 0 is the file control block
type Document struct {
	Blocks    []Block
	Truncated bool
}

// Bytes returns the concatenated raw stream
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	for _, b := range d.Blocks {
		buf.Write(b.Raw)
	}
	return buf.Bytes()
}

// Size returns the total raw byte count
func (d *Document) Size() int {
	n := 0
	for _, b := range d.Blocks {
		n += len(b.Raw)
	}
	return n
}

// Len returns the number of blocks
func (d *Document) Len() int {
	return len(d.Blocks)
}

// SplitBlocks cuts a raw Q1 stream back into blocks. Each block runs from its
// FD header through its break marker bytes.
func SplitBlocks(raw []byte) (*Document, error) {
	if _, _, err := ParseFileControlBlock(raw); err != nil {
		return nil, err
	}

	doc := &Document{}
	start := 0
	for start < len(raw) {
		if raw[start] != blockMarker {
			return nil, fmt.Errorf("%w: expected block header at offset %d, got 0x%02X", ErrFormat, start, raw[start])
		}
		end := bytes.IndexByte(raw[start:], Sentinel)
		if end < 0 {
			end = len(raw)
		} else {
			end += start
			for end < len(raw) && raw[end] == Sentinel {
				end++
			}
		}

		kind := PhraseData
		if start == 0 {
			kind = FileControl
		} else if end-start < 2 || raw[start+1] != blockPhrase {
			return nil, fmt.Errorf("%w: bad phrase block header at offset %d", ErrFormat, start)
		}
		doc.Blocks = append(doc.Blocks, Block{Kind: kind, Raw: raw[start:end]})
		start = end
	}

	if len(doc.Blocks) > MaxBlocks {
		return nil, fmt.Errorf("%w: %d blocks, limit %d", ErrCapacity, len(doc.Blocks), MaxBlocks)
	}
	return doc, nil
}

// session owns the scratch buffer of one encoding pass and frames it into blocks
type session struct {
	buf    []byte
	starts []int
}

// newSession writes the file control block and opens the first phrase block
func newSession(fcb FileControlBlock) *session {
	s := &session{buf: make([]byte, 0, 1024)}
	s.starts = append(s.starts, 0)
	s.buf = append(s.buf, fcb.Bytes()...)
	s.openPhrase()
	return s
}

func (s *session) openPhrase() {
	s.starts = append(s.starts, len(s.buf))
	s.buf = append(s.buf, phraseHeader...)
}

// blocks returns the number of blocks opened so far
func (s *session) blocks() int {
	return len(s.starts)
}

// blockLen returns the raw size of the open block, header included
func (s *session) blockLen() int {
	return len(s.buf) - s.starts[len(s.starts)-1]
}

// emit appends one opcode group. The group never straddles a break: when it
// would leave no room for the break markers within MaxBlockSize the block is
// closed first. Room for the end-of-data group is held back in the last
// permitted block so a document can always be terminated.
func (s *session) emit(group ...byte) error {
	return s.write(group, false)
}

func (s *session) write(group []byte, final bool) error {
	limit := MaxBlockSize - breakReserve
	sizeLimit := MaxDocumentSize - breakReserve
	if !final {
		if s.blocks() == MaxBlocks {
			limit -= len(endOfData)
		}
		sizeLimit -= len(endOfData)
	}

	if s.blockLen()+len(group) > limit {
		if err := s.breakBlock(false); err != nil {
			return err
		}
	}
	if len(s.buf)+len(group) > sizeLimit {
		return fmt.Errorf("%w: document would exceed %d bytes", ErrCapacity, MaxDocumentSize)
	}

	s.buf = append(s.buf, group...)
	return nil
}

// breakBlock closes the open block with a sentinel, pads odd-length blocks
// with a second sentinel, and unless final opens the next phrase block.
func (s *session) breakBlock(final bool) error {
	if !final && s.blocks() >= MaxBlocks {
		return fmt.Errorf("%w: block %d would exceed limit of %d blocks", ErrCapacity, s.blocks()+1, MaxBlocks)
	}

	s.buf = append(s.buf, Sentinel)
	n := s.blockLen()
	if n%2 != 0 && n/7 != 1 && !final {
		s.buf = append(s.buf, Sentinel)
		n++
	}
	debug.Log("framer", "block %d closed at %d bytes (final=%v)", s.blocks()-1, n, final)

	if !final {
		s.openPhrase()
	}
	return nil
}

// end writes the end-of-data group, closes the last block and hands the
// buffer over as a document.
func (s *session) end() (*Document, error) {
	if err := s.write(endOfData, true); err != nil {
		return nil, err
	}
	if err := s.breakBlock(true); err != nil {
		return nil, err
	}

	doc := &Document{Blocks: make([]Block, 0, len(s.starts))}
	for i, start := range s.starts {
		stop := len(s.buf)
		if i+1 < len(s.starts) {
			stop = s.starts[i+1]
		}
		kind := PhraseData
		if i == 0 {
			kind = FileControl
		}
		doc.Blocks = append(doc.Blocks, Block{Kind: kind, Raw: s.buf[start:stop]})
	}
	s.buf = nil
	s.starts = nil
	return doc, nil
}
