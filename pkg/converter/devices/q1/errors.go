package q1

import "errors"

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	// ErrFormat reports a bad file control block, block header, message framing or opcode
	ErrFormat = errors.New("q1: format error")
	// ErrChecksum reports a SysEx payload whose checksum does not match
	ErrChecksum = errors.New("q1: checksum mismatch")
	// ErrSequence reports an out of order block index or running status with no prior status
	ErrSequence = errors.New("q1: sequence error")
	// ErrCapacity reports a document exceeding the block count or raw size limits
	ErrCapacity = errors.New("q1: capacity exceeded")
)
