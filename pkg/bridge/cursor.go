// Copyright 2025 Certen Protocol

package bridge

// Cursor is the ingestor's idempotency watermark: the last (block,
// log-index) pair whose event was applied. Logs not strictly greater than
// the cursor are discarded (spec.md sec. 4.3 "Ordering").
type Cursor struct {
	LastBlock    uint64 `json:"last_block"`
	LastLogIndex uint   `json:"last_log_index"`
}

// After reports whether (block, logIndex) is strictly greater than c,
// i.e. whether an event at that position has not yet been applied.
func (c Cursor) After(block uint64, logIndex uint) bool {
	if block != c.LastBlock {
		return block > c.LastBlock
	}
	return logIndex > c.LastLogIndex
}

// Advance returns the cursor updated to (block, logIndex). Callers must
// only advance forward; Advance does not itself enforce monotonicity,
// that is the caller's responsibility via After.
func (c Cursor) Advance(block uint64, logIndex uint) Cursor {
	return Cursor{LastBlock: block, LastLogIndex: logIndex}
}
