package manager

import "sync"

// UndoLog is the per-transaction, ordered, append-only list of undo
// records consumed in reverse by rollback.
type UndoLog struct {
	mu      sync.Mutex
	records []UndoRecord
}

// NewUndoLog creates an empty undo log.
func NewUndoLog() *UndoLog {
	return &UndoLog{}
}

// Append adds a record to the end of the log.
func (u *UndoLog) Append(rec UndoRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = append(u.records, rec)
}

// Records returns a copy of the log in append order; callers reverse
// it themselves when replaying for rollback.
func (u *UndoLog) Records() []UndoRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]UndoRecord, len(u.records))
	copy(out, u.records)
	return out
}

// Clear discards every record, called on commit.
func (u *UndoLog) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = nil
}

// Len reports how many records are pending.
func (u *UndoLog) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.records)
}
