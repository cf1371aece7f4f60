package manager

import (
	"sync"

	"github.com/zhukovaskychina/innodb-core/server/innodb/logging"
)

var redoLog = logging.For("redolog")

// RedoLog is the process-wide, ordered, append-only list of redo
// records. lsn is allocated strictly monotonically; flushed_lsn tracks
// the highest lsn made durable.
type RedoLog struct {
	mu         sync.Mutex
	nextLSN    int
	records    []RedoRecord
	flushedLSN int
}

// NewRedoLog creates an empty redo log with lsn allocation starting at 1.
func NewRedoLog() *RedoLog {
	return &RedoLog{nextLSN: 1}
}

// NextLSN allocates and returns the next strictly increasing lsn.
func (r *RedoLog) NextLSN() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	lsn := r.nextLSN
	r.nextLSN++
	return lsn
}

// Append adds a record to the end of the log. Callers are expected to
// have obtained rec.LSN from NextLSN first.
func (r *RedoLog) Append(rec RedoRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Flush sets flushed_lsn to the lsn of the last appended record
// whenever records is non-empty (spec.md §9's fourth resolved open
// question: flush never reads a separate, unpopulated redo_lsns
// field). A no-op when the log is empty.
func (r *RedoLog) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return
	}
	r.flushedLSN = r.records[len(r.records)-1].LSN
	redoLog.WithField("flushed_lsn", r.flushedLSN).Debug("redo flush")
}

// Clear empties the in-memory record list. flushed_lsn is left as-is:
// it is a watermark, not a count of retained records.
func (r *RedoLog) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// FlushedLSN returns the current durability watermark.
func (r *RedoLog) FlushedLSN() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushedLSN
}

// Records returns a copy of the in-memory record list, for tests and
// post-mortem inspection.
func (r *RedoLog) Records() []RedoRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RedoRecord, len(r.records))
	copy(out, r.records)
	return out
}
