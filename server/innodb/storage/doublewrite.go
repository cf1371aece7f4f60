package storage

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/zhukovaskychina/innodb-core/server/innodb/logging"
)

var dwbLog = logging.For("doublewrite")

// DoublewriteBuffer stages pages before they are written to their final
// Disk location, protecting against torn writes the way InnoDB's real
// doublewrite area does: a staged page's sequential-area copy lets a
// crash-recovery reader reconstruct it even if the final write tore.
// Replay from that area is out of scope here; only the structural
// staging/sequential/clear contract is implemented.
type DoublewriteBuffer struct {
	mu       sync.Mutex
	staging  map[int]*Page
	sequence map[int]*Page
}

// NewDoublewriteBuffer creates an empty staging area and sequential area.
func NewDoublewriteBuffer() *DoublewriteBuffer {
	return &DoublewriteBuffer{
		staging:  make(map[int]*Page),
		sequence: make(map[int]*Page),
	}
}

// AddPage deep-copies p into the staging map. Never fails: staging is
// purely in-memory bookkeeping ahead of the sequential flush.
func (w *DoublewriteBuffer) AddPage(p *Page) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staging[p.PageID] = p.Clone()
}

// Flush copies the whole staging map into the sequential area as one
// unit and persists it (simulated: held in memory until ClearArea is
// called; Clear leaves it in place). A no-op when staging is empty.
func (w *DoublewriteBuffer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.staging) == 0 {
		return
	}
	for id, p := range w.staging {
		w.sequence[id] = p.Clone()
	}
	dwbLog.WithField("pages", len(w.staging)).Debug("sequential area flushed")
}

// Recover looks up the sequential area by page-id, returning an
// independent copy, or nil if the page was never flushed there.
func (w *DoublewriteBuffer) Recover(pageID int) *Page {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.sequence[pageID]
	if !ok {
		return nil
	}
	return p.Clone()
}

// Clear empties the staging map only; the sequential area is untouched.
func (w *DoublewriteBuffer) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staging = make(map[int]*Page)
}

// ClearArea empties the sequential area too, discarding the
// crash-recovery copies of every previously flushed page.
func (w *DoublewriteBuffer) ClearArea() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sequence = make(map[int]*Page)
}

// StagingSize reports how many pages are currently staged, used by
// tests asserting the staging->sequential->clear ordering.
func (w *DoublewriteBuffer) StagingSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.staging)
}

// SequenceSize reports how many pages currently live in the sequential
// area.
func (w *DoublewriteBuffer) SequenceSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sequence)
}

// DumpToJSON renders the doublewrite_buffer.json schema: the staging
// map keyed by stringified page-id, per spec.md's persisted artefacts.
func (w *DoublewriteBuffer) DumpToJSON() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]struct {
		PageID  int                      `json:"page_id"`
		Rows    map[string][]interface{} `json:"rows"`
		PageLSN int                      `json:"page_lsn"`
		Dirty   bool                     `json:"dirty"`
	}, len(w.staging))

	for id, p := range w.staging {
		rows := make(map[string][]interface{}, len(p.Rows))
		for rowID, row := range p.Rows {
			rows[strconv.Itoa(rowID)] = encodeRow(row)
		}
		entry := out[strconv.Itoa(id)]
		entry.PageID = p.PageID
		entry.Rows = rows
		entry.PageLSN = p.PageLSN
		entry.Dirty = p.Dirty
		out[strconv.Itoa(id)] = entry
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, jsonError("doublewrite.dump_to_json", err)
	}
	return data, nil
}
