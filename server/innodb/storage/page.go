// Package storage implements the fixed-capacity page and the durable
// Disk substrate beneath the buffer pool, plus the doublewrite staging
// area used to protect page writes from torn writes. Page mirrors the
// pin-count/dirty bookkeeping in storage/wrapper/page/base.go, trimmed
// down from InnoDB's on-disk file-header/trailer layout to the plain
// row-id -> row-tuple map this engine actually needs.
package storage

import (
	"fmt"
	"sort"

	"github.com/OneOfOne/xxhash"
)

// Row is an opaque tuple; by convention Row[0] is the row's own id, a
// constraint callers are expected to uphold (the engine never inspects
// the rest of the tuple).
type Row []interface{}

// RowID returns the row's own id, the first element of the tuple.
func (r Row) RowID() int {
	if len(r) == 0 {
		return 0
	}
	id, _ := r[0].(int)
	return id
}

// Page is the fixed unit of storage: a page-id, its row-id -> Row
// mapping, the lsn of the last mutation that touched it, a dirty flag
// and a pin count. Page is a plain value type on purpose: Disk and
// BufferPool copy it in and out rather than share pointers, so a
// mutation on one party's copy never leaks into another's.
type Page struct {
	PageID   int
	Rows     map[int]Row
	PageLSN  int
	Dirty    bool
	PinCount int
}

// NewPage creates an empty page ready to receive rows.
func NewPage(pageID int) *Page {
	return &Page{
		PageID: pageID,
		Rows:   make(map[int]Row),
	}
}

// Clone returns an independent deep copy: mutating the result never
// affects the receiver. Disk.GetPage/WritePage and every BufferPool
// hand-off goes through Clone so no two holders ever alias a Page.
func (p *Page) Clone() *Page {
	cp := &Page{
		PageID:   p.PageID,
		PageLSN:  p.PageLSN,
		Dirty:    p.Dirty,
		PinCount: p.PinCount,
		Rows:     make(map[int]Row, len(p.Rows)),
	}
	for id, row := range p.Rows {
		rc := make(Row, len(row))
		copy(rc, row)
		cp.Rows[id] = rc
	}
	return cp
}

// RowIDsSorted returns the page's row-ids in ascending order, used
// wherever output must be deterministic (JSON dumps, tests).
func (p *Page) RowIDsSorted() []int {
	ids := make([]int, 0, len(p.Rows))
	for id := range p.Rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Checksum derives a page-trailer-style checksum over the page's rows
// and lsn, the way InnoDB pages carry FTrailerChecksum. It is computed
// on demand and never stored in the Page; Disk.GetPage compares the
// checksum of the copy it returns with the stored page's and logs a
// mismatch, never failing on it. Disk writes and the doublewrite
// buffer do not compute it.
func (p *Page) Checksum() uint64 {
	h := xxhash.New64()
	for _, id := range p.RowIDsSorted() {
		row := p.Rows[id]
		for _, v := range row {
			_, _ = h.Write([]byte(toChecksumString(v)))
		}
	}
	_, _ = h.Write([]byte(toChecksumString(p.PageLSN)))
	return h.Sum64()
}

func toChecksumString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
