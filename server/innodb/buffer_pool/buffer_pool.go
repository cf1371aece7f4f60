package buffer_pool

import (
	"sync"

	"github.com/zhukovaskychina/innodb-core/server/innodb/errs"
	"github.com/zhukovaskychina/innodb-core/server/innodb/logging"
	"github.com/zhukovaskychina/innodb-core/server/innodb/storage"
)

var bpLog = logging.For("bufferpool")

// Stats is a read-only snapshot of the pool's counters, purely
// observational: no control-flow decision ever reads it back.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// BufferPool is the capacity-bounded, pin-aware LRU page cache sitting
// in front of Disk, staged through DoublewriteBuffer on write-back.
type BufferPool struct {
	mu sync.Mutex

	capacity int
	list     *lruList
	slotOf   map[int]int // page-id -> arena slot

	disk *storage.Disk
	dwb  *storage.DoublewriteBuffer

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a BufferPool of the given capacity backed by disk and
// staged through dwb on every write-back.
func New(capacity int, disk *storage.Disk, dwb *storage.DoublewriteBuffer) *BufferPool {
	return &BufferPool{
		capacity: capacity,
		list:     newLRUList(),
		slotOf:   make(map[int]int),
		disk:     disk,
		dwb:      dwb,
	}
}

// LoadPage returns the page, pinning it. On a cache hit the entry moves
// to the head of the LRU list and its pin count increments; on a miss
// it is read from Disk and admitted (evicting if necessary) with a
// fresh pin count of 1. load_page never marks the page dirty: a read
// must never dirty a page (spec.md §9's first resolved open question).
func (bp *BufferPool) LoadPage(pageID int) (*storage.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.slotOf[pageID]; ok {
		bp.hits++
		bp.list.entries[idx].pinCount++
		bp.list.moveToFront(idx)
		return bp.list.entries[idx].page.Clone(), nil
	}

	bp.misses++
	p, err := bp.disk.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	if err := bp.admitLocked(p, 1); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// AddPageToMemory admits a freshly allocated page with pin count zero.
// A no-op if the page is already resident.
func (bp *BufferPool) AddPageToMemory(p *storage.Page) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.slotOf[p.PageID]; ok {
		return nil
	}
	return bp.admitLocked(p, 0)
}

// AddPinnedPage admits a freshly allocated page with pin count one, the
// allocation policy's guard against a brand new, still-empty page being
// evicted before its first row is written.
func (bp *BufferPool) AddPinnedPage(p *storage.Page) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.slotOf[p.PageID]; ok {
		return nil
	}
	return bp.admitLocked(p, 1)
}

// MaxResidentPageID returns the largest page-id currently cached, or 0
// if the pool is empty.
func (bp *BufferPool) MaxResidentPageID() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	max := 0
	for pageID := range bp.slotOf {
		if pageID > max {
			max = pageID
		}
	}
	return max
}

// RowCount peeks at pageID's cached row count without affecting pin
// count or LRU order. ok is false if pageID is not resident.
func (bp *BufferPool) RowCount(pageID int) (count int, ok bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	idx, found := bp.slotOf[pageID]
	if !found {
		return 0, false
	}
	return len(bp.list.entries[idx].page.Rows), true
}

// admitLocked inserts p at the head of the LRU list with the given
// initial pin count, evicting the tail victim first if the pool is at
// capacity. Fails<AllPinned> if every resident entry is pinned. Must be
// called with mu held.
func (bp *BufferPool) admitLocked(p *storage.Page, pinCount int) error {
	if bp.capacity > 0 && len(bp.slotOf) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return err
		}
	}
	idx := bp.list.alloc()
	bp.list.entries[idx] = entry{page: p.Clone(), pinCount: pinCount}
	bp.list.pushFront(idx)
	bp.slotOf[p.PageID] = idx
	return nil
}

// ReleasePage decrements the pin count for pageID.
func (bp *BufferPool) ReleasePage(pageID int) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.slotOf[pageID]
	if !ok {
		return errs.PageError("bufferpool.release_page", pageID, errs.ErrNotInPool)
	}
	if bp.list.entries[idx].pinCount <= 0 {
		return errs.PageError("bufferpool.release_page", pageID, errs.ErrUnbalancedPin)
	}
	bp.list.entries[idx].pinCount--
	return nil
}

// MarkDirty flags pageID's cached entry dirty.
func (bp *BufferPool) MarkDirty(pageID int) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.slotOf[pageID]
	if !ok {
		return errs.PageError("bufferpool.mark_dirty", pageID, errs.ErrNotInPool)
	}
	bp.list.entries[idx].dirty = true
	return nil
}

// MutatePage runs fn against the pool's own cached copy of pageID and
// marks it dirty, the single call BufferPool clients use to both
// observe and change a pinned page in place. Callers are expected to
// have a matching LoadPage/ReleasePage pair bracketing the mutation.
func (bp *BufferPool) MutatePage(pageID int, fn func(*storage.Page)) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.slotOf[pageID]
	if !ok {
		return errs.PageError("bufferpool.mutate_page", pageID, errs.ErrNotInPool)
	}
	fn(bp.list.entries[idx].page)
	bp.list.entries[idx].dirty = true
	return nil
}

// evictLocked walks the LRU list from the tail toward the head and
// evicts the first entry with pin count zero, writing it back through
// the doublewrite protocol first if dirty. Must be called with mu held.
func (bp *BufferPool) evictLocked() error {
	for idx := bp.list.tail; idx != nilSlot; idx = bp.list.entries[idx].prev {
		e := &bp.list.entries[idx]
		if e.pinCount != 0 {
			continue
		}
		pageID := e.page.PageID
		if e.dirty {
			bp.writeBackLocked(e.page)
		}
		delete(bp.slotOf, pageID)
		bp.list.unlink(idx)
		bp.list.release(idx)
		bp.evictions++
		bpLog.WithField("page_id", pageID).Debug("evicted")
		return nil
	}
	return errs.OpError("bufferpool.evict", errs.ErrAllPinned)
}

// writeBackLocked stages p through the doublewrite buffer, flushes the
// sequential area, writes p to its final Disk location, then clears
// staging. Ordering is mandatory: staging -> sequential flush -> final
// write -> staging clear.
func (bp *BufferPool) writeBackLocked(p *storage.Page) {
	bp.dwb.AddPage(p)
	bp.dwb.Flush()
	bp.disk.WritePage(p)
	bp.dwb.Clear()
}

// FlushDirty performs an atomic checkpoint: every dirty page is staged,
// sequentially flushed, written to its final Disk location, and its
// dirty flag cleared, then staging is emptied. Pin counts are never
// touched.
func (bp *BufferPool) FlushDirty() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	var dirty []*storage.Page
	for idx := range bp.list.entries {
		e := &bp.list.entries[idx]
		if e.free || !e.dirty {
			continue
		}
		dirty = append(dirty, e.page)
	}
	if len(dirty) == 0 {
		return
	}
	for _, p := range dirty {
		bp.dwb.AddPage(p)
	}
	bp.dwb.Flush()
	for _, p := range dirty {
		bp.disk.WritePage(p)
	}
	bp.dwb.Clear()

	for idx := range bp.list.entries {
		e := &bp.list.entries[idx]
		if !e.free {
			e.dirty = false
		}
	}
	bpLog.WithField("pages", len(dirty)).Info("flush_dirty checkpoint")
}

// Len returns the number of resident entries, always <= capacity.
func (bp *BufferPool) Len() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.slotOf)
}

// PinCount returns the current pin count for a resident page, or -1 if
// the page is not resident. Test and introspection use only.
func (bp *BufferPool) PinCount(pageID int) int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	idx, ok := bp.slotOf[pageID]
	if !ok {
		return -1
	}
	return bp.list.entries[idx].pinCount
}

// Stats returns a snapshot of the pool's hit/miss/eviction counters.
func (bp *BufferPool) Stats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return Stats{Hits: bp.hits, Misses: bp.misses, Evictions: bp.evictions}
}
