package storage

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/zhukovaskychina/innodb-core/server/innodb/errs"
	"github.com/zhukovaskychina/innodb-core/server/innodb/logging"
)

var diskLog = logging.For("disk")

// Disk is the durable page-id -> Page substrate. Every operation copies
// by value: the map never hands out, nor accepts, a shared *Page.
type Disk struct {
	mu    sync.RWMutex
	pages map[int]*Page
}

// NewDisk creates an empty Disk.
func NewDisk() *Disk {
	return &Disk{pages: make(map[int]*Page)}
}

// GetPage returns a freshly cloned copy of the stored page. Mutating
// the result never alters what Disk holds.
func (d *Disk) GetPage(pageID int) (*Page, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.pages[pageID]
	if !ok {
		return nil, errs.PageError("disk.get_page", pageID, errs.ErrPageMissing)
	}
	clone := p.Clone()
	if clone.Checksum() != p.Checksum() {
		diskLog.WithField("page_id", pageID).Warn("checksum mismatch on read")
	}
	return clone, nil
}

// WritePage stores an independent clone of the given page, overwriting
// any prior value at the same page-id.
func (d *Disk) WritePage(p *Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[p.PageID] = p.Clone()
}

// DeletePage removes a page. Rare: transactional mutations never call
// this; it exists for the host's out-of-band maintenance.
func (d *Disk) DeletePage(pageID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pages[pageID]; !ok {
		return errs.PageError("disk.delete_page", pageID, errs.ErrPageMissing)
	}
	delete(d.pages, pageID)
	return nil
}

// CurrentPageID returns the largest stored page-id, or 1 when Disk is
// empty, matching the external get_page_id-style accessor's literal
// contract. The allocation policy itself uses MaxPageID, whose zero
// value distinguishes "truly empty" from "page 1 exists".
func (d *Disk) CurrentPageID() int {
	if max := d.MaxPageID(); max > 0 {
		return max
	}
	return 1
}

// MaxPageID returns the largest stored page-id, or 0 when Disk holds no
// pages at all.
func (d *Disk) MaxPageID() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	max := 0
	for id := range d.pages {
		if id > max {
			max = id
		}
	}
	return max
}

// HasPage reports whether a page-id is present, without copying it.
func (d *Disk) HasPage(pageID int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.pages[pageID]
	return ok
}

// jsonError wraps an encode/decode failure with pkg/errors, prefixing
// the name of the snapshot operation that failed. errors.Wrapf also
// records the call stack; errors.Is/Cause still reach the original.
func jsonError(op string, err error) error {
	return errors.Wrapf(err, "storage: %s", op)
}
