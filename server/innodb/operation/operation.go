// Package operation is the row-level CRUD surface sitting directly on
// top of the btree index and buffer pool: get_row, insert_row (with
// its page allocation policy), update_row, delete_row and checkpoint.
// Grounded on the teacher's store/dml-style row accessors, rebuilt
// around the storage core's Page/Disk/BufferPool/BTree types.
package operation

import (
	"sync"

	"github.com/zhukovaskychina/innodb-core/server/innodb/btree"
	"github.com/zhukovaskychina/innodb-core/server/innodb/buffer_pool"
	"github.com/zhukovaskychina/innodb-core/server/innodb/errs"
	"github.com/zhukovaskychina/innodb-core/server/innodb/logging"
	"github.com/zhukovaskychina/innodb-core/server/innodb/storage"
)

var opLog = logging.For("operation")

// DefaultRowsPerPage is the allocation policy's page capacity when an
// Engine does not override it.
const DefaultRowsPerPage = 10

// Operation is the row-level CRUD component: get_page_id, get_row,
// insert_row, update_row, delete_row and checkpoint, all built on a
// BufferPool, the Disk it fronts, and a row-id -> page-id BTree index.
// mu is the one guard per Operation instance spec.md §5 calls for
// around allocation and index mutation: the BTree index has no
// internal synchronization of its own, and two transactions inserting
// different row-ids are free to run concurrently (the LockTable only
// conflicts on a shared row-id), so every exported method takes mu for
// its whole body.
type Operation struct {
	mu          sync.Mutex
	pool        *buffer_pool.BufferPool
	disk        *storage.Disk
	index       *btree.BTree
	rowsPerPage int
}

// New creates an Operation wired to pool, disk and index, with the
// given allocation page capacity.
func New(pool *buffer_pool.BufferPool, disk *storage.Disk, index *btree.BTree, rowsPerPage int) *Operation {
	if rowsPerPage <= 0 {
		rowsPerPage = DefaultRowsPerPage
	}
	return &Operation{pool: pool, disk: disk, index: index, rowsPerPage: rowsPerPage}
}

// GetPageID looks up rowID's page-id in the index.
func (op *Operation) GetPageID(rowID int) (int, bool) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.index.Get(rowID)
}

// GetRow locates rowID through the index, loads its page and returns
// the stored row.
func (op *Operation) GetRow(rowID int) (storage.Row, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.getRowLocked(rowID)
}

func (op *Operation) getRowLocked(rowID int) (storage.Row, error) {
	pageID, ok := op.index.Get(rowID)
	if !ok {
		return nil, errs.RowError("operation.get_row", rowID, errs.ErrRowMissing)
	}
	p, err := op.pool.LoadPage(pageID)
	if err != nil {
		return nil, err
	}
	defer op.pool.ReleasePage(pageID)

	row, ok := p.Rows[rowID]
	if !ok {
		return nil, errs.RowPageError("operation.get_row", rowID, pageID, errs.ErrRowMissing)
	}
	return row, nil
}

// InsertRow applies the allocation policy, writes row into the chosen
// page, and registers row-id -> page-id in the index. If row-id
// already exists it delegates to update_row instead, the monolithic
// contract the non-transactional engine surface calls directly.
// nextLSN stamps the target page's page_lsn.
func (op *Operation) InsertRow(row storage.Row, nextLSN int) (pageID int, err error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	rowID := row.RowID()
	if existingPageID, ok := op.index.Get(rowID); ok {
		if err := op.updateRowLocked(rowID, row, existingPageID); err != nil {
			return 0, err
		}
		return existingPageID, nil
	}

	pageID, err = op.targetPageForInsert()
	if err != nil {
		return 0, err
	}
	if err := op.writeRowLocked(row, pageID, nextLSN); err != nil {
		return 0, err
	}
	return pageID, nil
}

// targetPageForInsert applies the allocation policy: the target is the
// largest known page-id if it has room for another row, else a freshly
// minted page-id = largest known + 1. "Known" spans both the buffer
// pool's resident pages and Disk, since a page can be dirty in the
// pool without yet being written back.
// The returned page-id is already pinned by exactly one pin on return,
// for writeRowLocked to release once the row is written.
func (op *Operation) targetPageForInsert() (int, error) {
	known := op.disk.MaxPageID()
	if resident := op.pool.MaxResidentPageID(); resident > known {
		known = resident
	}
	if known == 0 {
		return op.createFreshPage(1)
	}

	p, err := op.pool.LoadPage(known)
	if err != nil {
		return 0, err
	}
	if len(p.Rows) < op.rowsPerPage {
		return known, nil
	}
	if err := op.pool.ReleasePage(known); err != nil {
		return 0, err
	}
	return op.createFreshPage(known + 1)
}

// createFreshPage registers a new zero-row page with Disk and pins it
// into the BufferPool at pin count one, protecting it from eviction
// before the first row is ever written into it.
func (op *Operation) createFreshPage(pageID int) (int, error) {
	p := storage.NewPage(pageID)
	op.disk.WritePage(p)
	if err := op.pool.AddPinnedPage(p); err != nil {
		return 0, err
	}
	opLog.WithField("page_id", pageID).Debug("allocated fresh page")
	return pageID, nil
}

// writeRowLocked assumes pageID is already pinned exactly once for this
// call (by targetPageForInsert's fresh-page pin, or by the LoadPage
// call InsertRow/UpdateRow issued), writes row, stamps page_lsn when
// lsn is positive, marks the page dirty, and releases that single pin.
func (op *Operation) writeRowLocked(row storage.Row, pageID int, lsn int) error {
	rowID := row.RowID()
	if err := op.pool.MutatePage(pageID, func(p *storage.Page) {
		p.Rows[rowID] = row
		if lsn > 0 {
			p.PageLSN = lsn
		}
	}); err != nil {
		op.pool.ReleasePage(pageID)
		return err
	}
	if err := op.pool.ReleasePage(pageID); err != nil {
		return err
	}
	op.index.Put(rowID, pageID)
	return nil
}

// UpdateRow overwrites rowID's stored value in place on pageID.
func (op *Operation) UpdateRow(rowID int, newRow storage.Row, pageID int) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.updateRowLocked(rowID, newRow, pageID)
}

func (op *Operation) updateRowLocked(rowID int, newRow storage.Row, pageID int) error {
	if _, err := op.pool.LoadPage(pageID); err != nil {
		return err
	}
	return op.writeRowLocked(newRow, pageID, 0)
}

// DeleteRow removes rowID from pageID's row-map and from the index.
// The row's key stays removed from the index even if it never reappears
// on that page; Remove on the index is a no-op if already absent.
func (op *Operation) DeleteRow(rowID int, pageID int) error {
	op.mu.Lock()
	defer op.mu.Unlock()

	if _, err := op.pool.LoadPage(pageID); err != nil {
		return err
	}
	if err := op.pool.MutatePage(pageID, func(p *storage.Page) {
		delete(p.Rows, rowID)
	}); err != nil {
		op.pool.ReleasePage(pageID)
		return err
	}
	if err := op.pool.ReleasePage(pageID); err != nil {
		return err
	}
	op.index.Remove(rowID)
	return nil
}

// Checkpoint flushes every dirty buffered page through the doublewrite
// protocol to Disk.
func (op *Operation) Checkpoint() {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.pool.FlushDirty()
}

// Index exposes the underlying row-id -> page-id index for snapshotting.
func (op *Operation) Index() *btree.BTree { return op.index }

// Disk exposes the underlying Disk for snapshotting.
func (op *Operation) Disk() *storage.Disk { return op.disk }

// Pool exposes the underlying BufferPool, for the engine's checkpoint
// and shutdown sequencing.
func (op *Operation) Pool() *buffer_pool.BufferPool { return op.pool }
