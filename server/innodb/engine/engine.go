// Package engine is the public entry point: open(config) wires the
// storage core (Disk, DoublewriteBuffer, BufferPool, BTree index) to
// the transactional machinery (LockTable, RedoLog, TransactionTable)
// through the row-level Operation component, and exposes both a
// non-transactional surface (get_row/insert_row/shutdown) and a
// transactional one (begin/tx_insert_row/tx_update_row/tx_delete_row/
// commit/rollback).
package engine

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/zhukovaskychina/innodb-core/server/innodb/btree"
	"github.com/zhukovaskychina/innodb-core/server/innodb/buffer_pool"
	"github.com/zhukovaskychina/innodb-core/server/innodb/errs"
	"github.com/zhukovaskychina/innodb-core/server/innodb/logging"
	"github.com/zhukovaskychina/innodb-core/server/innodb/manager"
	"github.com/zhukovaskychina/innodb-core/server/innodb/operation"
	"github.com/zhukovaskychina/innodb-core/server/innodb/storage"
)

var engineLog = logging.For("engine")

// Engine bundles one instance's worth of storage core and
// transactional machinery. All non-transactional mutations serialize
// through mu, the "local guard" spec.md's insert_row calls for;
// transactional mutations instead serialize per-row through LockTable.
type Engine struct {
	mu sync.Mutex

	cfg Config

	disk  *storage.Disk
	dwb   *storage.DoublewriteBuffer
	pool  *buffer_pool.BufferPool
	index *btree.BTree
	ops   *operation.Operation

	locks   *manager.LockTable
	redo    *manager.RedoLog
	txTable *manager.TransactionTable
}

// Open validates cfg and assembles a fresh Engine. It never touches
// the filesystem; a host that wants to reload a prior session's state
// calls LoadSnapshots itself after Open returns.
func Open(cfg Config) (*Engine, error) {
	if cfg.BufferPoolCapacity < 1 {
		return nil, errs.OpError("engine.open", errs.ErrInvalidState)
	}
	if cfg.RowsPerPage < 1 {
		cfg.RowsPerPage = operation.DefaultRowsPerPage
	}
	if cfg.TreeMinDegree < 2 {
		return nil, errs.OpError("engine.open", errs.ErrInvalidState)
	}

	disk := storage.NewDisk()
	dwb := storage.NewDoublewriteBuffer()
	pool := buffer_pool.New(cfg.BufferPoolCapacity, disk, dwb)
	idx, err := btree.New(cfg.TreeMinDegree)
	if err != nil {
		return nil, err
	}
	ops := operation.New(pool, disk, idx, cfg.RowsPerPage)

	e := &Engine{
		cfg:     cfg,
		disk:    disk,
		dwb:     dwb,
		pool:    pool,
		index:   idx,
		ops:     ops,
		locks:   manager.NewLockTable(),
		redo:    manager.NewRedoLog(),
		txTable: manager.NewTransactionTable(),
	}
	engineLog.WithField("buffer_pool_capacity", cfg.BufferPoolCapacity).Info("engine opened")
	return e, nil
}

// GetRow returns row_id's current value.
func (e *Engine) GetRow(rowID int) (storage.Row, error) {
	return e.ops.GetRow(rowID)
}

// InsertRow is the non-transactional insert: under Engine's local
// guard, it stamps a fresh lsn and delegates to Operation, which
// itself falls back to an overwrite if row-id already exists.
func (e *Engine) InsertRow(row storage.Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	lsn := e.redo.NextLSN()
	_, err := e.ops.InsertRow(row, lsn)
	return err
}

// Shutdown flushes every dirty page through the doublewrite protocol
// and snapshots Disk and the index to the configured paths, skipping
// whichever path is empty.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ops.Checkpoint()

	if e.cfg.DwbPath != "" {
		data, err := e.dwb.DumpToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(e.cfg.DwbPath, data, 0o644); err != nil {
			return errors.Wrapf(err, "engine: write doublewrite snapshot %s", e.cfg.DwbPath)
		}
	}
	if e.cfg.DiskSnapshotPath != "" {
		data, err := e.disk.DumpToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(e.cfg.DiskSnapshotPath, data, 0o644); err != nil {
			return errors.Wrapf(err, "engine: write disk snapshot %s", e.cfg.DiskSnapshotPath)
		}
	}
	if e.cfg.IndexSnapshotPath != "" {
		data, err := e.index.DumpToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(e.cfg.IndexSnapshotPath, data, 0o644); err != nil {
			return errors.Wrapf(err, "engine: write index snapshot %s", e.cfg.IndexSnapshotPath)
		}
	}
	engineLog.Info("engine shutdown")
	return nil
}

// LoadSnapshots reloads Disk and the index from the configured
// snapshot paths, for a host resuming a prior session. A path left
// empty in cfg is skipped; each reload replaces the matching state
// Open created.
func (e *Engine) LoadSnapshots() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.DiskSnapshotPath != "" {
		data, err := os.ReadFile(e.cfg.DiskSnapshotPath)
		if err != nil {
			return errors.Wrapf(err, "engine: read disk snapshot %s", e.cfg.DiskSnapshotPath)
		}
		if err := e.disk.LoadFromJSON(data); err != nil {
			return err
		}
	}
	if e.cfg.IndexSnapshotPath != "" {
		data, err := os.ReadFile(e.cfg.IndexSnapshotPath)
		if err != nil {
			return errors.Wrapf(err, "engine: read index snapshot %s", e.cfg.IndexSnapshotPath)
		}
		if err := e.index.LoadFromJSON(data); err != nil {
			return err
		}
	}
	return nil
}

// Begin starts a new transaction, allocating a fresh monotonic txid.
func (e *Engine) Begin() *manager.Transaction {
	return manager.BeginTransaction(e.txTable, e.locks, e.redo, e.ops)
}

// BufferPoolStats exposes the pool's hit/miss/eviction counters for
// hosts that want to surface them without reaching into internals.
func (e *Engine) BufferPoolStats() buffer_pool.Stats {
	return e.pool.Stats()
}

// FlushedLSN returns the redo log's current durability watermark.
func (e *Engine) FlushedLSN() int {
	return e.redo.FlushedLSN()
}
