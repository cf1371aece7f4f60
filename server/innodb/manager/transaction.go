package manager

import (
	"sync"

	"github.com/google/uuid"
	"github.com/zhukovaskychina/innodb-core/server/innodb/errs"
	"github.com/zhukovaskychina/innodb-core/server/innodb/logging"
	"github.com/zhukovaskychina/innodb-core/server/innodb/storage"
)

var txLog = logging.For("transaction")

// RowMutator is the capability a Transaction needs from the operation
// layer: enough to locate, allocate, read and mutate rows, and nothing
// about buffer pools, disks or indexes directly. Kept as an interface
// here (rather than importing the operation package) so manager has no
// dependency on it; operation.Operation satisfies this structurally.
type RowMutator interface {
	GetPageID(rowID int) (int, bool)
	GetRow(rowID int) (storage.Row, error)
	InsertRow(row storage.Row, nextLSN int) (pageID int, err error)
	UpdateRow(rowID int, newRow storage.Row, pageID int) error
	DeleteRow(rowID int, pageID int) error
}

// Transaction is a single ACID unit of work. Its state field is its
// own (no shared guard): a Transaction is not meant to be driven
// concurrently from more than one goroutine at a time, matching how a
// client session uses one connection at a time.
type Transaction struct {
	mu      sync.Mutex
	id      int
	traceID uuid.UUID
	state   TxStatus

	locks *LockTable
	undo  *UndoLog
	redo  *RedoLog
	table *TransactionTable
	ops   RowMutator

	redoLSNs []int
}

func newTransaction(id int, locks *LockTable, redo *RedoLog, table *TransactionTable, ops RowMutator) *Transaction {
	return &Transaction{
		id:      id,
		traceID: uuid.New(),
		state:   StatusActive,
		locks:   locks,
		undo:    NewUndoLog(),
		redo:    redo,
		table:   table,
		ops:     ops,
	}
}

// BeginTransaction allocates a fresh txid from table and returns a new
// ACTIVE Transaction wired to locks, redo and ops. The Engine is the
// intended caller; ops is usually an *operation.Operation.
func BeginTransaction(table *TransactionTable, locks *LockTable, redo *RedoLog, ops RowMutator) *Transaction {
	id := table.NextTxID()
	return newTransaction(id, locks, redo, table, ops)
}

// ID returns the transaction's allocated txid.
func (tx *Transaction) ID() int { return tx.id }

// TraceID returns the transaction's opaque trace identifier, surfaced
// in structured logs for correlation across a multi-statement session.
func (tx *Transaction) TraceID() uuid.UUID { return tx.traceID }

// State returns the transaction's current position in its state machine.
func (tx *Transaction) State() TxStatus {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

func (tx *Transaction) requireActiveLocked(op string) error {
	if tx.state != StatusActive {
		return errs.OpError(op, errs.ErrInvalidState)
	}
	return nil
}

// TxInsertRow inserts row under tx's lock, logging an undo/redo entry.
// page-id is not known ahead of allocation, so InsertRow both
// allocates and writes in one call; the undo/redo entries are appended
// immediately after it succeeds but before control returns to the
// caller, which is observationally equivalent to appending first since
// the row lock keeps every other transaction from seeing the
// intermediate state.
func (tx *Transaction) TxInsertRow(row storage.Row) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if err := tx.requireActiveLocked("transaction.tx_insert_row"); err != nil {
		return err
	}
	rowID := row.RowID()
	if _, ok := tx.ops.GetPageID(rowID); ok {
		return errs.RowError("transaction.tx_insert_row", rowID, errs.ErrAlreadyExists)
	}
	if err := tx.locks.Acquire(tx.id, rowID); err != nil {
		return err
	}

	lsn := tx.redo.NextLSN()
	pageID, err := tx.ops.InsertRow(row, lsn)
	if err != nil {
		return err
	}
	tx.undo.Append(UndoRecord{RowID: rowID, PageID: pageID, HasOld: false, Op: OpInsert})
	tx.redo.Append(RedoRecord{LSN: lsn, TxID: tx.id, Action: OpInsert, Payload: row, PageID: pageID})
	tx.redoLSNs = append(tx.redoLSNs, lsn)
	return nil
}

// TxUpdateRow updates rowID's value under tx's lock. The pre-image is
// captured before the write so rollback can restore it.
func (tx *Transaction) TxUpdateRow(rowID int, newRow storage.Row) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if err := tx.requireActiveLocked("transaction.tx_update_row"); err != nil {
		return err
	}
	pageID, ok := tx.ops.GetPageID(rowID)
	if !ok {
		return errs.RowError("transaction.tx_update_row", rowID, errs.ErrRowMissing)
	}
	if err := tx.locks.Acquire(tx.id, rowID); err != nil {
		return err
	}
	oldRow, err := tx.ops.GetRow(rowID)
	if err != nil {
		return err
	}

	lsn := tx.redo.NextLSN()
	tx.undo.Append(UndoRecord{RowID: rowID, PageID: pageID, OldValue: oldRow, HasOld: true, Op: OpUpdate})
	tx.redo.Append(RedoRecord{LSN: lsn, TxID: tx.id, Action: OpUpdate, Payload: newRow, PageID: pageID})
	tx.redoLSNs = append(tx.redoLSNs, lsn)
	return tx.ops.UpdateRow(rowID, newRow, pageID)
}

// TxDeleteRow removes rowID under tx's lock, capturing its pre-image
// for rollback.
func (tx *Transaction) TxDeleteRow(rowID int) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if err := tx.requireActiveLocked("transaction.tx_delete_row"); err != nil {
		return err
	}
	pageID, ok := tx.ops.GetPageID(rowID)
	if !ok {
		return errs.RowError("transaction.tx_delete_row", rowID, errs.ErrRowMissing)
	}
	if err := tx.locks.Acquire(tx.id, rowID); err != nil {
		return err
	}
	oldRow, err := tx.ops.GetRow(rowID)
	if err != nil {
		return err
	}

	lsn := tx.redo.NextLSN()
	tx.undo.Append(UndoRecord{RowID: rowID, PageID: pageID, OldValue: oldRow, HasOld: true, Op: OpDelete})
	tx.redo.Append(RedoRecord{LSN: lsn, TxID: tx.id, Action: OpDelete, Payload: oldRow, PageID: pageID})
	tx.redoLSNs = append(tx.redoLSNs, lsn)
	return tx.ops.DeleteRow(rowID, pageID)
}

// Commit moves tx ACTIVE -> PREPARING -> COMMITTED, flushing the redo
// log first whenever this transaction appended at least one record, so
// that flushed_lsn always reaches every lsn this transaction produced
// before its locks are released.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if err := tx.requireActiveLocked("transaction.commit"); err != nil {
		return err
	}
	tx.state = StatusPreparing

	if len(tx.redoLSNs) > 0 {
		tx.redo.Flush()
	}

	tx.state = StatusCommitted
	tx.table.SetStatus(tx.id, StatusCommitted)
	tx.locks.ReleaseAll(tx.id)
	tx.undo.Clear()

	txLog.WithField("txid", tx.id).WithField("trace_id", tx.traceID).Debug("commit")
	return nil
}

// Rollback reverse-replays tx's undo log, then moves tx to ABORTED.
// INSERT undoes as a delete, UPDATE undoes by restoring the pre-image,
// and DELETE undoes by reinserting the pre-image through insert_row
// (with a fresh lsn), which may place the row on a different page than
// it originally occupied.
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != StatusActive && tx.state != StatusPreparing {
		return errs.OpError("transaction.rollback", errs.ErrInvalidState)
	}

	records := tx.undo.Records()
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		var err error
		switch rec.Op {
		case OpInsert:
			err = tx.ops.DeleteRow(rec.RowID, rec.PageID)
		case OpUpdate:
			err = tx.ops.UpdateRow(rec.RowID, rec.OldValue, rec.PageID)
		case OpDelete:
			lsn := tx.redo.NextLSN()
			_, err = tx.ops.InsertRow(rec.OldValue, lsn)
		}
		if err != nil {
			txLog.WithField("txid", tx.id).WithField("row_id", rec.RowID).WithField("err", err).Warn("rollback step failed")
			return err
		}
	}

	tx.state = StatusAborted
	tx.table.SetStatus(tx.id, StatusAborted)
	tx.locks.ReleaseAll(tx.id)

	txLog.WithField("txid", tx.id).WithField("trace_id", tx.traceID).Debug("rollback")
	return nil
}
