package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/innodb-core/server/innodb/errs"
	"github.com/zhukovaskychina/innodb-core/server/innodb/storage"
)

// fakeOps is a minimal in-memory RowMutator, standing in for
// *operation.Operation so the transaction state machine can be tested
// without the buffer pool, disk or index.
type fakeOps struct {
	rows    map[int]storage.Row
	pageOf  map[int]int
	nextPID int
}

func newFakeOps() *fakeOps {
	return &fakeOps{rows: map[int]storage.Row{}, pageOf: map[int]int{}, nextPID: 1}
}

func (f *fakeOps) GetPageID(rowID int) (int, bool) {
	pid, ok := f.pageOf[rowID]
	return pid, ok
}

func (f *fakeOps) GetRow(rowID int) (storage.Row, error) {
	row, ok := f.rows[rowID]
	if !ok {
		return nil, errs.RowError("fakeops.get_row", rowID, errs.ErrRowMissing)
	}
	return row, nil
}

func (f *fakeOps) InsertRow(row storage.Row, _ int) (int, error) {
	rowID := row.RowID()
	pid := f.nextPID
	f.nextPID++
	f.rows[rowID] = row
	f.pageOf[rowID] = pid
	return pid, nil
}

func (f *fakeOps) UpdateRow(rowID int, newRow storage.Row, pageID int) error {
	f.rows[rowID] = newRow
	f.pageOf[rowID] = pageID
	return nil
}

func (f *fakeOps) DeleteRow(rowID int, _ int) error {
	delete(f.rows, rowID)
	delete(f.pageOf, rowID)
	return nil
}

func newTestTx(ops RowMutator) (*Transaction, *LockTable, *RedoLog, *TransactionTable) {
	locks := NewLockTable()
	redo := NewRedoLog()
	table := NewTransactionTable()
	tx := BeginTransaction(table, locks, redo, ops)
	return tx, locks, redo, table
}

func TestTxInsertThenGetRow(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)

	require.NoError(t, tx.TxInsertRow(storage.Row{1, "Alice", 30}))
	row, err := ops.GetRow(1)
	require.NoError(t, err)
	assert.Equal(t, storage.Row{1, "Alice", 30}, row)
}

func TestTxInsertDuplicateFailsAlreadyExists(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)

	require.NoError(t, tx.TxInsertRow(storage.Row{1, "Alice", 30}))
	err := tx.TxInsertRow(storage.Row{1, "Alice2", 31})
	require.Error(t, err)
	assert.True(t, errs.IsAlreadyExists(err))
}

func TestTxUpdateMissingRowFails(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)

	err := tx.TxUpdateRow(42, storage.Row{42, "Ghost"})
	require.Error(t, err)
	assert.True(t, errs.IsRowMissing(err))
}

func TestTxDeleteThenGetRowFails(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)
	require.NoError(t, tx.TxInsertRow(storage.Row{2, "Bob", 25}))
	require.NoError(t, tx.TxDeleteRow(2))

	_, err := ops.GetRow(2)
	require.Error(t, err)
	assert.True(t, errs.IsRowMissing(err))
}

func TestTxConflictingLockFails(t *testing.T) {
	ops := newFakeOps()
	locks := NewLockTable()
	redo := NewRedoLog()
	table := NewTransactionTable()
	tx1 := BeginTransaction(table, locks, redo, ops)
	tx2 := BeginTransaction(table, locks, redo, ops)

	require.NoError(t, tx1.TxInsertRow(storage.Row{1, "Alice"}))
	// tx2 tries to update the same row while tx1 still holds the lock
	// (tx1 hasn't committed/rolled back).
	err := tx2.TxUpdateRow(1, storage.Row{1, "Alice2"})
	require.Error(t, err)
	assert.True(t, errs.IsLockConflict(err))
}

func TestCommitFlushesRedoAndReleasesLocks(t *testing.T) {
	ops := newFakeOps()
	tx, locks, redo, table := newTestTx(ops)

	require.NoError(t, tx.TxInsertRow(storage.Row{1, "Alice", 30}))
	require.NoError(t, tx.Commit())

	assert.Equal(t, StatusCommitted, tx.State())
	status, ok := table.StatusOf(tx.ID())
	require.True(t, ok)
	assert.Equal(t, StatusCommitted, status)
	assert.False(t, locks.IsLocked(1))
	assert.True(t, redo.FlushedLSN() >= 1)
}

func TestCommitTwiceFailsInvalidState(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)
	require.NoError(t, tx.TxInsertRow(storage.Row{1, "Alice"}))
	require.NoError(t, tx.Commit())

	err := tx.Commit()
	require.Error(t, err)
	assert.True(t, errs.IsInvalidState(err))
}

func TestRollbackUndoesInsertUpdateDelete(t *testing.T) {
	ops := newFakeOps()
	tx1, _, _, table := newTestTx(ops)
	require.NoError(t, tx1.TxInsertRow(storage.Row{1, "Alice", 30}))
	require.NoError(t, tx1.TxInsertRow(storage.Row{2, "Bob", 25}))
	require.NoError(t, tx1.Commit())

	locks := NewLockTable()
	redo := NewRedoLog()
	tx2 := BeginTransaction(table, locks, redo, ops)
	require.NoError(t, tx2.TxUpdateRow(1, storage.Row{1, "Alice", 31}))
	require.NoError(t, tx2.TxInsertRow(storage.Row{3, "Carol", 40}))
	require.NoError(t, tx2.TxDeleteRow(2))

	require.NoError(t, tx2.Rollback())

	row1, err := ops.GetRow(1)
	require.NoError(t, err)
	assert.Equal(t, storage.Row{1, "Alice", 30}, row1)

	row2, err := ops.GetRow(2)
	require.NoError(t, err)
	assert.Equal(t, storage.Row{2, "Bob", 25}, row2)

	_, err = ops.GetRow(3)
	require.Error(t, err)
	assert.True(t, errs.IsRowMissing(err))

	assert.Equal(t, StatusAborted, tx2.State())
	assert.False(t, locks.IsLocked(1))
	assert.False(t, locks.IsLocked(2))
}

func TestRollbackFromActiveWithNoWritesIsNoop(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, StatusAborted, tx.State())
}

func TestRollbackTwiceFailsInvalidState(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)
	require.NoError(t, tx.TxInsertRow(storage.Row{1, "Alice"}))
	require.NoError(t, tx.Rollback())

	err := tx.Rollback()
	require.Error(t, err)
	assert.True(t, errs.IsInvalidState(err))
	assert.Equal(t, StatusAborted, tx.State())
}

func TestRollbackAfterCommitFails(t *testing.T) {
	ops := newFakeOps()
	tx, _, _, _ := newTestTx(ops)
	require.NoError(t, tx.TxInsertRow(storage.Row{1, "Alice"}))
	require.NoError(t, tx.Commit())

	err := tx.Rollback()
	require.Error(t, err)
	assert.True(t, errs.IsInvalidState(err))
}
