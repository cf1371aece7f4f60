package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/innodb-core/server/innodb/storage"
)

func TestNextLSNIsStrictlyMonotonic(t *testing.T) {
	r := NewRedoLog()
	a := r.NextLSN()
	b := r.NextLSN()
	c := r.NextLSN()
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 3, c)
}

func TestFlushIsNoopOnEmptyLog(t *testing.T) {
	r := NewRedoLog()
	r.Flush()
	assert.Equal(t, 0, r.FlushedLSN())
}

func TestFlushSetsWatermarkToLastRecord(t *testing.T) {
	r := NewRedoLog()
	lsn1 := r.NextLSN()
	r.Append(RedoRecord{LSN: lsn1, TxID: 1, Action: OpInsert, Payload: storage.Row{1}, PageID: 1})
	lsn2 := r.NextLSN()
	r.Append(RedoRecord{LSN: lsn2, TxID: 1, Action: OpInsert, Payload: storage.Row{2}, PageID: 1})

	r.Flush()
	assert.Equal(t, lsn2, r.FlushedLSN())
}

func TestClearEmptiesRecordsButKeepsWatermark(t *testing.T) {
	r := NewRedoLog()
	lsn := r.NextLSN()
	r.Append(RedoRecord{LSN: lsn, TxID: 1, Action: OpInsert, Payload: storage.Row{1}, PageID: 1})
	r.Flush()
	require.Equal(t, lsn, r.FlushedLSN())

	r.Clear()
	assert.Empty(t, r.Records())
	assert.Equal(t, lsn, r.FlushedLSN())
}
