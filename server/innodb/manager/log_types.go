package manager

import "github.com/zhukovaskychina/innodb-core/server/innodb/storage"

// OpKind tags the row mutation an undo/redo record describes.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "INSERT"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// UndoRecord is one per-transaction undo entry: the row-id, the page
// it lived on, its pre-image (absent for INSERT) and the operation
// that produced the record.
type UndoRecord struct {
	RowID    int
	PageID   int
	OldValue storage.Row
	HasOld   bool
	Op       OpKind
}

// RedoRecord is one process-wide, strictly-monotonic-lsn redo entry.
type RedoRecord struct {
	LSN     int
	TxID    int
	Action  OpKind
	Payload storage.Row
	PageID  int
}
