// Package buffer_pool implements the capacity-bounded, pin-aware LRU
// cache of Pages described by spec.md's BufferPool component. The LRU
// order is kept in an arena of slots linked by index (prev/next)
// instead of a heap-allocated doubly linked list of nodes (the teacher's
// buffer_lru.go uses container/list) per the re-architecture guidance:
// an arena avoids cyclic pointer ownership and keeps link manipulation
// bounds-checked.
package buffer_pool

import "github.com/zhukovaskychina/innodb-core/server/innodb/storage"

const nilSlot = -1

// entry is one arena slot: a cached Page plus its LRU list links and
// pin/dirty bookkeeping. prev/next are slot indices, or nilSlot at the
// ends of the list. free marks a slot available for reuse.
type entry struct {
	page     *storage.Page
	pinCount int
	dirty    bool
	prev     int
	next     int
	free     bool
}

// lruList is the arena: entries indexed by slot, plus a head/tail pair
// and a free list of reclaimed slots. head is the most-recently-used
// end; tail is the eviction candidate end.
type lruList struct {
	entries  []entry
	freeList []int
	head     int
	tail     int
}

func newLRUList() *lruList {
	return &lruList{head: nilSlot, tail: nilSlot}
}

// alloc reserves a slot, reusing one from the free list when possible.
func (l *lruList) alloc() int {
	if n := len(l.freeList); n > 0 {
		idx := l.freeList[n-1]
		l.freeList = l.freeList[:n-1]
		return idx
	}
	l.entries = append(l.entries, entry{})
	return len(l.entries) - 1
}

// unlink removes slot idx from the list's link chain without freeing it.
func (l *lruList) unlink(idx int) {
	e := &l.entries[idx]
	if e.prev != nilSlot {
		l.entries[e.prev].next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nilSlot {
		l.entries[e.next].prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nilSlot, nilSlot
}

// pushFront links slot idx in at the head (most-recently-used end).
func (l *lruList) pushFront(idx int) {
	e := &l.entries[idx]
	e.prev = nilSlot
	e.next = l.head
	if l.head != nilSlot {
		l.entries[l.head].prev = idx
	}
	l.head = idx
	if l.tail == nilSlot {
		l.tail = idx
	}
}

// moveToFront relinks an already-present slot to the head.
func (l *lruList) moveToFront(idx int) {
	if l.head == idx {
		return
	}
	l.unlink(idx)
	l.pushFront(idx)
}

// release marks idx free for reuse by a future alloc.
func (l *lruList) release(idx int) {
	l.entries[idx] = entry{free: true}
	l.freeList = append(l.freeList, idx)
}
