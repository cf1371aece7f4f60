// Package btree implements the row-id -> page-id B+ tree index
// described by spec.md's BPlusTree component: CLRS-style top-down
// split-on-insert, leaves linked left to right, internal nodes
// carrying routing keys only (spec.md §9's second resolved open
// question: no values in internal nodes, unlike the teacher's
// innodb_store/store/btree.go, whose split_child also wrote a
// promoted value into internal parents).
package btree

import "sort"

// node is either an internal routing node (children, no values) or a
// leaf (keys, values and a forward link to the next leaf). A node is
// full when it holds 2t-1 keys.
type node struct {
	leaf     bool
	keys     []int
	values   []int   // leaf only, aligned with keys
	children []*node // internal only, len(children) == len(keys)+1
	next     *node   // leaf only, forward link
}

func (n *node) isFull(t int) bool {
	return len(n.keys) == 2*t-1
}

// lowerBound returns the first index i with keys[i] >= k, spec.md's
// find_key_index.
func lowerBound(keys []int, k int) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= k })
}

// childIndex picks which child of an internal node to descend into
// for key k. Every leaf split in this tree copies its median key up
// while retaining the (key, value) pair in the left half, so the child
// to the left of a routing key also owns any row whose id equals that
// key; descent therefore always lands on lowerBound's index, with no
// special case for an exact match. See DESIGN.md for why this departs
// from spec.md's literal find_key_index tie-break note.
func childIndex(n *node, k int) int {
	return lowerBound(n.keys, k)
}

// insertKeyValue inserts (key, value) into a leaf's sorted arrays at
// position idx.
func (n *node) insertKeyValue(idx, key, value int) {
	n.keys = append(n.keys, 0)
	copy(n.keys[idx+1:], n.keys[idx:len(n.keys)-1])
	n.keys[idx] = key

	n.values = append(n.values, 0)
	copy(n.values[idx+1:], n.values[idx:len(n.values)-1])
	n.values[idx] = value
}

// removeAt deletes the entry at idx from a leaf's sorted arrays.
func (n *node) removeAt(idx int) {
	n.keys = append(n.keys[:idx], n.keys[idx+1:]...)
	n.values = append(n.values[:idx], n.values[idx+1:]...)
}
