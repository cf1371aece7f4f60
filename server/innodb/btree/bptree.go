package btree

import "github.com/zhukovaskychina/innodb-core/server/innodb/errs"

// Pair is a (row-id, page-id) entry as produced by Traverse/TraverseLeaves.
type Pair struct {
	Key   int
	Value int
}

// BTree is the row-id -> page-id index, parameterised by minimum
// degree t (a node is full at 2t-1 keys).
type BTree struct {
	degree int
	root   *node
}

// New creates an empty tree with the given minimum degree. t must be
// >= 2, the spec's minimum, to guarantee every split leaves at least
// one key in each half.
func New(degree int) (*BTree, error) {
	if degree < 2 {
		return nil, errs.OpError("btree.new", errs.ErrInvalidState)
	}
	return &BTree{degree: degree, root: &node{leaf: true}}, nil
}

// Get returns the page-id for row-id key, if present.
func (t *BTree) Get(key int) (int, bool) {
	n := t.root
	for !n.leaf {
		n = n.children[childIndex(n, key)]
	}
	i := lowerBound(n.keys, key)
	if i < len(n.keys) && n.keys[i] == key {
		return n.values[i], true
	}
	return 0, false
}

// Put inserts or overwrites the page-id mapped to row-id key. If the
// key exists anywhere in the tree its value is overwritten in place;
// otherwise a fresh (key, value) entry is inserted via the CLRS
// top-down split algorithm: any full node encountered on the descent
// path is pre-split before descending further, so no ancestor ever
// needs an upward cascade after the fact.
func (t *BTree) Put(key, value int) {
	if t.setIfExists(t.root, key, value) {
		return
	}
	if t.root.isFull(t.degree) {
		newRoot := &node{leaf: false, children: []*node{t.root}}
		t.splitChild(newRoot, 0)
		t.root = newRoot
	}
	t.insertNonFull(t.root, key, value)
}

func (t *BTree) setIfExists(n *node, key, value int) bool {
	if n.leaf {
		i := lowerBound(n.keys, key)
		if i < len(n.keys) && n.keys[i] == key {
			n.values[i] = value
			return true
		}
		return false
	}
	return t.setIfExists(n.children[childIndex(n, key)], key, value)
}

func (t *BTree) insertNonFull(n *node, key, value int) {
	if n.leaf {
		n.insertKeyValue(lowerBound(n.keys, key), key, value)
		return
	}
	i := childIndex(n, key)
	if n.children[i].isFull(t.degree) {
		t.splitChild(n, i)
		i = childIndex(n, key)
	}
	t.insertNonFull(n.children[i], key, value)
}

// splitChild splits the full child at parent.children[i] in two,
// installing the new sibling and a routing key in parent.
func (t *BTree) splitChild(parent *node, i int) {
	child := parent.children[i]
	mid := t.degree - 1

	if child.leaf {
		right := &node{
			leaf:   true,
			keys:   append([]int(nil), child.keys[mid+1:]...),
			values: append([]int(nil), child.values[mid+1:]...),
			next:   child.next,
		}
		child.next = right
		separator := child.keys[mid]

		child.keys = child.keys[:mid+1]
		child.values = child.values[:mid+1]

		parent.keys = insertInt(parent.keys, i, separator)
		parent.children = insertChild(parent.children, i+1, right)
		return
	}

	separator := child.keys[mid]
	right := &node{
		leaf:     false,
		keys:     append([]int(nil), child.keys[mid+1:]...),
		children: append([]*node(nil), child.children[mid+1:]...),
	}
	child.keys = child.keys[:mid]
	child.children = child.children[:mid+1]

	parent.keys = insertInt(parent.keys, i, separator)
	parent.children = insertChild(parent.children, i+1, right)
}

func insertInt(s []int, idx, v int) []int {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:len(s)-1])
	s[idx] = v
	return s
}

func insertChild(s []*node, idx int, v *node) []*node {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:len(s)-1])
	s[idx] = v
	return s
}

// Remove deletes the (key, value) entry from its leaf if present.
// Rebalancing on underflow is not implemented (spec.md §9's third
// resolved open question: deletion leaves holes but preserves order).
func (t *BTree) Remove(key int) {
	n := t.root
	for !n.leaf {
		n = n.children[childIndex(n, key)]
	}
	i := lowerBound(n.keys, key)
	if i < len(n.keys) && n.keys[i] == key {
		n.removeAt(i)
	}
}

// Traverse returns every (key, value) pair in ascending order via a
// recursive in-order walk.
func (t *BTree) Traverse() []Pair {
	var out []Pair
	traverse(t.root, &out)
	return out
}

func traverse(n *node, out *[]Pair) {
	if n.leaf {
		for i, k := range n.keys {
			*out = append(*out, Pair{Key: k, Value: n.values[i]})
		}
		return
	}
	for _, c := range n.children {
		traverse(c, out)
	}
}

// TraverseLeaves returns every (key, value) pair in ascending order by
// following the leaf link chain from the leftmost leaf, rather than
// recursing the tree shape.
func (t *BTree) TraverseLeaves() []Pair {
	n := t.root
	for !n.leaf {
		n = n.children[0]
	}
	var out []Pair
	for leaf := n; leaf != nil; leaf = leaf.next {
		for i, k := range leaf.keys {
			out = append(out, Pair{Key: k, Value: leaf.values[i]})
		}
	}
	return out
}

// Degree returns the tree's minimum degree t.
func (t *BTree) Degree() int {
	return t.degree
}
