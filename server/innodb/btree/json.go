package btree

import "encoding/json"

// nodeJSON is the recursive shape described by spec.md's index.json
// schema: {keys, values, leaf, children?}.
type nodeJSON struct {
	Keys     []int       `json:"keys"`
	Values   []int       `json:"values,omitempty"`
	Leaf     bool        `json:"leaf"`
	Children []*nodeJSON `json:"children,omitempty"`
}

func toNodeJSON(n *node) *nodeJSON {
	nj := &nodeJSON{Keys: append([]int(nil), n.keys...), Leaf: n.leaf}
	if n.leaf {
		nj.Values = append([]int(nil), n.values...)
		return nj
	}
	nj.Children = make([]*nodeJSON, len(n.children))
	for i, c := range n.children {
		nj.Children[i] = toNodeJSON(c)
	}
	return nj
}

func fromNodeJSON(nj *nodeJSON) *node {
	n := &node{leaf: nj.Leaf, keys: append([]int(nil), nj.Keys...)}
	if nj.Leaf {
		n.values = append([]int(nil), nj.Values...)
		return n
	}
	n.children = make([]*node, len(nj.Children))
	for i, c := range nj.Children {
		n.children[i] = fromNodeJSON(c)
	}
	return n
}

// relinkLeaves walks the tree left to right and threads every leaf's
// forward link, rebuilding the chain that the recursive JSON shape
// does not carry.
func relinkLeaves(root *node) {
	var prev *node
	var walk func(*node)
	walk = func(n *node) {
		if n.leaf {
			if prev != nil {
				prev.next = n
			}
			prev = n
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	if prev != nil {
		prev.next = nil
	}
}

// DumpToJSON renders the index.json schema.
func (t *BTree) DumpToJSON() ([]byte, error) {
	return json.MarshalIndent(toNodeJSON(t.root), "", "  ")
}

// LoadFromJSON replaces the tree's contents with the node encoded in
// data, relinking the leaf chain so TraverseLeaves works identically
// to before the dump.
func (t *BTree) LoadFromJSON(data []byte) error {
	var nj nodeJSON
	if err := json.Unmarshal(data, &nj); err != nil {
		return err
	}
	root := fromNodeJSON(&nj)
	relinkLeaves(root)
	t.root = root
	return nil
}
