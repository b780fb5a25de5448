// Package zset implements the sorted-set value: an order-statistic AVL
// tree (internal/ztree) plus a name→node index for O(1) member lookup.
package zset

import "github.com/manh119/kvengine/internal/ztree"

// ZSet is a sorted set of (name, score) pairs.
type ZSet struct {
	root   *ztree.Node
	byName map[string]*ztree.Node
}

// New returns an empty sorted set.
func New() *ZSet {
	return &ZSet{byName: make(map[string]*ztree.Node)}
}

// Len reports the number of members.
func (z *ZSet) Len() int { return len(z.byName) }

// Insert adds name with score, or updates name's score if it already
// exists. Reports true iff a new member was created.
func (z *ZSet) Insert(score float64, name string) bool {
	if existing, ok := z.byName[name]; ok {
		z.Delete(existing)
		var node *ztree.Node
		z.root, node, _ = ztree.Insert(z.root, score, name)
		z.byName[name] = node
		return false
	}
	var node *ztree.Node
	z.root, node, _ = ztree.Insert(z.root, score, name)
	z.byName[name] = node
	return true
}

// Lookup returns the node for name in O(1), or nil.
func (z *ZSet) Lookup(name string) *ztree.Node {
	return z.byName[name]
}

// LookupByScore does an O(log n) tree search for the exact (score, name)
// pair, independent of the name index.
func (z *ZSet) LookupByScore(score float64, name string) *ztree.Node {
	n := ztree.SeekGE(z.root, score, name)
	if n == nil || n.Score != score || n.Name != name {
		return nil
	}
	return n
}

// Delete removes node, which must belong to this set (it is a program
// error to pass a node that is not registered in the name index).
func (z *ZSet) Delete(node *ztree.Node) {
	if _, ok := z.byName[node.Name]; !ok {
		panic("zset: delete of unregistered node")
	}
	name := node.Name
	delete(z.byName, name)
	z.root = ztree.Delete(z.root, node)
	if node.Name != name {
		// node had two children: it stays in the tree carrying its
		// successor's payload, so that member's index entry moves to it
		z.byName[node.Name] = node
	}
}

// Remove deletes the member named name, reporting whether it existed.
func (z *ZSet) Remove(name string) bool {
	node, ok := z.byName[name]
	if !ok {
		return false
	}
	z.Delete(node)
	return true
}

// SeekGE returns the least node whose (score, name) >= (score, name).
func (z *ZSet) SeekGE(score float64, name string) *ztree.Node {
	return ztree.SeekGE(z.root, score, name)
}

// Offset returns the node k positions from n in in-order traversal.
func (z *ZSet) Offset(n *ztree.Node, k int) *ztree.Node {
	return ztree.Offset(n, k)
}
