// Package idlelist implements the intrusive circular doubly-linked list
// used to track connections by last-activity time: the node just after
// the sentinel is always the least-recently-active connection.
package idlelist

// Node is one link in the list. Embed it in a connection struct and use
// its Owner field to get back to the connection from a list traversal.
type Node struct {
	prev, next *Node
	Owner      any
}

// List is a sentinel-rooted circular doubly-linked list.
type List struct {
	sentinel Node
}

// New returns an empty list.
func New() *List {
	l := &List{}
	l.sentinel.prev = &l.sentinel
	l.sentinel.next = &l.sentinel
	return l
}

// Empty reports whether the list has no nodes.
func (l *List) Empty() bool { return l.sentinel.next == &l.sentinel }

// insertBefore detaches n (if linked) and inserts it immediately before
// mark. Used both for initial insertion (mark = sentinel, i.e. the tail)
// and to bump a node to the tail on activity.
func (l *List) insertBefore(n, mark *Node) {
	l.detach(n)
	n.prev = mark.prev
	n.next = mark
	mark.prev.next = n
	mark.prev = n
}

// PushTail inserts n (not currently in any list) at the tail — the most
// recently active position.
func (l *List) PushTail(n *Node) {
	l.insertBefore(n, &l.sentinel)
}

// MoveToTail detaches n and reinserts it at the tail, marking it as just
// active.
func (l *List) MoveToTail(n *Node) {
	l.insertBefore(n, &l.sentinel)
}

// detach removes n from whatever list it's currently linked into. Safe to
// call on an unlinked node.
func (l *List) detach(n *Node) {
	if n.prev == nil && n.next == nil {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

// Detach removes n from the list.
func (l *List) Detach(n *Node) { l.detach(n) }

// Front returns the least-recently-active node, or nil if the list is
// empty.
func (l *List) Front() *Node {
	if l.Empty() {
		return nil
	}
	return l.sentinel.next
}
