package server

import (
	"github.com/manh119/kvengine/internal/idlelist"
	"github.com/manh119/kvengine/internal/wire"
)

// conn is one accepted client socket: its framing buffers, the event
// loop's read/write/close intentions for it, and its position in the
// idle list. Grounded on original_source/src/main.rs's Conn: of its
// want_read/want_write/want_close bools, wantWrite and wantClose are
// stored here and want_read is derived from them by wantRead(), since the
// event loop below is a port of that state machine.
type conn struct {
	fd int

	incoming wire.Buffer
	outgoing wire.Buffer

	wantWrite bool
	wantClose bool

	lastActiveMs int64
	idleNode     *idlelist.Node
}

func newConn(fd int, nowMs int64) *conn {
	c := &conn{fd: fd, lastActiveMs: nowMs}
	c.idleNode = &idlelist.Node{Owner: c}
	return c
}

// wantRead is true whenever the connection isn't mid-write or closing —
// the event loop always polls for readability except while draining a
// response, standing in for the source's want_read field.
func (c *conn) wantRead() bool {
	return !c.wantWrite && !c.wantClose
}
