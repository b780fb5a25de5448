// Command miniredis is the engine's naive reference server: the same
// binary protocol and command dispatcher as cmd/kvengine, but served with
// a goroutine-per-connection net.Listener loop instead of the single-
// threaded epoll event loop internal/server implements. It exists for the
// same reason the teacher's original miniredis.go paired a from-scratch
// EpollServer with its own toy store: as a minimal, easy-to-read second
// example of wiring a listener to a dispatcher, now pointed at the real
// internal/store and internal/wire instead of a RESP toy built for the
// occasion.
package main

import (
	"encoding/binary"
	"flag"
	"io"
	"log"
	"net"
	"os"

	"github.com/manh119/kvengine/internal/offload"
	"github.com/manh119/kvengine/internal/store"
	"github.com/manh119/kvengine/internal/wire"
)

func main() {
	addr := flag.String("addr", ":6380", "address to listen on")
	flag.Parse()

	logger := log.New(os.Stderr, "miniredis: ", log.LstdFlags)

	exec := offload.New(logger)
	defer exec.Shutdown()
	st := store.New(exec, logger)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	logger.Printf("listening on %s", *addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Printf("accept: %v", err)
			continue
		}
		go serveConn(conn, st, logger)
	}
}

// serveConn blocks reading one length-prefixed frame at a time and
// dispatches each to the store, the way the teacher's handleRead
// processed one parsed RESP command per read — generalized here to a
// blocking read loop since there is no epoll readiness state machine to
// thread through.
func serveConn(conn net.Conn, st *store.Store, logger *log.Logger) {
	defer conn.Close()

	var header [4]byte
	for {
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			if err != io.EOF {
				logger.Printf("%s: read header: %v", conn.RemoteAddr(), err)
			}
			return
		}
		n := binary.LittleEndian.Uint32(header[:])
		if n > wire.MaxMsg {
			logger.Printf("%s: message too long (%d bytes)", conn.RemoteAddr(), n)
			return
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(conn, body); err != nil {
			logger.Printf("%s: read body: %v", conn.RemoteAddr(), err)
			return
		}

		var out wire.Buffer
		mark := out.ResponseBegin()
		st.Dispatch(body, &out)
		out.ResponseEnd(mark)

		if _, err := conn.Write(out.Bytes()); err != nil {
			logger.Printf("%s: write reply: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
