// Package server implements the event loop: a single-threaded, epoll-driven
// accept/read/write loop over internal/io_multiplexing, dispatching framed
// requests to internal/store and tracking connection liveness with
// internal/idlelist and internal/expireheap (via the store's TTL sweep).
// It is a direct port of original_source/src/main.rs's run_server/
// handle_read/handle_write/try_parse_request/next_timer_ms/process_timers,
// generalizing the teacher's EpollServer (miniredis/miniredis.go) from a
// goroutine-free RESP toy server into the length-prefixed protocol and
// want_read/want_write/want_close state machine the source above uses.
package server

import (
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/manh119/kvengine/internal/config"
	"github.com/manh119/kvengine/internal/idlelist"
	"github.com/manh119/kvengine/internal/io_multiplexing"
	"github.com/manh119/kvengine/internal/store"
	"github.com/manh119/kvengine/internal/wire"
)

// Backlog is the listen socket's pending-connection queue length.
const Backlog = 128

// MaxWorksPerTick bounds how many TTL evictions one timer tick performs,
// so a burst of simultaneous expirations can't monopolize a poll wakeup.
const MaxWorksPerTick = 2000

// readChunk is the largest slice handed to one syscall.Read call.
const readChunk = 64 * 1024

// Server runs the event loop over one listening socket.
type Server struct {
	mux      *io_multiplexing.Multiplexer
	listenFd int

	conns         map[int]*conn
	idle          *idlelist.List
	idleTimeoutMs int64

	store *store.Store
	log   *log.Logger
}

// New binds and configures the listening socket (dual-stack, SO_REUSEADDR,
// backlog 128, non-blocking) and builds the epoll instance that will drive
// it, but does not start serving — call Run for that.
func New(cfg *config.Config, st *store.Store, logger *log.Logger) (*Server, error) {
	fd, err := bindListener(cfg.Host, cfg.Port)
	if err != nil {
		return nil, err
	}

	mux, err := io_multiplexing.CreateIOMultiplexer()
	if err != nil {
		syscall.Close(fd)
		return nil, err
	}
	if err := mux.Monitor(io_multiplexing.Event{Fd: fd, Op: io_multiplexing.OpRead}); err != nil {
		mux.Close()
		syscall.Close(fd)
		return nil, err
	}

	return &Server{
		mux:           mux,
		listenFd:      fd,
		conns:         make(map[int]*conn),
		idle:          idlelist.New(),
		idleTimeoutMs: int64(cfg.IdleTimeoutMs),
		store:         st,
		log:           logger,
	}, nil
}

// bindListener builds a non-blocking, dual-stack (IPV6_V6ONLY off)
// listening socket bound to host:port with SO_REUSEADDR set, mirroring
// run_server()'s Socket::new(Domain::IPV6, ...)/set_only_v6(false)/
// set_reuse_address(true) construction.
func bindListener(host string, port int) (int, error) {
	fd, err := syscall.Socket(syscall.AF_INET6, syscall.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("SO_REUSEADDR: %w", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, 0); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("IPV6_V6ONLY: %w", err)
	}

	ip := net.ParseIP(host)
	if host == "" {
		ip = net.IPv6unspecified
	}
	if ip == nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("invalid host %q", host)
	}
	var addr16 [16]byte
	copy(addr16[:], ip.To16())

	sa := &syscall.SockaddrInet6{Port: port, Addr: addr16}
	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("bind: %w", err)
	}
	if err := syscall.Listen(fd, Backlog); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("set nonblocking: %w", err)
	}
	return fd, nil
}

// Close tears down the listening socket and epoll instance. Accepted
// connections are left to the caller (normally only called at process
// shutdown, when the process exit closes every fd anyway).
func (s *Server) Close() error {
	s.mux.Close()
	return syscall.Close(s.listenFd)
}

// Run drives the event loop until the process is killed or an
// unrecoverable epoll error occurs.
func (s *Server) Run() error {
	for {
		timeout := s.pollTimeoutMs()
		events, err := s.mux.Wait(timeout)
		if err != nil {
			return fmt.Errorf("epoll wait: %w", err)
		}

		for _, ev := range events {
			if ev.Fd == s.listenFd {
				s.acceptAll()
				continue
			}
			s.handleReady(ev)
		}

		s.closeWantClose()
		s.runTimerTick()
	}
}

// pollTimeoutMs computes the event loop's next poll timeout from the
// earliest of the idle list's front connection and the store's TTL heap,
// the way next_timer_ms combines the two timer sources. -1 means block
// indefinitely (no timers pending).
func (s *Server) pollTimeoutMs() int {
	now := time.Now().UnixMilli()
	next := int64(-1)

	if front := s.idle.Front(); front != nil {
		c := front.Owner.(*conn)
		deadline := c.lastActiveMs + s.idleTimeoutMs
		next = deadline
	}
	if deadline, ok := s.store.NextDeadlineMs(); ok {
		if next == -1 || deadline < next {
			next = deadline
		}
	}

	if next == -1 {
		return -1
	}
	if next <= now {
		return 0
	}
	return int(next - now)
}

func (s *Server) acceptAll() {
	for {
		fd, _, err := syscall.Accept(s.listenFd)
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				return
			}
			if s.log != nil {
				s.log.Printf("server: accept: %v", err)
			}
			return
		}
		if err := syscall.SetNonblock(fd, true); err != nil {
			syscall.Close(fd)
			continue
		}
		if err := s.mux.Monitor(io_multiplexing.Event{Fd: fd, Op: io_multiplexing.OpRead}); err != nil {
			syscall.Close(fd)
			continue
		}

		c := newConn(fd, time.Now().UnixMilli())
		s.conns[fd] = c
		s.idle.PushTail(c.idleNode)
	}
}

func (s *Server) handleReady(ev io_multiplexing.Event) {
	c, ok := s.conns[ev.Fd]
	if !ok {
		return
	}
	if ev.Op&io_multiplexing.OpClosed != 0 && ev.Op&(io_multiplexing.OpRead|io_multiplexing.OpWrite) == 0 {
		c.wantClose = true
		return
	}
	if ev.Op&io_multiplexing.OpRead != 0 && c.wantRead() {
		s.handleRead(c)
	}
	if ev.Op&io_multiplexing.OpWrite != 0 && c.wantWrite {
		s.handleWrite(c)
	}
}

// handleRead reads up to readChunk bytes, parses every complete request
// currently buffered, and dispatches each one — a connection can have
// several requests answered from a single read, matching
// try_parse_request's loop. If dispatching produced any reply bytes, the
// connection switches to write mode for the remainder of this tick,
// exactly as handle_read does after calling try_parse_request.
func (s *Server) handleRead(c *conn) {
	var buf [readChunk]byte
	n, err := syscall.Read(c.fd, buf[:])
	if err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return
		}
		c.wantClose = true
		return
	}
	if n == 0 {
		c.wantClose = true
		return
	}
	c.incoming.Append(buf[:n])
	c.lastActiveMs = time.Now().UnixMilli()
	s.idle.MoveToTail(c.idleNode)

	if !s.parseRequests(c) {
		return
	}

	if !c.outgoing.Empty() {
		// Stop reading until the response is fully drained, matching
		// handle_read's want_read=false/want_write=true switch.
		c.wantWrite = true
		if err := s.mux.Modify(io_multiplexing.Event{Fd: c.fd, Op: io_multiplexing.OpWrite}); err != nil {
			c.wantClose = true
			return
		}
		s.handleWrite(c)
	}
}

// parseRequests consumes every complete length-prefixed frame currently in
// c.incoming, dispatching each to the store and appending its reply to
// c.outgoing. Returns false if a protocol error forced the connection
// closed.
func (s *Server) parseRequests(c *conn) bool {
	for {
		if c.incoming.Len() < 4 {
			return true
		}
		header := c.incoming.Peek(4)
		msgLen := int(binary.LittleEndian.Uint32(header))
		if msgLen > wire.MaxMsg {
			c.wantClose = true
			return false
		}
		total := 4 + msgLen
		if c.incoming.Len() < total {
			return true
		}

		body := c.incoming.Peek(total)[4:total]
		mark := c.outgoing.ResponseBegin()
		s.store.Dispatch(body, &c.outgoing)
		c.outgoing.ResponseEnd(mark)

		c.incoming.Consume(total)
	}
}

func (s *Server) handleWrite(c *conn) {
	n, err := syscall.Write(c.fd, c.outgoing.Bytes())
	if err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return
		}
		c.wantClose = true
		return
	}
	if n == 0 {
		c.wantClose = true
		return
	}
	c.outgoing.Consume(n)

	if c.outgoing.Empty() {
		c.wantWrite = false
		if err := s.mux.Modify(io_multiplexing.Event{Fd: c.fd, Op: io_multiplexing.OpRead}); err != nil {
			c.wantClose = true
		}
	}
}

func (s *Server) closeWantClose() {
	for fd, c := range s.conns {
		if !c.wantClose {
			continue
		}
		s.mux.Remove(fd)
		s.idle.Detach(c.idleNode)
		syscall.Close(fd)
		delete(s.conns, fd)
	}
}

// runTimerTick evicts idle connections and expired keys, the way
// process_timers does: walk the idle list from its least-recently-active
// front for as long as entries are overdue, then hand the TTL sweep to
// the store with the same MAX_WORKS bound the source uses.
func (s *Server) runTimerTick() {
	now := time.Now().UnixMilli()
	for {
		front := s.idle.Front()
		if front == nil {
			break
		}
		c := front.Owner.(*conn)
		if c.lastActiveMs+s.idleTimeoutMs > now {
			break
		}
		c.wantClose = true
		s.mux.Remove(c.fd)
		s.idle.Detach(c.idleNode)
		syscall.Close(c.fd)
		delete(s.conns, c.fd)
	}

	s.store.ExpireTick(MaxWorksPerTick)
}
