// Package io_multiplexing wraps the raw epoll syscalls behind a small
// Event-based API, so the event loop (internal/server) never touches
// syscall.Epoll* directly. It supplies the implementation that
// redis-clone/internal/core/io_multiplexing never shipped with in the
// teacher's tree (server/server.go imports it but the package's source
// was never included there) — built the way miniredis.go's EpollServer
// drives the same syscalls inline.
package io_multiplexing

import "syscall"

// Op is a bitmask of readiness/interest directions.
type Op uint32

const (
	OpRead Op = 1 << iota
	OpWrite
	OpClosed // set on returned events only: peer hangup / error
)

// Event is either an interest registration (Monitor/Modify) or a
// readiness notification (returned from Wait).
type Event struct {
	Fd int
	Op Op
}

func (op Op) toEpollMask() uint32 {
	var m uint32
	if op&OpRead != 0 {
		m |= syscall.EPOLLIN | syscall.EPOLLRDHUP
	}
	if op&OpWrite != 0 {
		m |= syscall.EPOLLOUT
	}
	return m
}

func fromEpollMask(m uint32) Op {
	var op Op
	if m&syscall.EPOLLIN != 0 {
		op |= OpRead
	}
	if m&syscall.EPOLLOUT != 0 {
		op |= OpWrite
	}
	if m&(syscall.EPOLLHUP|syscall.EPOLLRDHUP|syscall.EPOLLERR) != 0 {
		op |= OpClosed
	}
	return op
}

// Multiplexer is a thin wrapper around one epoll instance.
type Multiplexer struct {
	epfd int
}

// CreateIOMultiplexer creates a new epoll instance.
func CreateIOMultiplexer() (*Multiplexer, error) {
	fd, err := syscall.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Multiplexer{epfd: fd}, nil
}

// Monitor registers fd for the interest in e.Op.
func (m *Multiplexer) Monitor(e Event) error {
	ev := &syscall.EpollEvent{Events: e.Op.toEpollMask(), Fd: int32(e.Fd)}
	return syscall.EpollCtl(m.epfd, syscall.EPOLL_CTL_ADD, e.Fd, ev)
}

// Modify changes the registered interest for fd, e.g. switching a
// connection from read-interest to write-interest once it has buffered
// output to drain.
func (m *Multiplexer) Modify(e Event) error {
	ev := &syscall.EpollEvent{Events: e.Op.toEpollMask(), Fd: int32(e.Fd)}
	return syscall.EpollCtl(m.epfd, syscall.EPOLL_CTL_MOD, e.Fd, ev)
}

// Remove stops monitoring fd. Safe to call even if the kernel has already
// dropped it (e.g. because the fd was closed).
func (m *Multiplexer) Remove(fd int) error {
	err := syscall.EpollCtl(m.epfd, syscall.EPOLL_CTL_DEL, fd, nil)
	if err == syscall.EBADF || err == syscall.ENOENT {
		return nil
	}
	return err
}

// Wait blocks until at least one monitored fd is ready, an error occurs,
// or timeoutMs elapses (-1 waits indefinitely), and returns the readiness
// events.
func (m *Multiplexer) Wait(timeoutMs int) ([]Event, error) {
	raw := make([]syscall.EpollEvent, 128)
	for {
		n, err := syscall.EpollWait(m.epfd, raw, timeoutMs)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return nil, err
		}
		out := make([]Event, n)
		for i := 0; i < n; i++ {
			out[i] = Event{Fd: int(raw[i].Fd), Op: fromEpollMask(raw[i].Events)}
		}
		return out, nil
	}
}

// Close releases the epoll fd.
func (m *Multiplexer) Close() error {
	return syscall.Close(m.epfd)
}
