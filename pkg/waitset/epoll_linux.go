//go:build linux

package waitset

import (
	"context"
	"sync"

	"golang.org/x/sys/unix"
)

// Poller is the Linux backend for WaitSet, built on epoll per SPEC_FULL.md's
// domain-stack wiring. It bridges real file descriptors to Handle.Trigger
// calls so consumers only ever deal with the platform-independent
// WaitSet/Wait contract.
type Poller struct {
	epfd int

	mu      sync.Mutex
	handles map[int]*Handle
	ws      *WaitSet
}

// NewPoller creates an epoll instance feeding Trigger calls into ws.
func NewPoller(ws *WaitSet) (*Poller, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Poller{epfd: epfd, ws: ws, handles: make(map[int]*Handle)}, nil
}

// AddFd registers fd for read readiness, associating it with data in the
// underlying WaitSet.
func (p *Poller) AddFd(fd int, data any) (*Handle, error) {
	h := p.ws.Add(data)
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		h.Remove()
		return nil, err
	}
	p.mu.Lock()
	p.handles[fd] = h
	p.mu.Unlock()
	return h, nil
}

// RemoveFd detaches fd from both epoll and the WaitSet.
func (p *Poller) RemoveFd(fd int) error {
	p.mu.Lock()
	h, ok := p.handles[fd]
	if ok {
		delete(p.handles, fd)
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}
	h.Remove()
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Run blocks in epoll_wait, calling Trigger for every ready fd, until ctx
// is cancelled. A short wait timeout keeps cancellation latency bounded
// without requiring a pipe-based wakeup fd.
func (p *Poller) Run(ctx context.Context) error {
	events := make([]unix.EpollEvent, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.EpollWait(p.epfd, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			p.mu.Lock()
			h, ok := p.handles[fd]
			p.mu.Unlock()
			if ok {
				h.Trigger()
			}
		}
	}
}

// Close releases the epoll file descriptor.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
