//go:build linux

package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// wakeID tags the eventfd in epoll results.
const wakeID = -1

// poller waits for readable devices on epoll. An eventfd registered next to
// the devices lets mailbox pushes interrupt the wait.
type poller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
	fds    map[int]int // device id -> fd

	mu     sync.Mutex
	closed bool
}

func newPoller(devices int) (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	p := &poller{
		epfd:   epfd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, devices+1),
		fds:    make(map[int]int),
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: wakeID}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = p.close()
		return nil, fmt.Errorf("epoll add waker: %w", err)
	}
	return p, nil
}

// add watches fd for readability and reports it as id.
func (p *poller) add(id, fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(id)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll add device %d: %w", id, err)
	}
	p.fds[id] = fd
	return nil
}

func (p *poller) remove(id int) error {
	fd, ok := p.fds[id]
	if !ok {
		return nil
	}
	delete(p.fds, id)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll remove device %d: %w", id, err)
	}
	return nil
}

func (p *poller) watching(id int) bool {
	_, ok := p.fds[id]
	return ok
}

// wait blocks until a device is readable or wake is called. It returns the
// ids of readable devices; an interrupted wait returns none.
func (p *poller) wait() ([]int, error) {
	n, err := unix.EpollWait(p.epfd, p.events, -1)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll wait: %w", err)
	}

	ids := make([]int, 0, n)
	for _, ev := range p.events[:n] {
		if ev.Fd == wakeID {
			p.drainWake()
			continue
		}
		ids = append(ids, int(ev.Fd))
	}
	return ids, nil
}

func (p *poller) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakefd, buf[:])
}

// wake interrupts a blocked wait. Safe from any goroutine, also after close.
func (p *poller) wake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(p.wakefd, buf[:])
}

func (p *poller) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return errors.Join(unix.Close(p.wakefd), unix.Close(p.epfd))
}
