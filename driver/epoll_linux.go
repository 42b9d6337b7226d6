//go:build linux

// File: driver/epoll_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readiness-polling backend on epoll(7). One-shot arming: a fired
// registration stays in the interest table but is disarmed until
// Rearm, which keeps at most one outstanding waker per resource.

package driver

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
)

const epollMaxEvents = 128

type epollDriver struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
	regs   map[int32]*epollReg
	log    *logrus.Entry
}

type epollReg struct {
	d      *epollDriver
	fd     int32
	armed  api.Interest
	fn     api.ReadyFn
	closed bool
}

func newEpollDriver(log *logrus.Entry) (api.Driver, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.NewError(api.ErrCodeDriverInit, "epoll create").WithCause(err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, api.NewError(api.ErrCodeDriverInit, "eventfd create").WithCause(err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, api.NewError(api.ErrCodeDriverInit, "epoll register wakefd").WithCause(err)
	}
	return &epollDriver{
		epfd:   epfd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, epollMaxEvents),
		regs:   make(map[int32]*epollReg),
		log:    log.WithField("backend", api.BackendEpoll.String()),
	}, nil
}

func epollMask(interest api.Interest) uint32 {
	var m uint32 = unix.EPOLLONESHOT | unix.EPOLLRDHUP
	if interest.Has(api.Readable) {
		m |= unix.EPOLLIN
	}
	if interest.Has(api.Writable) {
		m |= unix.EPOLLOUT
	}
	return m
}

func (d *epollDriver) Register(fd uintptr, interest api.Interest, fn api.ReadyFn) (api.Registration, error) {
	if interest == 0 || fn == nil {
		return nil, api.ErrInvalidArgument
	}
	if _, dup := d.regs[int32(fd)]; dup {
		return nil, fmt.Errorf("driver: fd %d already registered: %w", fd, api.ErrInvalidArgument)
	}
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return nil, fmt.Errorf("driver: epoll ctl add: %w", err)
	}
	r := &epollReg{d: d, fd: int32(fd), armed: interest, fn: fn}
	d.regs[r.fd] = r
	return r, nil
}

func (r *epollReg) Rearm(interest api.Interest, fn api.ReadyFn) error {
	if r.closed {
		return api.ErrClosed
	}
	if interest == 0 || fn == nil {
		return api.ErrInvalidArgument
	}
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: r.fd}
	if err := unix.EpollCtl(r.d.epfd, unix.EPOLL_CTL_MOD, int(r.fd), &ev); err != nil {
		return fmt.Errorf("driver: epoll ctl mod: %w", err)
	}
	// Replaces the prior waker for this resource.
	r.armed = interest
	r.fn = fn
	return nil
}

func (r *epollReg) Deregister() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.fn = nil
	delete(r.d.regs, r.fd)
	if err := unix.EpollCtl(r.d.epfd, unix.EPOLL_CTL_DEL, int(r.fd), nil); err != nil {
		return fmt.Errorf("driver: epoll ctl del: %w", err)
	}
	return nil
}

func (d *epollDriver) Wait(timeoutNs int64) (int, error) {
	ms := timeoutMillis(timeoutNs)
	var n int
	var err error
	for {
		n, err = unix.EpollWait(d.epfd, d.events, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("driver: epoll wait: %w", err)
		}
		break
	}
	fired := 0
	for i := 0; i < n; i++ {
		ev := d.events[i]
		if ev.Fd == int32(d.wakefd) {
			d.drainWake()
			continue
		}
		r, ok := d.regs[ev.Fd]
		if !ok || r.fn == nil {
			continue
		}
		fn := r.fn
		r.fn = nil // disarmed until Rearm
		fn(epollReady(r.armed, ev.Events))
		fired++
	}
	return fired, nil
}

func epollReady(armed api.Interest, events uint32) api.Ready {
	var got api.Interest
	if events&unix.EPOLLIN != 0 {
		got |= api.Readable
	}
	if events&unix.EPOLLOUT != 0 {
		got |= api.Writable
	}
	if events&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		return readyError(got, api.ErrClosed)
	}
	return api.Ready{Interest: got & armed}
}

// Wakeup is safe from any thread.
func (d *epollDriver) Wakeup() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(d.wakefd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return nil // counter saturated, wake already pending
		}
		return err
	}
}

func (d *epollDriver) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(d.wakefd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}

func (d *epollDriver) Close() error {
	unix.Close(d.wakefd)
	return unix.Close(d.epfd)
}
