//go:build darwin || freebsd || netbsd || openbsd

// File: driver/kqueue_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readiness-polling backend on kqueue(2). Read and write interest map
// to separate EVFILT_READ/EVFILT_WRITE one-shot kevents; a self-pipe
// carries cross-thread wakeups (kqueue has no eventfd equivalent).

package driver

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
)

const kqueueMaxEvents = 128

type kqueueDriver struct {
	kq       int
	wakeRead int
	wakeWrt  int
	events   []unix.Kevent_t
	regs     map[uint64]*kqueueReg
	log      *logrus.Entry
}

type kqueueReg struct {
	d      *kqueueDriver
	fd     uint64
	armed  api.Interest
	fn     api.ReadyFn
	closed bool
}

func newKqueueDriver(log *logrus.Entry) (api.Driver, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, api.NewError(api.ErrCodeDriverInit, "kqueue create").WithCause(err)
	}
	unix.CloseOnExec(kq)
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		unix.Close(kq)
		return nil, api.NewError(api.ErrCodeDriverInit, "wake pipe create").WithCause(err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			unix.Close(kq)
			return nil, api.NewError(api.ErrCodeDriverInit, "wake pipe nonblock").WithCause(err)
		}
	}
	// The wake pipe stays armed for the driver's lifetime.
	var wakeEv unix.Kevent_t
	unix.SetKevent(&wakeEv, fds[0], unix.EVFILT_READ, unix.EV_ADD|unix.EV_CLEAR)
	if _, err := unix.Kevent(kq, []unix.Kevent_t{wakeEv}, nil, nil); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		unix.Close(kq)
		return nil, api.NewError(api.ErrCodeDriverInit, "kqueue register wake pipe").WithCause(err)
	}
	return &kqueueDriver{
		kq:       kq,
		wakeRead: fds[0],
		wakeWrt:  fds[1],
		events:   make([]unix.Kevent_t, kqueueMaxEvents),
		regs:     make(map[uint64]*kqueueReg),
		log:      log.WithField("backend", api.BackendKqueue.String()),
	}, nil
}

// arm installs one-shot kevents matching interest.
func (d *kqueueDriver) arm(fd uint64, interest api.Interest) error {
	changes := make([]unix.Kevent_t, 0, 2)
	if interest.Has(api.Readable) {
		var ev unix.Kevent_t
		unix.SetKevent(&ev, int(fd), unix.EVFILT_READ, unix.EV_ADD|unix.EV_ONESHOT)
		changes = append(changes, ev)
	}
	if interest.Has(api.Writable) {
		var ev unix.Kevent_t
		unix.SetKevent(&ev, int(fd), unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ONESHOT)
		changes = append(changes, ev)
	}
	if _, err := unix.Kevent(d.kq, changes, nil, nil); err != nil {
		return fmt.Errorf("driver: kevent add: %w", err)
	}
	return nil
}

func (d *kqueueDriver) Register(fd uintptr, interest api.Interest, fn api.ReadyFn) (api.Registration, error) {
	if interest == 0 || fn == nil {
		return nil, api.ErrInvalidArgument
	}
	if _, dup := d.regs[uint64(fd)]; dup {
		return nil, fmt.Errorf("driver: fd %d already registered: %w", fd, api.ErrInvalidArgument)
	}
	if err := d.arm(uint64(fd), interest); err != nil {
		return nil, err
	}
	r := &kqueueReg{d: d, fd: uint64(fd), armed: interest, fn: fn}
	d.regs[r.fd] = r
	return r, nil
}

func (r *kqueueReg) Rearm(interest api.Interest, fn api.ReadyFn) error {
	if r.closed {
		return api.ErrClosed
	}
	if interest == 0 || fn == nil {
		return api.ErrInvalidArgument
	}
	if err := r.d.arm(r.fd, interest); err != nil {
		return err
	}
	r.armed = interest
	r.fn = fn
	return nil
}

func (r *kqueueReg) Deregister() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.fn = nil
	delete(r.d.regs, r.fd)
	// One-shot filters self-delete on fire; best-effort removal of any
	// still-armed filter.
	var rd, wr unix.Kevent_t
	unix.SetKevent(&rd, int(r.fd), unix.EVFILT_READ, unix.EV_DELETE)
	unix.SetKevent(&wr, int(r.fd), unix.EVFILT_WRITE, unix.EV_DELETE)
	_, _ = unix.Kevent(r.d.kq, []unix.Kevent_t{rd, wr}, nil, nil)
	return nil
}

func (d *kqueueDriver) Wait(timeoutNs int64) (int, error) {
	var ts *unix.Timespec
	if timeoutNs >= 0 {
		t := unix.NsecToTimespec(timeoutNs)
		ts = &t
	}
	var n int
	var err error
	for {
		n, err = unix.Kevent(d.kq, nil, d.events, ts)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("driver: kevent wait: %w", err)
		}
		break
	}
	fired := 0
	for i := 0; i < n; i++ {
		ev := d.events[i]
		fd := uint64(ev.Ident)
		if fd == uint64(d.wakeRead) {
			d.drainWake()
			continue
		}
		r, ok := d.regs[fd]
		if !ok || r.fn == nil {
			continue
		}
		var got api.Interest
		if ev.Filter == unix.EVFILT_READ {
			got = api.Readable
		} else if ev.Filter == unix.EVFILT_WRITE {
			got = api.Writable
		}
		ready := api.Ready{Interest: got}
		if ev.Flags&unix.EV_EOF != 0 || ev.Flags&unix.EV_ERROR != 0 {
			ready = readyError(got, api.ErrClosed)
		}
		fn := r.fn
		r.fn = nil // disarmed until Rearm
		fn(ready)
		fired++
	}
	return fired, nil
}

// Wakeup is safe from any thread.
func (d *kqueueDriver) Wakeup() error {
	for {
		_, err := unix.Write(d.wakeWrt, []byte{1})
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return nil // pipe full, wake already pending
		}
		return err
	}
}

func (d *kqueueDriver) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(d.wakeRead, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n < len(buf) {
			return
		}
	}
}

func (d *kqueueDriver) Close() error {
	unix.Close(d.wakeRead)
	unix.Close(d.wakeWrt)
	return unix.Close(d.kq)
}
