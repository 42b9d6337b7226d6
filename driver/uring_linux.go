//go:build linux

// File: driver/uring_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion-queue backend on io_uring. Readiness interest is
// submitted as one-shot IORING_OP_POLL_ADD entries; submissions are
// batched in the SQ and flushed by the single io_uring_enter in Wait,
// amortizing per-operation syscall cost. Wait deadlines ride the same
// queue as IORING_OP_TIMEOUT entries.
//
// golang.org/x/sys/unix exposes the syscall numbers but not the ring
// ABI, so the mmap layout is declared here.

package driver

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
)

const (
	uringEntries = 256

	ioringOffSqRing = 0x0
	ioringOffCqRing = 0x8000000
	ioringOffSqes   = 0x10000000

	ioringEnterGetevents = 1 << 0

	ioringOpPollAdd    = 6
	ioringOpPollRemove = 7
	ioringOpTimeout    = 11

	ioringFeatSingleMmap = 1 << 0

	// Reserved user_data tokens.
	tokenWakeup  = 1
	tokenTimeout = 2
	tokenFirst   = 16
)

type ioSqringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

type ioCqringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	overflow    uint32
	cqes        uint32
	flags       uint32
	resv1       uint32
	userAddr    uint64
}

type ioUringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        ioSqringOffsets
	cqOff        ioCqringOffsets
}

type ioUringSqe struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	opcodeFlags uint32 // poll32_events for POLL_ADD
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFdIn  int32
	_           [2]uint64
}

type ioUringCqe struct {
	userData uint64
	res      int32
	flags    uint32
}

type uringDriver struct {
	fd     int
	wakefd int

	sqRing []byte
	cqRing []byte
	sqeMem []byte

	sqHead    *uint32
	sqTail    *uint32
	sqMask    uint32
	sqArray   []uint32
	sqes      []ioUringSqe
	cqHead    *uint32
	cqTail    *uint32
	cqMask    uint32
	cqes      []ioUringCqe
	singleMap bool

	toSubmit  uint32
	nextToken uint64
	regs      map[uint64]*uringReg  // by user_data token
	byFd      map[uintptr]*uringReg // duplicate detection
	waitTs    unix.Timespec         // alive across the enter syscall
	log       *logrus.Entry
}

type uringReg struct {
	d      *uringDriver
	fd     uintptr
	token  uint64 // current POLL_ADD user_data, 0 when disarmed
	armed  api.Interest
	fn     api.ReadyFn
	closed bool
}

func newUringDriver(log *logrus.Entry) (api.Driver, error) {
	var params ioUringParams
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP,
		uintptr(uringEntries), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, api.NewError(api.ErrCodeDriverInit, "io_uring_setup").WithCause(errno)
	}
	d := &uringDriver{
		fd:        int(fd),
		nextToken: tokenFirst,
		regs:      make(map[uint64]*uringReg),
		byFd:      make(map[uintptr]*uringReg),
		singleMap: params.features&ioringFeatSingleMmap != 0,
		log:       log.WithField("backend", api.BackendUring.String()),
	}
	if err := d.mmapRings(&params); err != nil {
		unix.Close(d.fd)
		return nil, api.NewError(api.ErrCodeDriverInit, "io_uring mmap").WithCause(err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		d.unmapRings()
		unix.Close(d.fd)
		return nil, api.NewError(api.ErrCodeDriverInit, "eventfd create").WithCause(err)
	}
	d.wakefd = wakefd
	d.pushPoll(uintptr(wakefd), unix.POLLIN, tokenWakeup)
	return d, nil
}

func (d *uringDriver) mmapRings(p *ioUringParams) error {
	sqSize := int(p.sqOff.array) + int(p.sqEntries)*4
	cqSize := int(p.cqOff.cqes) + int(p.cqEntries)*int(unsafe.Sizeof(ioUringCqe{}))
	if d.singleMap && cqSize > sqSize {
		sqSize = cqSize
	}
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_SHARED | unix.MAP_POPULATE

	sq, err := unix.Mmap(d.fd, ioringOffSqRing, sqSize, prot, flags)
	if err != nil {
		return fmt.Errorf("sq ring: %w", err)
	}
	d.sqRing = sq
	if d.singleMap {
		d.cqRing = sq
	} else {
		cq, err := unix.Mmap(d.fd, ioringOffCqRing, cqSize, prot, flags)
		if err != nil {
			return fmt.Errorf("cq ring: %w", err)
		}
		d.cqRing = cq
	}
	sqes, err := unix.Mmap(d.fd, ioringOffSqes,
		int(p.sqEntries)*int(unsafe.Sizeof(ioUringSqe{})), prot, flags)
	if err != nil {
		return fmt.Errorf("sqe array: %w", err)
	}
	d.sqeMem = sqes

	base := unsafe.Pointer(&d.sqRing[0])
	d.sqHead = (*uint32)(unsafe.Add(base, p.sqOff.head))
	d.sqTail = (*uint32)(unsafe.Add(base, p.sqOff.tail))
	d.sqMask = *(*uint32)(unsafe.Add(base, p.sqOff.ringMask))
	d.sqArray = unsafe.Slice((*uint32)(unsafe.Add(base, p.sqOff.array)), p.sqEntries)
	d.sqes = unsafe.Slice((*ioUringSqe)(unsafe.Pointer(&d.sqeMem[0])), p.sqEntries)

	cbase := unsafe.Pointer(&d.cqRing[0])
	d.cqHead = (*uint32)(unsafe.Add(cbase, p.cqOff.head))
	d.cqTail = (*uint32)(unsafe.Add(cbase, p.cqOff.tail))
	d.cqMask = *(*uint32)(unsafe.Add(cbase, p.cqOff.ringMask))
	d.cqes = unsafe.Slice((*ioUringCqe)(unsafe.Add(cbase, p.cqOff.cqes)), p.cqEntries)
	return nil
}

func (d *uringDriver) unmapRings() {
	if d.sqeMem != nil {
		_ = unix.Munmap(d.sqeMem)
	}
	if d.cqRing != nil && !d.singleMap {
		_ = unix.Munmap(d.cqRing)
	}
	if d.sqRing != nil {
		_ = unix.Munmap(d.sqRing)
	}
}

// nextSqe claims the next SQ slot, flushing the queue when full.
func (d *uringDriver) nextSqe() *ioUringSqe {
	if d.toSubmit == uint32(len(d.sqes)) {
		_, _ = d.enter(d.toSubmit, 0, 0)
		d.toSubmit = 0
	}
	tail := atomic.LoadUint32(d.sqTail)
	idx := tail & d.sqMask
	sqe := &d.sqes[idx]
	*sqe = ioUringSqe{}
	d.sqArray[idx] = idx
	atomic.StoreUint32(d.sqTail, tail+1)
	d.toSubmit++
	return sqe
}

func (d *uringDriver) pushPoll(fd uintptr, events uint32, token uint64) {
	sqe := d.nextSqe()
	sqe.opcode = ioringOpPollAdd
	sqe.fd = int32(fd)
	sqe.opcodeFlags = events
	sqe.userData = token
}

func (d *uringDriver) pushPollRemove(token uint64) {
	sqe := d.nextSqe()
	sqe.opcode = ioringOpPollRemove
	sqe.fd = -1
	sqe.addr = token
	sqe.userData = tokenTimeout // completion ignored
}

func (d *uringDriver) pushTimeout(timeoutNs int64) {
	d.waitTs = unix.NsecToTimespec(timeoutNs)
	sqe := d.nextSqe()
	sqe.opcode = ioringOpTimeout
	sqe.fd = -1
	sqe.addr = uint64(uintptr(unsafe.Pointer(&d.waitTs)))
	sqe.len = 1
	sqe.off = 1 // self-completes with the first CQE as well
	sqe.userData = tokenTimeout
}

func (d *uringDriver) enter(toSubmit, minComplete uint32, flags uintptr) (int, error) {
	for {
		n, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER,
			uintptr(d.fd), uintptr(toSubmit), uintptr(minComplete), flags, 0, 0)
		if errno == unix.EINTR {
			continue
		}
		if errno != 0 {
			return 0, fmt.Errorf("driver: io_uring_enter: %w", errno)
		}
		return int(n), nil
	}
}

func pollEvents(interest api.Interest) uint32 {
	var ev uint32
	if interest.Has(api.Readable) {
		ev |= unix.POLLIN
	}
	if interest.Has(api.Writable) {
		ev |= unix.POLLOUT
	}
	return ev
}

func (d *uringDriver) Register(fd uintptr, interest api.Interest, fn api.ReadyFn) (api.Registration, error) {
	if interest == 0 || fn == nil {
		return nil, api.ErrInvalidArgument
	}
	if _, dup := d.byFd[fd]; dup {
		return nil, fmt.Errorf("driver: fd %d already registered: %w", fd, api.ErrInvalidArgument)
	}
	r := &uringReg{d: d, fd: fd, armed: interest, fn: fn}
	r.token = d.nextToken
	d.nextToken++
	d.regs[r.token] = r
	d.byFd[fd] = r
	d.pushPoll(fd, pollEvents(interest), r.token)
	return r, nil
}

func (r *uringReg) Rearm(interest api.Interest, fn api.ReadyFn) error {
	if r.closed {
		return api.ErrClosed
	}
	if interest == 0 || fn == nil {
		return api.ErrInvalidArgument
	}
	if r.token != 0 {
		// Still armed: replace the in-flight poll.
		r.d.pushPollRemove(r.token)
		delete(r.d.regs, r.token)
	}
	r.armed = interest
	r.fn = fn
	r.token = r.d.nextToken
	r.d.nextToken++
	r.d.regs[r.token] = r
	r.d.pushPoll(r.fd, pollEvents(interest), r.token)
	return nil
}

func (r *uringReg) Deregister() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.fn = nil
	if r.token != 0 {
		r.d.pushPollRemove(r.token)
		delete(r.d.regs, r.token)
		r.token = 0
	}
	delete(r.d.byFd, r.fd)
	return nil
}

func (d *uringDriver) Wait(timeoutNs int64) (int, error) {
	minComplete := uint32(1)
	if timeoutNs == 0 {
		minComplete = 0
	} else if timeoutNs > 0 {
		d.pushTimeout(timeoutNs)
	}
	submit := d.toSubmit
	d.toSubmit = 0
	if _, err := d.enter(submit, minComplete, ioringEnterGetevents); err != nil {
		return 0, err
	}
	return d.drainCq(), nil
}

func (d *uringDriver) drainCq() int {
	fired := 0
	head := atomic.LoadUint32(d.cqHead)
	tail := atomic.LoadUint32(d.cqTail)
	for ; head != tail; head++ {
		cqe := d.cqes[head&d.cqMask]
		switch cqe.userData {
		case tokenTimeout:
			// Wait deadline elapsed (ETIME) or rode along with another
			// completion; either way it only bounded the wait.
		case tokenWakeup:
			d.drainWake()
			d.pushPoll(uintptr(d.wakefd), unix.POLLIN, tokenWakeup)
		default:
			r, ok := d.regs[cqe.userData]
			if !ok || r.fn == nil {
				break
			}
			delete(d.regs, cqe.userData)
			r.token = 0 // disarmed until Rearm
			fn := r.fn
			r.fn = nil
			fn(uringReady(r.armed, cqe.res))
			fired++
		}
	}
	atomic.StoreUint32(d.cqHead, head)
	return fired
}

func uringReady(armed api.Interest, res int32) api.Ready {
	if res < 0 {
		return readyError(0, unix.Errno(-res))
	}
	var got api.Interest
	if uint32(res)&unix.POLLIN != 0 {
		got |= api.Readable
	}
	if uint32(res)&unix.POLLOUT != 0 {
		got |= api.Writable
	}
	if uint32(res)&(unix.POLLERR|unix.POLLHUP) != 0 {
		return readyError(got, api.ErrClosed)
	}
	return api.Ready{Interest: got & armed}
}

// Wakeup is safe from any thread: the eventfd write completes the
// armed wakeup poll and ends a concurrent enter.
func (d *uringDriver) Wakeup() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(d.wakefd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return nil
		}
		return err
	}
}

func (d *uringDriver) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(d.wakefd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}

func (d *uringDriver) Close() error {
	unix.Close(d.wakefd)
	d.unmapRings()
	return unix.Close(d.fd)
}
