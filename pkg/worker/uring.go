//go:build linux

package worker

import (
	"errors"
	"os"
	"syscall"

	"github.com/godzie44/go-uring/uring"
	"golang.org/x/sys/unix"
)

const (
	uringQueueDepth = 32
	uringBlockSize  = 1 << 20
)

// uringBackend reads files through io_uring, keeping a window of
// sequential block reads in flight over an anonymous-mmap buffer.
type uringBackend struct{}

func newUringBackend() (ReadBackend, error) {
	return uringBackend{}, nil
}

func (uringBackend) ReadFile(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := st.Size()
	if size == 0 {
		return 0, nil
	}

	qd := uringQueueDepth
	if blocks := int((size + uringBlockSize - 1) / uringBlockSize); blocks < qd {
		qd = blocks
	}

	ring, err := uring.New(uint32(qd))
	if err != nil {
		return 0, err
	}
	defer ring.Close()

	buf, err := unix.Mmap(-1, 0, uringBlockSize*qd, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, err
	}
	defer unix.Munmap(buf)

	freeSlots := make([]int, qd)
	for i := range freeSlots {
		freeSlots[i] = i
	}

	var (
		total      int64
		nextOffset int64
		inFlight   int
	)

	for nextOffset < size || inFlight > 0 {
		queued := 0
		for nextOffset < size && len(freeSlots) > 0 {
			slot := freeSlots[len(freeSlots)-1]

			chunk := buf[slot*uringBlockSize : (slot+1)*uringBlockSize]
			if want := size - nextOffset; want < int64(len(chunk)) {
				chunk = chunk[:want]
			}
			if err := ring.QueueSQE(uring.Read(f.Fd(), chunk, uint64(nextOffset)), 0, uint64(slot)); err != nil {
				break
			}
			freeSlots = freeSlots[:len(freeSlots)-1]
			nextOffset += int64(len(chunk))
			inFlight++
			queued++
		}

		if queued > 0 {
			for {
				_, err := ring.Submit()
				if err == nil || !isEINTR(err) {
					if err != nil {
						return total, err
					}
					break
				}
			}
		}

		cqe, err := ring.WaitCQEvents(1)
		for err != nil && isEINTR(err) {
			cqe, err = ring.WaitCQEvents(1)
		}
		if err != nil {
			return total, err
		}

		for cqe != nil {
			if cqe.Res < 0 {
				ring.SeenCQE(cqe)
				return total, syscall.Errno(-cqe.Res)
			}
			total += int64(cqe.Res)
			inFlight--
			freeSlots = append(freeSlots, int(cqe.UserData))
			ring.SeenCQE(cqe)
			cqe, _ = ring.PeekCQE()
		}
	}

	return total, nil
}

func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EINTR) {
		return true
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		return sysErr.Err == syscall.EINTR
	}
	return false
}
