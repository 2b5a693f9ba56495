//go:build linux

package reactor

import "golang.org/x/sys/unix"

// createWakeFD creates an eventfd used to interrupt Reactor.Run's epoll
// wait from another goroutine. Grounded on the teacher's createWakeFd
// (eventloop/wakeup_linux.go), which uses the identical eventfd mechanism
// for the identical purpose (waking a blocked poller from a foreign
// goroutine) — here restricted to the two boundary components the spec
// allows to cross threads: workdispatcher and signalbridge.
func createWakeFD() (int, error) {
	return unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
}

func wakeFDSignal(fd int) {
	var one [8]byte
	one[7] = 1
	_, _ = unix.Write(fd, one[:])
}

func wakeFDDrain(fd int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			return
		}
	}
}
