//go:build linux

package sigmask

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func unblock(sigs []os.Signal) error {
	var set unix.Sigset_t
	for _, sig := range sigs {
		num, ok := sig.(syscall.Signal)
		if !ok {
			continue
		}
		bit := uint(num - 1)
		set.Val[bit/64] |= 1 << (bit % 64)
	}
	return unix.PthreadSigmask(unix.SIG_UNBLOCK, &set, nil)
}
