//go:build !linux

package sigmask

import "os"

// Non-Linux platforms either have no signal mask inheritance to undo or
// the runtime already unblocks handled signals. Nothing to do.
func unblock([]os.Signal) error {
	return nil
}
