// Package sigmask manipulates the process signal mask.
//
// A supervising parent may spawn its children with signals like SIGQUIT
// blocked. The blocked mask is inherited across exec, so a child that
// wants to handle such a signal has to unblock it explicitly at startup,
// the same way nginx does.
package sigmask

import "os"

// Unblock removes the given signals from the inherited signal mask so
// they can be delivered to this process. It must be called before
// registering handlers for signals the parent may have blocked.
func Unblock(sigs ...os.Signal) error {
	return unblock(sigs)
}
