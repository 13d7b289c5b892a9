// fake-nginx - full nginx stand-in for supervisor tests
//
// Mimics nginx's CLI and signal contract: `-v` and `-t` short-circuit,
// SIGQUIT drains then exits 0, SIGHUP is acknowledged without
// terminating, and a `nginx-started` marker file is written next to
// the config path once the fixture is ready. With no signal within the
// wait timeout it exits nonzero.
package main

import (
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/mbrock/fakenginx/internal/fixture"
)

func main() {
	cfg := fixture.EnvConfig(fixture.Config{
		FlagsEnabled:  true,
		ReloadEnabled: true,
		WriteMarker:   true,
		Notify:        notifyReady,
	})
	os.Exit(fixture.Run(cfg, os.Args))
}

// notifyReady tells a systemd-style supervisor we are up, in addition
// to the marker file. No-op outside a notify socket environment.
func notifyReady() {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		fmt.Fprintf(os.Stderr, "fake-nginx: sd_notify: %v\n", err)
	}
}
