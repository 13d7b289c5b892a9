// Package fixture implements a fake nginx for exercising process
// supervisors. It mimics just enough of nginx's CLI and signal contract
// to stand in for the real binary in tests: version and config-check
// flags short-circuit, SIGQUIT triggers a graceful shutdown after a
// short drain delay, SIGHUP is acknowledged without terminating, and a
// readiness marker file tells an external watcher the fixture is up.
//
// Run returns an exit code instead of calling os.Exit so the whole
// contract is testable in-process; the cmd/ mains are one-liners.
package fixture

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbrock/fakenginx/internal/sigmask"
)

const (
	// DefaultDrainDelay simulates in-flight work finishing before a
	// graceful shutdown completes.
	DefaultDrainDelay = 500 * time.Millisecond
	// DefaultWaitTimeout bounds how long the fixture waits for a signal
	// before giving up and failing.
	DefaultWaitTimeout = 5 * time.Second
)

// Config selects which parts of the nginx contract a fixture variant
// implements.
type Config struct {
	// FlagsEnabled turns on the -v / -t short-circuit handling.
	FlagsEnabled bool

	// ReloadEnabled installs a SIGHUP handler that acknowledges the
	// reload request without terminating.
	ReloadEnabled bool

	// WriteMarker writes the readiness marker file derived from the
	// config path argument once signal handling is in place.
	WriteMarker bool

	// DrainDelay is slept before a SIGQUIT shutdown completes.
	DrainDelay time.Duration

	// WaitTimeout is how long to wait for a signal before failing.
	WaitTimeout time.Duration

	// Notify, when set, runs after signal setup (and the marker write)
	// to tell a supervisor the fixture is ready.
	Notify func()

	// Out receives the fixture's contract output. Defaults to stdout.
	Out io.Writer
}

// EnvConfig applies FAKE_NGINX_DRAIN and FAKE_NGINX_TIMEOUT duration
// overrides to cfg. Unset or malformed values leave the config alone.
func EnvConfig(cfg Config) Config {
	if v := os.Getenv("FAKE_NGINX_DRAIN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DrainDelay = d
		}
	}
	if v := os.Getenv("FAKE_NGINX_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WaitTimeout = d
		}
	}
	return cfg
}

// Run executes the fixture contract against a full argument vector
// (os.Args shaped) and returns the process exit code.
func Run(cfg Config, args []string) int {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if cfg.DrainDelay == 0 {
		cfg.DrainDelay = DefaultDrainDelay
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}

	fmt.Fprintf(out, "Running %v\n", args)

	inv := ParseArgs(args)
	if cfg.FlagsEnabled {
		switch inv.Command {
		case CommandVersion:
			fmt.Fprintln(out, "Asked for version")
			return 0
		case CommandValidate:
			fmt.Fprintln(out, "Asked for config validation")
			return 0
		}
	}

	sigs := []os.Signal{syscall.SIGQUIT}
	if cfg.ReloadEnabled {
		sigs = append(sigs, syscall.SIGHUP)
	}

	// The supervising parent blocks SIGQUIT in subprocesses, so we
	// unblock it before registering the handler - same as what nginx
	// does.
	if err := sigmask.Unblock(sigs...); err != nil {
		fmt.Fprintf(out, "unblock signals: %v\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)
	defer signal.Stop(sigCh)

	if cfg.WriteMarker {
		if _, err := writeMarker(inv.ConfigPath); err != nil {
			fmt.Fprintf(out, "startup marker: %v\n", err)
			return 1
		}
	}
	if cfg.Notify != nil {
		cfg.Notify()
	}

	timer := time.NewTimer(cfg.WaitTimeout)
	defer timer.Stop()

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGQUIT:
				time.Sleep(cfg.DrainDelay)
				fmt.Fprintln(out, "Received sigquit, doing graceful shutdown")
				return 0
			case syscall.SIGHUP:
				// Acknowledge only. A reload must not terminate the
				// fixture or restart the wait timeout.
				fmt.Fprintln(out, "Received sighup, ignoring")
			}
		case <-timer.C:
			fmt.Fprintf(out, "Quit after %s of nada\n", cfg.WaitTimeout)
			return 1
		}
	}
}
