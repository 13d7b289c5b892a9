// nginx-driver - run a fake-nginx fixture under supervision
//
// Usage:
//
//	nginx-driver --fixture ./fake-nginx --config /tmp/ngx/nginx.conf
//
// Spawns the fixture the way a control plane would, waits for its
// readiness marker, optionally sends reload and quit signals on a
// schedule, and exits with the fixture's exit code. Ctrl+C forwards a
// graceful quit to the fixture. Set FAKE_NGINX_DEBUG for slog debug
// output.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/mbrock/fakenginx/internal/driver"
	"github.com/mbrock/fakenginx/internal/fixture"
)

var (
	fixtureFlag        string
	configFlag         string
	ttyFlag            bool
	startupTimeoutFlag time.Duration
	quitAfterFlag      time.Duration
	reloadEveryFlag    time.Duration
	waitFlag           time.Duration
)

func main() {
	flag.StringVar(&fixtureFlag, "fixture", "", "Fixture binary to supervise (required)")
	flag.StringVar(&configFlag, "config", "", "Config path passed as '-c <path>'; enables marker watching")
	flag.BoolVar(&ttyFlag, "tty", term.IsTerminal(int(os.Stdout.Fd())), "Run the fixture on a pseudo-terminal")
	flag.DurationVar(&startupTimeoutFlag, "startup-timeout", 5*time.Second, "How long to wait for the readiness marker")
	flag.DurationVar(&quitAfterFlag, "quit-after", 0, "Send SIGQUIT after this long (0 = never)")
	flag.DurationVar(&reloadEveryFlag, "reload-every", 0, "Send SIGHUP at this interval (0 = never)")
	flag.DurationVar(&waitFlag, "wait", 10*time.Second, "How long to wait for the fixture to exit")
	flag.Parse()

	logLevel := slog.LevelInfo
	if os.Getenv("FAKE_NGINX_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if fixtureFlag == "" {
		fatal("--fixture is required")
	}

	os.Exit(supervise())
}

func supervise() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var args []string
	if configFlag != "" {
		args = []string{"-c", configFlag}
	}

	proc, err := driver.Start(ctx, driver.Options{
		Binary: fixtureFlag,
		Args:   args,
		UsePTY: ttyFlag,
	})
	if err != nil {
		fatal("starting fixture: %v", err)
	}

	if configFlag != "" {
		marker := fixture.MarkerPath(configFlag)
		if err := proc.WaitStarted(marker, startupTimeoutFlag); err != nil {
			fmt.Print(proc.Output())
			fatal("waiting for readiness: %v", err)
		}
		slog.Info("fixture ready", "marker", marker, "pid", proc.Pid())
	}

	// Forward our own termination to the fixture as a graceful quit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var quitCh <-chan time.Time
	if quitAfterFlag > 0 {
		t := time.NewTimer(quitAfterFlag)
		defer t.Stop()
		quitCh = t.C
	}
	var reloadCh <-chan time.Time
	if reloadEveryFlag > 0 {
		t := time.NewTicker(reloadEveryFlag)
		defer t.Stop()
		reloadCh = t.C
	}

	deadline := time.NewTimer(waitFlag)
	defer deadline.Stop()

	for {
		select {
		case <-sigCh:
			slog.Info("forwarding quit to fixture", "pid", proc.Pid())
			if err := proc.Quit(); err != nil {
				fmt.Fprintf(os.Stderr, "nginx-driver: quit: %v\n", err)
			}
		case <-quitCh:
			if err := proc.Quit(); err != nil {
				fmt.Fprintf(os.Stderr, "nginx-driver: quit: %v\n", err)
			}
			quitCh = nil
		case <-reloadCh:
			if err := proc.Reload(); err != nil {
				fmt.Fprintf(os.Stderr, "nginx-driver: reload: %v\n", err)
			}
		case <-proc.Done():
			code, _ := proc.Wait(0)
			fmt.Print(proc.Output())
			slog.Info("fixture exited", "code", code)
			return code
		case <-deadline.C:
			code, err := proc.Stop(2 * time.Second)
			fmt.Print(proc.Output())
			if err != nil {
				fmt.Fprintf(os.Stderr, "nginx-driver: %v\n", err)
				return 1
			}
			return code
		}
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
