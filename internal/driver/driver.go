// Package driver runs a fake-nginx fixture the way its supervising
// parent would: spawn the binary, watch for the readiness marker,
// deliver lifecycle signals, and collect output and exit status.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// Options configures a supervised fixture process.
type Options struct {
	// Binary is the fixture executable to run.
	Binary string
	// Args are passed after the binary name, nginx style
	// (e.g. "-c", "/tmp/dir/nginx.conf").
	Args []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env entries are appended to the parent environment.
	Env []string
	// UsePTY runs the child on a pseudo-terminal so terminal-oriented
	// fixtures stream output unbuffered.
	UsePTY bool
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Process is a running (or exited) supervised fixture.
type Process struct {
	log  *slog.Logger
	cmd  *exec.Cmd
	ptmx *os.File

	output lockedBuffer

	done     chan struct{}
	exitCode int
}

// Start launches the fixture. The context cancels the child outright;
// use Quit for the graceful path.
func Start(ctx context.Context, opts Options) (*Process, error) {
	if opts.Binary == "" {
		return nil, fmt.Errorf("no fixture binary given")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	cmd := exec.CommandContext(ctx, opts.Binary, opts.Args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	p := &Process{
		log:  log,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	if opts.UsePTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, fmt.Errorf("start %s on pty: %w", opts.Binary, err)
		}
		p.ptmx = ptmx
		go p.drainPTY()
	} else {
		// Give the child its own process group so signals we send are
		// not confused with our own terminal's.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Stdout = &p.output
		cmd.Stderr = &p.output
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", opts.Binary, err)
		}
	}

	log.Debug("fixture started", "binary", opts.Binary, "pid", cmd.Process.Pid, "pty", opts.UsePTY)
	go p.waitForExit()
	return p, nil
}

// Pid returns the child's process ID, or 0 if it never started.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Signal delivers sig to the child.
func (p *Process) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return fmt.Errorf("process not running")
	}
	p.log.Debug("sending signal", "signal", sig, "pid", p.cmd.Process.Pid)
	return p.cmd.Process.Signal(sig)
}

// Quit asks the child to shut down gracefully.
func (p *Process) Quit() error {
	return p.Signal(syscall.SIGQUIT)
}

// Reload asks the child to reload its configuration.
func (p *Process) Reload() error {
	return p.Signal(syscall.SIGHUP)
}

// WaitStarted polls until the file at markerPath exists, the child
// exits, or the timeout passes.
func (p *Process) WaitStarted(markerPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(markerPath); err == nil {
			return nil
		}
		select {
		case <-p.done:
			return fmt.Errorf("fixture exited before writing %s (status %d)", markerPath, p.exitCode)
		case <-time.After(10 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no marker at %s after %s", markerPath, timeout)
		}
	}
}

// Wait blocks until the child exits or the timeout passes. It returns
// the child's exit code.
func (p *Process) Wait(timeout time.Duration) (int, error) {
	select {
	case <-p.done:
		return p.exitCode, nil
	default:
	}
	select {
	case <-p.done:
		return p.exitCode, nil
	case <-time.After(timeout):
		return 0, fmt.Errorf("fixture still running after %s", timeout)
	}
}

// Stop requests a graceful shutdown and waits for it, killing the
// child if it does not exit in time.
func (p *Process) Stop(timeout time.Duration) (int, error) {
	select {
	case <-p.done:
		return p.exitCode, nil
	default:
	}

	if err := p.Quit(); err != nil {
		return 0, err
	}
	code, err := p.Wait(timeout)
	if err == nil {
		return code, nil
	}

	p.log.Debug("fixture ignored SIGQUIT, killing", "pid", p.Pid())
	_ = p.cmd.Process.Kill()
	<-p.done
	return p.exitCode, fmt.Errorf("killed after %s without graceful exit", timeout)
}

// Output returns everything the child has written so far.
func (p *Process) Output() string {
	return p.output.String()
}

// Done is closed once the child has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) drainPTY() {
	// Reading the master returns EIO once the child side closes; that
	// is the normal end of stream, not an error worth reporting.
	_, _ = io.Copy(&p.output, p.ptmx)
}

func (p *Process) waitForExit() {
	err := p.cmd.Wait()
	if p.ptmx != nil {
		p.ptmx.Close()
	}

	code := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		} else {
			code = 1
		}
	}

	p.exitCode = code
	p.log.Debug("fixture exited", "pid", p.Pid(), "code", code, "err", err)
	close(p.done)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(data)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
