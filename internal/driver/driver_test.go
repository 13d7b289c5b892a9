package driver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/mbrock/fakenginx/internal/fixture"
)

// TestMain doubles as the fixture binary: when FAKE_NGINX_HELPER is
// set, the test binary behaves like the requested fixture variant
// instead of running tests. Driver tests re-exec os.Args[0] with that
// variable set, so no prebuilt binaries are needed.
func TestMain(m *testing.M) {
	switch os.Getenv("FAKE_NGINX_HELPER") {
	case "full":
		os.Exit(fixture.Run(fixture.EnvConfig(fixture.Config{
			FlagsEnabled:  true,
			ReloadEnabled: true,
			WriteMarker:   true,
		}), os.Args))
	case "basic":
		os.Exit(fixture.Run(fixture.EnvConfig(fixture.Config{}), os.Args))
	case "deaf":
		// Swallows SIGQUIT and never exits on its own; exercises the
		// driver's kill path.
		signal.Ignore(syscall.SIGQUIT)
		time.Sleep(30 * time.Second)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func startHelper(t *testing.T, variant string, args, env []string, usePTY bool) *Process {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	p, err := Start(ctx, Options{
		Binary: os.Args[0],
		Args:   args,
		Env:    append([]string{"FAKE_NGINX_HELPER=" + variant}, env...),
		UsePTY: usePTY,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("starting helper: %v", err)
	}
	t.Cleanup(func() {
		_, _ = p.Stop(time.Second)
	})
	return p
}

func confInTempDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "nginx.conf")
}

func TestQuitAfterStartup(t *testing.T) {
	conf := confInTempDir(t)
	p := startHelper(t, "full", []string{"-c", conf}, []string{"FAKE_NGINX_DRAIN=10ms"}, false)

	if err := p.WaitStarted(fixture.MarkerPath(conf), 3*time.Second); err != nil {
		t.Fatalf("WaitStarted: %v", err)
	}
	if err := p.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}

	code, err := p.Wait(3 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(p.Output(), "Received sigquit, doing graceful shutdown") {
		t.Errorf("output missing shutdown line: %q", p.Output())
	}
}

func TestExitsNonzeroWithoutSignal(t *testing.T) {
	p := startHelper(t, "basic", []string{"-c", "unused.conf"}, []string{"FAKE_NGINX_TIMEOUT=100ms"}, false)

	code, err := p.Wait(3 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code == 0 {
		t.Error("exit code = 0, want nonzero after timeout")
	}
	if !strings.Contains(p.Output(), "of nada") {
		t.Errorf("output missing timeout line: %q", p.Output())
	}
}

func TestVersionQueryExitsImmediately(t *testing.T) {
	p := startHelper(t, "full", []string{"-v"}, nil, false)

	code, err := p.Wait(3 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(p.Output(), "Asked for version") {
		t.Errorf("output missing version line: %q", p.Output())
	}
}

func TestReloadKeepsFixtureRunning(t *testing.T) {
	conf := confInTempDir(t)
	p := startHelper(t, "full", []string{"-c", conf},
		[]string{"FAKE_NGINX_DRAIN=10ms", "FAKE_NGINX_TIMEOUT=10s"}, false)

	if err := p.WaitStarted(fixture.MarkerPath(conf), 3*time.Second); err != nil {
		t.Fatalf("WaitStarted: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := p.Reload(); err != nil {
			t.Fatalf("Reload: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if _, err := p.Wait(200 * time.Millisecond); err == nil {
		t.Fatal("fixture exited on SIGHUP")
	}

	if err := p.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	code, err := p.Wait(3 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(p.Output(), "Received sighup, ignoring") {
		t.Errorf("output missing reload line: %q", p.Output())
	}
}

func TestStopKillsDeafFixture(t *testing.T) {
	p := startHelper(t, "deaf", nil, nil, false)

	// Give the child a moment to install its SIGQUIT disposition.
	time.Sleep(100 * time.Millisecond)

	if _, err := p.Stop(300 * time.Millisecond); err == nil {
		t.Fatal("Stop succeeded against a fixture that ignores SIGQUIT")
	}
	select {
	case <-p.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("child not reaped after kill")
	}
}

func TestWaitStartedReportsEarlyExit(t *testing.T) {
	// Marker directory does not exist, so the fixture fails at startup
	// and never writes the marker.
	conf := "/nonexistent-dir/sub/nginx.conf"
	p := startHelper(t, "full", []string{"-c", conf}, nil, false)

	err := p.WaitStarted(fixture.MarkerPath(conf), 3*time.Second)
	if err == nil {
		t.Fatal("WaitStarted succeeded without a marker")
	}
	if !strings.Contains(err.Error(), "exited") {
		t.Errorf("error should mention the early exit: %v", err)
	}
}

func TestPTYCapturesOutput(t *testing.T) {
	p := startHelper(t, "full", []string{"-v"}, nil, true)

	code, err := p.Wait(3 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	// PTY output arrives through the master read loop; give the drain
	// goroutine a moment after exit.
	deadline := time.Now().Add(time.Second)
	for !strings.Contains(p.Output(), "Asked for version") {
		if time.Now().After(deadline) {
			t.Fatalf("pty output missing version line: %q", p.Output())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartUnknownBinaryFails(t *testing.T) {
	_, err := Start(context.Background(), Options{
		Binary: "/nonexistent/fake-nginx",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err == nil {
		t.Fatal("Start succeeded for a missing binary")
	}
}

func TestStartRequiresBinary(t *testing.T) {
	_, err := Start(context.Background(), Options{})
	if err == nil {
		t.Fatal("Start succeeded with no binary")
	}
}
