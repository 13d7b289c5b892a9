// fake-nginx-reload - nginx stand-in with reload support
//
// Like fake-nginx but without the readiness marker file: `-v` and `-t`
// short-circuit, SIGQUIT drains then exits 0, SIGHUP is acknowledged
// without terminating.
package main

import (
	"os"

	"github.com/mbrock/fakenginx/internal/fixture"
)

func main() {
	cfg := fixture.EnvConfig(fixture.Config{
		FlagsEnabled:  true,
		ReloadEnabled: true,
	})
	os.Exit(fixture.Run(cfg, os.Args))
}
