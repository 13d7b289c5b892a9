// fake-nginx-basic - minimal nginx stand-in
//
// The earliest fixture variant: no flag handling, no reload, no marker
// file. Prints its arguments, waits for SIGQUIT, drains, exits 0. With
// no signal within the wait timeout it exits nonzero.
package main

import (
	"os"

	"github.com/mbrock/fakenginx/internal/fixture"
)

func main() {
	os.Exit(fixture.Run(fixture.EnvConfig(fixture.Config{}), os.Args))
}
