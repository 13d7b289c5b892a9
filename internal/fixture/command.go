package fixture

// Command is the operation requested on the fixture's command line,
// resolved once at entry instead of re-comparing argument strings.
type Command int

const (
	// CommandRun is the default: start up and wait for signals.
	CommandRun Command = iota
	// CommandVersion answers a `-v` version query and exits.
	CommandVersion
	// CommandValidate answers a `-t` config-check query and exits.
	CommandValidate
)

// Invocation is a parsed fixture command line.
type Invocation struct {
	Command Command

	// ConfigPath is the second argument when present. nginx is invoked
	// as `nginx -c /path/to/nginx.conf`, so this is the config file the
	// readiness marker directory is derived from.
	ConfigPath string

	// Args are the raw arguments, including the program name.
	Args []string
}

// ParseArgs resolves a full argument vector (os.Args shaped) into an
// Invocation. Missing arguments parse as a plain run with no config
// path rather than crashing, so fixtures degrade gracefully when a
// test drives them with fewer arguments than real nginx would get.
func ParseArgs(args []string) Invocation {
	inv := Invocation{Command: CommandRun, Args: args}

	if len(args) < 2 {
		return inv
	}

	switch args[1] {
	case "-v":
		inv.Command = CommandVersion
	case "-t":
		inv.Command = CommandValidate
	}

	if len(args) >= 3 {
		inv.ConfigPath = args[2]
	}
	return inv
}
