package fixture

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// MarkerName is the readiness marker file written next to the
	// config path once signal handling is in place.
	MarkerName = "nginx-started"
	// MarkerContent is what an external watcher reads back.
	MarkerContent = "started!"
)

// MarkerPath returns where the readiness marker for the given config
// path lives: the config file's directory plus MarkerName.
func MarkerPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), MarkerName)
}

func writeMarker(configPath string) (string, error) {
	if configPath == "" {
		return "", fmt.Errorf("no config path to derive marker directory from")
	}
	path := MarkerPath(configPath)
	if err := os.WriteFile(path, []byte(MarkerContent), 0o644); err != nil {
		return "", fmt.Errorf("write marker: %w", err)
	}
	return path, nil
}
