package cmd

import (
	"errors"
	"os"

	"github.com/royalerun/royale/internal/config"
)

// loadConfig loads the coordinator settings file at path, falling back to
// defaults when the file does not exist, since the settings file is
// optional (§10).
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Load(path)
}
