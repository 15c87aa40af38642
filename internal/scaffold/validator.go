package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/trialrun/internal/config"
)

// CheckExisting returns an error if dir already holds a trialrun.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s exists and is a directory", path)
	}

	return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'trialrun init --force' to replace it (recorded data is kept)", config.DefaultPath)
}
