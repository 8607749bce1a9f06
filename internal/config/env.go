package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFileNames are tried in order in the configuration directory. Every file that exists is
// loaded; variables already present in the process environment are never overwritten.
var envFileNames = []string{".env", ".env.local"}

func loadEnvFiles(dir string) error {
	loaded := 0
	for _, name := range envFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Debug("Loaded environment file", "path", p)
		loaded++
	}
	if loaded == 0 {
		return errors.New("no .env file found")
	}
	return nil
}
