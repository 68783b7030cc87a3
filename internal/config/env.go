package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads the nearest .env (up to five parent directories)
// and then ~/.repolens/.env. godotenv never overrides variables that
// are already set, so the real environment always wins.
func loadEnvFiles() []string {
	var loaded []string

	if path, ok := findEnvFile(); ok {
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".repolens", ".env")
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				loaded = append(loaded, path)
			}
		}
	}

	return loaded
}

// findEnvFile searches for .env in the current and parent directories
func findEnvFile() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	searchPath := cwd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(searchPath, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}

		parent := filepath.Dir(searchPath)
		if parent == searchPath {
			break
		}
		searchPath = parent
	}

	return "", false
}
