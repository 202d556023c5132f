//go:build prod

package database

import (
	"log/slog"
	"os"
	"path/filepath"
)

// GetDefaultDBPath returns the database path for production mode.
// In production, the database is stored in the user's config directory.
func GetDefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Warn("failed to get user config dir, using fallback", slog.Any("error", err))
		return "discussdraft.db"
	}

	appDir := filepath.Join(configDir, "discussdraft")

	err = os.MkdirAll(appDir, 0755)
	if err != nil {
		slog.Warn("failed to create app config dir, using fallback", slog.Any("error", err))
		return "discussdraft.db"
	}

	return filepath.Join(appDir, "discussdraft.db")
}

func IsDevelopment() bool {
	return false
}
