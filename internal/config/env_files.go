package config

import (
	"path/filepath"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env from the working directory and the config directory
// into the process environment. Missing files are ignored.
func LoadEnvFiles() {
	_ = godotenv.Load(constants.ConfigEnvFileName)

	if configDir, err := ConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configDir, constants.ConfigEnvFileName))
	}
}
