package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ameistad/deployctl/internal/constants"
)

// ConfigDir returns the user-level deployctl configuration directory.
// DEPLOYCTL_CONFIG_DIR overrides the default ~/.config/deployctl.
func ConfigDir() (string, error) {
	if envPath, ok := os.LookupEnv(constants.EnvVarConfigDir); ok && envPath != "" {
		if strings.HasPrefix(envPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			envPath = filepath.Join(home, envPath[2:])
		}
		return envPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "deployctl"), nil
}

// FindConfigFile looks for deployctl.{yaml,yml,json,toml} in deployDir, then in
// ConfigDir. It returns "" when no file exists.
func FindConfigFile(deployDir string) (string, error) {
	dirs := []string{}
	if deployDir != "" {
		dirs = append(dirs, deployDir)
	}
	if configDir, err := ConfigDir(); err == nil {
		dirs = append(dirs, configDir)
	}

	for _, dir := range dirs {
		for _, ext := range constants.SupportedConfigExtensions {
			candidate := filepath.Join(dir, constants.ConfigFileBaseName+ext)
			_, err := os.Stat(candidate)
			if err == nil {
				return candidate, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return "", err
			}
		}
	}
	return "", nil
}
