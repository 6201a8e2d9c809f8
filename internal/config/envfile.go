package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/google/renameio"
	"github.com/joho/godotenv"
)

// EnvFile is the environment configuration shared with docker compose.
// Every write replaces the whole file atomically so other tooling never reads
// a half-written file.
type EnvFile struct {
	path string
}

func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

func (e *EnvFile) Path() string {
	return e.path
}

// Get returns the value of key and whether a line assigns it. Only that line
// is parsed, so unrelated lines compose accepts but godotenv does not never
// hide the key. When the line is present but unparsable, found is still true.
func (e *EnvFile) Get(key string) (string, bool, error) {
	line, found, err := e.Line(key)
	if err != nil || !found {
		return "", found, err
	}
	values, err := godotenv.Unmarshal(line)
	if err != nil {
		return "", true, fmt.Errorf("failed to parse %s in %s: %w", key, e.path, err)
	}
	return values[key], true, nil
}

// Line returns the last line assigning key exactly as written in the file.
func (e *EnvFile) Line(key string) (string, bool, error) {
	content, err := os.ReadFile(e.path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read env file %s: %w", e.path, err)
	}

	pattern := envLinePattern(key)
	line, found := "", false
	for _, l := range strings.Split(string(content), "\n") {
		if pattern.MatchString(l) {
			line, found = l, true
		}
	}
	return line, found, nil
}

// Set updates key in place when it exists and appends it otherwise. Comments,
// ordering and all other lines are preserved.
func (e *EnvFile) Set(key, value string) error {
	return e.SetLine(key, key+"="+value)
}

// SetLine is like Set but writes line verbatim, so a line saved with Line
// can be put back unchanged.
func (e *EnvFile) SetLine(key, line string) error {
	return e.rewrite(func(content []byte) []byte {
		return setEnvLine(content, key, line)
	})
}

// Unset removes every line assigning key. A missing key is not an error.
func (e *EnvFile) Unset(key string) error {
	return e.rewrite(func(content []byte) []byte {
		pattern := envLinePattern(key)
		lines := strings.Split(string(content), "\n")
		kept := lines[:0]
		for _, line := range lines {
			if !pattern.MatchString(line) {
				kept = append(kept, line)
			}
		}
		return []byte(strings.Join(kept, "\n"))
	})
}

// rewrite applies edit to the file content and replaces the file when the
// content changed, keeping its permissions.
func (e *EnvFile) rewrite(edit func([]byte) []byte) error {
	content, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("failed to read env file %s: %w", e.path, err)
	}

	mode := constants.ModeFileSecret
	if info, err := os.Stat(e.path); err == nil {
		mode = info.Mode().Perm()
	}

	updated := edit(content)
	if bytes.Equal(updated, content) {
		return nil
	}
	if err := renameio.WriteFile(e.path, updated, mode); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", e.path, err)
	}
	return nil
}

// ReadTag returns the release tag stored under key, or "unknown" when the file
// or the key is missing or unreadable.
func (e *EnvFile) ReadTag(key string) string {
	value, ok, err := e.Get(key)
	if err != nil || !ok || strings.TrimSpace(value) == "" {
		return constants.UnknownTag
	}
	return strings.TrimSpace(value)
}

// Exists reports whether the env file is present.
func (e *EnvFile) Exists() (bool, error) {
	_, err := os.Stat(e.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func setEnvLine(content []byte, key, newLine string) []byte {
	pattern := envLinePattern(key)

	lines := strings.Split(string(content), "\n")
	found := false
	for i, line := range lines {
		if pattern.MatchString(line) {
			lines[i] = newLine
			found = true
		}
	}

	if !found {
		// Split leaves one empty element after a trailing newline.
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		lines = append(lines, newLine, "")
	}
	return []byte(strings.Join(lines, "\n"))
}

func envLinePattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*(export\s+)?` + regexp.QuoteMeta(key) + `\s*=`)
}
