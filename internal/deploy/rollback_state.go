package deploy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/google/renameio"
)

// RollbackState is the file that records the release that was live before a
// rollout started. Its presence at startup means an earlier run never reached
// a terminal state.
type RollbackState struct {
	path string
}

func NewRollbackState(path string) *RollbackState {
	return &RollbackState{path: path}
}

func (s *RollbackState) Path() string {
	return s.path
}

// Write replaces the file with a single PREVIOUS_TAG=<tag> line, atomically.
func (s *RollbackState) Write(previousTag string) error {
	content := fmt.Sprintf("%s=%s\n", constants.RollbackStateKey, previousTag)
	if err := renameio.WriteFile(s.path, []byte(content), constants.ModeFileDefault); err != nil {
		return fmt.Errorf("failed to write rollback state: %w", err)
	}
	return nil
}

// Read returns the recorded tag and whether the file exists.
func (s *RollbackState) Read() (string, bool, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read rollback state: %w", err)
	}

	prefix := constants.RollbackStateKey + "="
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if tag, found := strings.CutPrefix(line, prefix); found {
			return strings.TrimSpace(tag), true, nil
		}
	}
	return "", true, nil
}

// Remove deletes the file. A missing file is not an error.
func (s *RollbackState) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove rollback state: %w", err)
	}
	return nil
}
