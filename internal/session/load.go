package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/pawops/paw-wizard/internal/message"
)

// Load reads the record from the previous run. A missing file returns nil, and
// a malformed file degrades to nil with a warning: a broken state file must
// never block a fresh run.
func Load() (*Record, error) {
	dirname, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	rec, err := loadFrom(path.Join(dirname, stateFileDirectory, stateFileName))
	if err != nil {
		message.Warning("Previous configuration could not be parsed, starting fresh: %v", err)
		return nil, nil
	}
	return rec, nil
}

func loadFrom(filename string) (*Record, error) {
	stateFile, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	// Unknown fields are ignored and missing fields stay zero so that old and
	// new wizard versions can share a state file.
	var rec Record
	if err := json.Unmarshal(stateFile, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	return &rec, nil
}
