package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
)

func Save(rec *Record) error {
	dirname, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}
	return saveTo(path.Join(dirname, stateFileDirectory, stateFileName), rec)
}

func saveTo(filename string, rec *Record) error {
	if err := os.MkdirAll(path.Dir(filename), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create state file directory: %w", err)
	}

	stateFile, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(filename, stateFile, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}
