package logfile

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const logDirectory = ".paw-wizard/logs"

// Open returns a logger appending `<timestamp> [<level>] <message>` lines to
// one file per workflow (e.g. "core", "session-host"). The file is never
// rotated or truncated.
func Open(workflow string) (*logrus.Logger, func() error, error) {
	dirname, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	dirname = path.Join(dirname, logDirectory)
	if err := os.MkdirAll(dirname, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path.Join(dirname, workflow+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&lineFormatter{})
	return logger, f.Close, nil
}

type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("%s [%s] %s\n",
		entry.Time.Format(time.RFC3339),
		strings.ToUpper(entry.Level.String()),
		entry.Message)), nil
}
