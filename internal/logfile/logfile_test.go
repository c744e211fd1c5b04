package logfile

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFormatter(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	entry := &logrus.Entry{
		Time:    ts,
		Level:   logrus.WarnLevel,
		Message: "registration token revoked",
	}

	out, err := (lineFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14T09:26:53Z [WARNING] registration token revoked\n", string(out))
}
