package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)
	log.Debugw("hidden", "n", 1)
	log.Infow("shown", "reg", "PowerControl")
	require.NoError(t, log.Sync())

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
	require.Contains(t, buf.String(), "PowerControl")

	buf.Reset()
	log = NewWithWriter(&buf, true)
	log.Debugw("hidden")
	require.Contains(t, buf.String(), "hidden")
}
