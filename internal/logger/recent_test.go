package logger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecent_KeepsLastEntries(t *testing.T) {
	recent := NewRecent(3)
	l := recent.Attach(zap.NewNop())

	l.Debug("ignorado")
	for i := 0; i < 5; i++ {
		l.Info(fmt.Sprintf("msg %d", i), zap.Int("n", i))
	}

	entries := recent.Entries()
	require.Len(t, entries, 3)
	assert.Contains(t, entries[0], "INFO msg 2 n=2")
	assert.Contains(t, entries[2], "msg 4")
}

func TestRecent_Entries_IsCopy(t *testing.T) {
	recent := NewRecent(0)
	recent.Attach(zap.NewNop()).Warn("atenção")

	entries := recent.Entries()
	entries[0] = "alterado"
	assert.Contains(t, recent.Entries()[0], "WARN atenção")
}
