package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggersWritesCategoryFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	prev := []*zap.Logger{ErrorLogger, AuditLogger, RequestLogger, SecurityLogger, SystemLogger, ContextLogger}
	t.Cleanup(func() {
		ErrorLogger, AuditLogger, RequestLogger = prev[0], prev[1], prev[2]
		SecurityLogger, SystemLogger, ContextLogger = prev[3], prev[4], prev[5]
	})

	require.NoError(t, InitLoggers(dir))
	AuditLogger.Info("board created", zap.String("board_id", "abc"))
	SyncLoggers()

	for _, name := range []string{"errors", "audit", "request", "security", "system", "context"} {
		_, err := os.Stat(filepath.Join(dir, name+".log"))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"board_id":"abc"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestLoggersAreUsableBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		zap.NewNop().Info("x")
		ErrorLogger.Error("nothing happens")
	})
}
