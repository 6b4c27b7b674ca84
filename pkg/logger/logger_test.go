package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/settings"
)

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagekv.log")
	l, err := New(settings.Logger{LogLevel: "info", FileLogName: path, MaxSize: 1})
	require.NoError(t, err)

	l.Info("opened", zap.String("component", "store"))
	l.Debug("filtered")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"opened"`)
	assert.NotContains(t, string(raw), "filtered")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(settings.Logger{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestComponent_NilParent(t *testing.T) {
	l := Component(nil, "cache")
	require.NotNil(t, l)
	l.Info("discarded")
}
