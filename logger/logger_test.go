package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptionsIsStdoutInfo(t *testing.T) {
	t.Parallel()
	opt := DefaultOptions()
	assert.True(t, opt.Stdout)
	assert.Equal(t, LevelInfo, opt.Level)
}

func TestNewConsoleLoggerDoesNotPanic(t *testing.T) {
	t.Parallel()
	l := New(Options{Stdout: true, Level: LevelDebug})
	l.Debugf("probe %d", 1)
	l.Warnf("probe %s", "two")
}

func TestNewFileLoggerRotatesThroughLumberjack(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l := New(Options{Filename: filepath.Join(dir, "das2.log"), Level: LevelInfo, MaxSize: 1})
	l.Infof("hello %s", "world")

	_, err := os.Stat(filepath.Join(dir, "das2.log"))
	assert.NoError(t, err)
}

func TestToZapLevelUnknownDefaultsToInfo(t *testing.T) {
	t.Parallel()
	assert.Equal(t, toZapLevel("info"), toZapLevel("bogus"))
}

func TestOrDefault(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 100, orDefault(0, 100))
	assert.Equal(t, 5, orDefault(5, 100))
}
