package das2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	opt := DefaultOptions()
	assert.False(t, opt.Strict)
	assert.Equal(t, 80, opt.PeekSize)
}

func TestLoadOptionsFromYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "das2.yml")
	assert.NoError(t, os.WriteFile(path, []byte("strict: true\npeek_size: 40\n"), 0o644))

	opt, err := LoadOptions(path)
	assert.NoError(t, err)
	assert.True(t, opt.Strict)
	assert.Equal(t, 40, opt.PeekSize)
}

func TestLoadOptionsFillsZeroPeekSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "das2.yml")
	assert.NoError(t, os.WriteFile(path, []byte("strict: false\n"), 0o644))

	opt, err := LoadOptions(path)
	assert.NoError(t, err)
	assert.Equal(t, 80, opt.PeekSize)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("DAS2_STRICT", "true")
	t.Setenv("DAS2_PEEK_SIZE", "16")

	opt := OptionsFromEnv()
	assert.True(t, opt.Strict)
	assert.Equal(t, 16, opt.PeekSize)
}

func TestOptionsFromEnvFallsBackOnUnparsable(t *testing.T) {
	t.Setenv("DAS2_STRICT", "not-a-bool")
	t.Setenv("DAS2_PEEK_SIZE", "not-a-number")

	opt := OptionsFromEnv()
	assert.Equal(t, DefaultOptions(), opt)
}
