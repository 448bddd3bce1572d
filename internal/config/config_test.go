package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, CompensationHybrid, cfg.Compensation)
	assert.Equal(t, BoundsFromAnnotation, cfg.LoopBounds)
	assert.Equal(t, 10000, cfg.MaxIterations)
	assert.Equal(t, int64(4095), cfg.ImmediateWidth)
	assert.NotNil(t, cfg.Logger())
}

// TestParse 测试部分字段覆盖默认值
func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[singlepath]
compensation = "counter"
dual_issue = true

[singlepath.default_loop_bound]
min = 2
max = 5
`))
	require.NoError(t, err)
	assert.Equal(t, CompensationCounter, cfg.Compensation)
	assert.True(t, cfg.DualIssue)
	assert.Equal(t, Bound{Min: 2, Max: 5}, cfg.DefaultLoopBound)
	assert.False(t, cfg.DefaultLoopBound.Constant())
	assert.Equal(t, DefaultCompensationFunction, cfg.CompensationFunction)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("[singlepath]\ncompensation = \"magic\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("[singlepath]\nloop_bounds = \"guess\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("[singlepath]\nlog_level = \"loud\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("[singlepath\n"))
	assert.Error(t, err)
}

// TestSaveLoad 测试保存后重新加载
func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := DefaultConfig()
	cfg.Compensation = CompensationOpposite
	cfg.Workers = 3
	cfg.DefaultLoopBound = Bound{Min: 4, Max: 4}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CompensationOpposite, loaded.Compensation)
	assert.Equal(t, 3, loaded.Workers)
	assert.True(t, loaded.DefaultLoopBound.Constant())

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	l, err := cfg.NewLogger(true)
	require.NoError(t, err)
	cfg.WithLogger(l)
	assert.Same(t, l, cfg.Logger())
	assert.Same(t, l, cfg.Clone().Logger())
}
