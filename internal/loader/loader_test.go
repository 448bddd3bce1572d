package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

const yamlModule = `
name: demo
functions:
  - name: main
    root: true
    blocks:
      - name: entry
        succs: [header]
      - name: header
        succs: [body, exit]
        bound: {min: 2, max: 4}
      - name: body
        succs: [header]
        instrs:
          - {op: lwc, writes: [r1], reads: [r2], load: true, latency: 1}
          - {op: add, writes: [r3], reads: [r1, r0], negated: true}
      - name: exit
        instrs:
          - {op: ret, return: true, delayed: true}
`

const tomlModule = `
[[functions]]
name = "main"
pseudo_root = true

[[functions.blocks]]
name = "entry"
succs = ["exit"]
accesses = 3

[[functions.blocks.instrs]]
op = "swc"
reads = ["r1", "r2"]
store = true

[[functions.blocks]]
name = "exit"
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := write(t, t.TempDir(), "demo.yaml", yamlModule)
	mod, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", mod.Name)
	require.Len(t, mod.Functions, 1)
	f := mod.Functions[0]
	assert.True(t, f.Root)
	require.Len(t, f.Blocks, 4)
	assert.Equal(t, &config.Bound{Min: 2, Max: 4}, f.Blocks[1].Bound)

	body := f.Blocks[2]
	require.Len(t, body.Instrs, 2)
	assert.True(t, body.Instrs[0].Load)
	assert.Equal(t, 1, body.Instrs[0].Latency)
	assert.True(t, body.Instrs[1].Negated)
	assert.True(t, f.Blocks[3].Instrs[0].Delayed)

	fn, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, fn.Loops.Len())
}

func TestLoadTOML(t *testing.T) {
	path := write(t, t.TempDir(), "counter.toml", tomlModule)
	mod, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "counter", mod.Name)
	f := mod.Functions[0]
	assert.True(t, f.PseudoRoot)
	assert.True(t, f.RootLike())
	assert.Equal(t, int64(3), f.Accesses(0))
	assert.Equal(t, []string{"exit"}, f.Blocks[0].Succs)
	assert.True(t, f.Blocks[0].Instrs[0].Store)
}

func TestUnknownField(t *testing.T) {
	_, err := Decode([]byte("functions:\n  - name: f\n    colour: red\n"), FormatYAML)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0108))

	_, err = Decode([]byte("[[functions]]\nname = \"f\"\ncolour = \"red\"\n"), FormatTOML)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0108))
}

func TestExplicitZeroAccesses(t *testing.T) {
	mod, err := Decode([]byte(`
functions:
  - name: f
    blocks:
      - name: entry
        accesses: 0
        instrs:
          - {op: lwc, writes: [r1], reads: [r2], load: true}
`), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, int64(0), mod.Functions[0].Accesses(0))
}

func TestDuplicateFunction(t *testing.T) {
	_, err := Decode([]byte("functions:\n  - name: f\n  - name: f\n"), FormatYAML)
	assert.True(t, errors.HasCode(err, errors.SP0108))
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("a/b.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatOf("a/b.json")
	assert.Error(t, err)
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "kernels")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	modPath := write(t, nested, "m.yaml", yamlModule)

	_, err := FindConfig(modPath)
	assert.Error(t, err)
	c, err := LoadConfig("", modPath)
	require.NoError(t, err)
	assert.Equal(t, config.CompensationHybrid, c.Compensation)

	cfgPath := write(t, root, config.ConfigFileName, "[singlepath]\ncompensation = \"counter\"\n")
	found, err := FindConfig(modPath)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, found)

	c, err = LoadConfig("", modPath)
	require.NoError(t, err)
	assert.Equal(t, config.CompensationCounter, c.Compensation)
}
