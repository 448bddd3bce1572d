package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

func loopFunction(bound *config.Bound) *Function {
	return &Function{
		Name: "loop",
		Root: true,
		Blocks: []*Block{
			{Name: "entry", Succs: []string{"header"}},
			{Name: "header", Succs: []string{"body", "exit"}, Bound: bound},
			{Name: "body", Succs: []string{"header"}, Instrs: []*Instr{
				{Op: "lwc", Writes: []string{"r1"}, Reads: []string{"r2"}, Load: true, Latency: 1},
				{Op: "swc", Reads: []string{"r1", "r2"}, Store: true},
				{Op: "add", Writes: []string{"r3"}, Reads: []string{"r1", "r0"}},
			}},
			{Name: "exit"},
		},
	}
}

func TestBuild(t *testing.T) {
	fn, err := loopFunction(&config.Bound{Min: 2, Max: 4}).Build()
	require.NoError(t, err)
	assert.Equal(t, 4, fn.Len())
	assert.Equal(t, cfg.BlockID(0), fn.Entry)
	assert.Equal(t, "header", fn.NameOf(1))
	require.Equal(t, 1, fn.Loops.Len())
	assert.Equal(t, cfg.BlockID(1), fn.Loops.Loop(0).Header)
}

func TestBuildUnknownSuccessor(t *testing.T) {
	f := &Function{Name: "bad", Blocks: []*Block{{Name: "a", Succs: []string{"nowhere"}}}}
	_, err := f.Build()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0106))
}

func TestBuildEmpty(t *testing.T) {
	_, err := (&Function{Name: "empty"}).Build()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0104))
}

func TestBounds(t *testing.T) {
	t.Run("annotated", func(t *testing.T) {
		f := loopFunction(&config.Bound{Min: 2, Max: 4})
		fn, err := f.Build()
		require.NoError(t, err)
		bounds, err := f.Bounds(fn, config.DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, map[cfg.BlockID]config.Bound{1: {Min: 2, Max: 4}}, bounds)
	})

	t.Run("missing", func(t *testing.T) {
		f := loopFunction(nil)
		fn, err := f.Build()
		require.NoError(t, err)
		_, err = f.Bounds(fn, config.DefaultConfig())
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.SP0101))
		assert.Contains(t, err.Error(), "header")
	})

	t.Run("default", func(t *testing.T) {
		f := loopFunction(nil)
		fn, err := f.Build()
		require.NoError(t, err)
		c := config.DefaultConfig()
		c.LoopBounds = config.BoundsFromDefault
		c.DefaultLoopBound = config.Bound{Min: 3, Max: 3}
		bounds, err := f.Bounds(fn, c)
		require.NoError(t, err)
		assert.Equal(t, config.Bound{Min: 3, Max: 3}, bounds[1])
	})

	t.Run("inverted", func(t *testing.T) {
		f := loopFunction(&config.Bound{Min: 5, Max: 1})
		fn, err := f.Build()
		require.NoError(t, err)
		_, err = f.Bounds(fn, config.DefaultConfig())
		assert.True(t, errors.HasCode(err, errors.SP0108))
	})
}

func TestAccesses(t *testing.T) {
	f := loopFunction(nil)
	assert.Equal(t, int64(0), f.Accesses(0))
	assert.Equal(t, int64(2), f.Accesses(2))
	seven, zero := int64(7), int64(0)
	f.Blocks[0].Accesses = &seven
	assert.Equal(t, int64(7), f.Accesses(0))
	// 显式的 0 覆盖按指令统计的次数
	f.Blocks[2].Accesses = &zero
	assert.Equal(t, int64(0), f.Accesses(2))
	assert.Equal(t, int64(0), f.Accesses(cfg.NoBlock))
}

func TestInstrAttributes(t *testing.T) {
	load := &Instr{Op: "lwc", Load: true}
	assert.True(t, load.Poisons())
	assert.True(t, load.MemoryAccess())
	assert.False(t, load.ConditionalBranch())

	ret := &Instr{Op: "ret", Return: true}
	assert.True(t, ret.MemoryAccess())
	assert.True(t, ret.ConditionalBranch())
	assert.False(t, ret.VariableLatency())

	assert.True(t, IsConstant("r0"))
	assert.True(t, IsConstant("p0"))
	assert.False(t, IsConstant("r1"))

	add := &Instr{Op: "add", Writes: []string{"r3"}, Reads: []string{"r1", "r2"}}
	assert.Equal(t, "r3 = add r1, r2", add.String())
}

func TestValidate(t *testing.T) {
	m := &Module{Name: "m", Functions: []*Function{{Name: "a"}, {Name: "b"}}}
	require.NoError(t, m.Validate())
	assert.NotNil(t, m.Function("b"))
	assert.Nil(t, m.Function("c"))

	m.Functions = append(m.Functions, &Function{Name: "a"})
	assert.True(t, errors.HasCode(m.Validate(), errors.SP0108))

	m.Functions = []*Function{{Name: "x", Root: true, PseudoRoot: true}}
	assert.True(t, errors.HasCode(m.Validate(), errors.SP0108))

	negative := int64(-1)
	m.Functions = []*Function{{Name: "y", Blocks: []*Block{{Name: "entry", Accesses: &negative}}}}
	assert.True(t, errors.HasCode(m.Validate(), errors.SP0108))
}
