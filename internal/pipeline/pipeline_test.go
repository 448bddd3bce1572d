package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/memaccess"
	"github.com/tangzhangming/singlepath/internal/module"
	"github.com/tangzhangming/singlepath/internal/scheduler"
)

func load(dst, addr string) *module.Instr {
	return &module.Instr{Op: "lwc", Writes: []string{dst}, Reads: []string{addr}, Load: true, Latency: 1}
}

func add(dst string, srcs ...string) *module.Instr {
	return &module.Instr{Op: "add", Writes: []string{dst}, Reads: srcs}
}

// diamond entry -> {then, else} -> exit
func diamond(name string, thenLoads, elseLoads int) *module.Function {
	loads := func(n int) []*module.Instr {
		var out []*module.Instr
		for i := 0; i < n; i++ {
			out = append(out, load("r1", "r2"))
		}
		return out
	}
	return &module.Function{
		Name: name,
		Root: true,
		Blocks: []*module.Block{
			{Name: "entry", Succs: []string{"then", "else"}, Instrs: []*module.Instr{
				{Op: "cmp", Writes: []string{"p1"}, Reads: []string{"r3", "r0"}},
			}},
			{Name: "then", Succs: []string{"exit"}, Instrs: loads(thenLoads)},
			{Name: "else", Succs: []string{"exit"}, Instrs: loads(elseLoads)},
			{Name: "exit", Instrs: []*module.Instr{{Op: "ret", Return: true, Delayed: true}}},
		},
	}
}

func testConfig() *config.Config {
	c := config.DefaultConfig()
	c.Workers = 2
	return c
}

func TestStandardPipelineOrder(t *testing.T) {
	assert.Equal(t, []string{
		"loops",
		"bounded-dominators",
		"cl-dominators",
		"control-dependence",
		"equivalence-classes",
		"compensation",
		"schedule",
	}, CreateStandardPipeline().Passes())
}

func TestBalancedDiamond(t *testing.T) {
	u, err := RunFunction(diamond("balanced", 1, 1), CreateStandardPipeline(), testConfig())
	require.NoError(t, err)

	assert.False(t, u.SoftFailure)
	assert.False(t, u.Dominators.Empty())
	assert.Equal(t, 3, u.Classes.Len())
	assert.Equal(t, []cfg.BlockID{0, 1, 2}, u.Roots)

	require.NotNil(t, u.Decision)
	assert.Equal(t, memaccess.StrategyNone, u.Decision.Strategy)
	assert.Equal(t, memaccess.Range{Min: 1, Max: 1}, u.Decision.Bounds)

	require.Len(t, u.Schedules, 4)
	for _, s := range u.Schedules {
		require.NotNil(t, s)
	}
	assert.Equal(t, []int{0}, u.Schedules[0].Order())
}

func TestUnbalancedDiamond(t *testing.T) {
	u, err := RunFunction(diamond("unbalanced", 2, 0), CreateStandardPipeline(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, u.Decision)
	assert.NotEqual(t, memaccess.StrategyNone, u.Decision.Strategy)
	assert.Equal(t, memaccess.Range{Min: 0, Max: 2}, u.Decision.Bounds)
	assert.Equal(t, 2, u.Decision.OppositeCost)

	c := testConfig()
	c.Compensation = config.CompensationOpposite
	u, err = RunFunction(diamond("forced", 2, 0), CreateStandardPipeline(), c)
	require.NoError(t, err)
	assert.Equal(t, memaccess.StrategyOpposite, u.Decision.Strategy)
}

func TestDelaySlotsAfterReturn(t *testing.T) {
	u, err := RunFunction(diamond("delay", 1, 1), CreateStandardPipeline(), testConfig())
	require.NoError(t, err)
	bundles := u.Bundles(3)
	require.Len(t, bundles, 1+scheduler.DelaySlotCount)
	assert.Equal(t, 0, bundles[0][0])
	for _, b := range bundles[1:] {
		assert.Equal(t, scheduler.Bundle{scheduler.NoOp, scheduler.NoOp}, b)
	}
}

func TestMissingLoopBound(t *testing.T) {
	f := &module.Function{
		Name: "loop",
		Blocks: []*module.Block{
			{Name: "entry", Succs: []string{"header"}},
			{Name: "header", Succs: []string{"body", "exit"}},
			{Name: "body", Succs: []string{"header"}},
			{Name: "exit"},
		},
	}
	_, err := RunFunction(f, CreateStandardPipeline(), testConfig())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0101))
	assert.Contains(t, err.Error(), "loops: ")
}

func TestSoftFailure(t *testing.T) {
	f := &module.Function{
		Name: "forever",
		Blocks: []*module.Block{
			{Name: "entry", Succs: []string{"header"}},
			{Name: "header", Succs: []string{"body"}, Bound: &config.Bound{Min: 4, Max: 4}},
			{Name: "body", Succs: []string{"header"}},
		},
	}
	pm := NewPassManager()
	pm.AddPass(&loopPass{})
	pm.AddPass(&boundedPass{})

	u, err := RunFunction(f, pm, testConfig())
	require.NoError(t, err)
	assert.True(t, u.SoftFailure)
	require.Len(t, u.Warnings, 1)
	assert.Equal(t, errors.SP0300, u.Warnings[0].Code)
	assert.Equal(t, 2, pm.Stats().PassesRun)
}

func TestOppositePredicatesShareBundle(t *testing.T) {
	instrs := []*module.Instr{
		add("r1", "r2", "r3"),
		{Op: "add", Writes: []string{"r1"}, Reads: []string{"r4", "r5"}, Negated: true},
	}
	f := &module.Function{
		Name:   "select",
		Root:   true,
		Blocks: []*module.Block{{Name: "entry", Instrs: instrs}},
	}

	c := testConfig()
	c.DualIssue = true
	u, err := RunFunction(f, CreateSchedulePipeline(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Schedules[0].Cycles())

	// 同一谓词下写同一寄存器，必须分开发射
	instrs[1].Negated = false
	u, err = RunFunction(f, CreateSchedulePipeline(), c)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Schedules[0].Cycles())
}

func TestDualIssueSlotRules(t *testing.T) {
	instrs := []*module.Instr{
		add("r1", "r2", "r3"),
		load("r4", "r5"),
	}
	f := &module.Function{
		Name:   "slots",
		Root:   true,
		Blocks: []*module.Block{{Name: "entry", Instrs: instrs}},
	}

	c := testConfig()
	c.DualIssue = true
	u, err := RunFunction(f, CreateSchedulePipeline(), c)
	require.NoError(t, err)
	// 访存指令只能在第一槽
	assert.Equal(t, []scheduler.Bundle{{1, 0}}, u.Schedules[0].Bundles())

	instrs[0].NonBundleable = true
	u, err = RunFunction(f, CreateSchedulePipeline(), c)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Schedules[0].Cycles())
}

func TestRunModule(t *testing.T) {
	mod := &module.Module{
		Name: "m",
		Functions: []*module.Function{
			diamond("a", 1, 1),
			{Name: "empty"},
			diamond("b", 2, 0),
			{Name: "dangling", Blocks: []*module.Block{{Name: "x", Succs: []string{"y"}}}},
		},
	}
	res, err := RunModule(context.Background(), mod, nil, testConfig())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0104))
	assert.True(t, errors.HasCode(err, errors.SP0106))

	require.Len(t, res.Units, 4)
	assert.NotNil(t, res.Units[0])
	assert.Nil(t, res.Units[1])
	assert.NotNil(t, res.Units[2])
	assert.Nil(t, res.Units[3])

	s := res.Stats.Snapshot()
	assert.Equal(t, int64(2), s.Functions)
	assert.Equal(t, int64(2), s.Failed)
	assert.Equal(t, int64(1), s.NoCompensation)
	assert.Equal(t, int64(1), s.Counter+s.Opposite)
}

func TestRunModuleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mod := &module.Module{Name: "m", Functions: []*module.Function{diamond("a", 1, 1)}}
	res, err := RunModule(ctx, mod, nil, testConfig())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res.Units[0])
}

// explodingPass 模拟分析中的程序错误
type explodingPass struct{}

func (explodingPass) Name() string { return "explode" }

func (explodingPass) Run(u *Unit) error {
	if u.Desc.Name == "bad" {
		panic("index out of range")
	}
	return nil
}

func TestRunModulePanickingPass(t *testing.T) {
	mod := &module.Module{Name: "m", Functions: []*module.Function{diamond("good", 1, 1), diamond("bad", 1, 1)}}
	newPipeline := func() *PassManager {
		pm := NewPassManager()
		pm.AddPass(&loopPass{})
		pm.AddPass(explodingPass{})
		return pm
	}
	res, err := RunModule(context.Background(), mod, newPipeline, testConfig())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0209))
	assert.Contains(t, err.Error(), "index out of range")

	require.NotNil(t, res)
	assert.NotNil(t, res.Units[0])
	assert.Nil(t, res.Units[1])
	assert.Equal(t, int64(1), res.Stats.Failed.Load())
	assert.Equal(t, int64(1), res.Stats.Functions.Load())
}

func TestRunModuleDuplicateFunction(t *testing.T) {
	mod := &module.Module{Name: "m", Functions: []*module.Function{diamond("a", 1, 1), diamond("a", 1, 1)}}
	_, err := RunModule(context.Background(), mod, nil, testConfig())
	assert.True(t, errors.HasCode(err, errors.SP0108))
}
