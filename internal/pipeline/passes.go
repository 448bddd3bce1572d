package pipeline

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/dominators"
	"github.com/tangzhangming/singlepath/internal/eqclass"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/memaccess"
	"github.com/tangzhangming/singlepath/internal/postdom"
)

// ============================================================================
// 控制流
// ============================================================================

// loopPass 构建控制流图与循环森林，读取循环边界
type loopPass struct{}

func (p *loopPass) Name() string { return "loops" }

func (p *loopPass) Run(u *Unit) error {
	fn, err := u.Desc.Build()
	if err != nil {
		return err
	}
	bounds, err := u.Desc.Bounds(fn, u.Config)
	if err != nil {
		return err
	}
	u.Fn, u.Bounds = fn, bounds
	u.Log.Debug("loop forest",
		zap.Int("blocks", fn.Len()),
		zap.Int("loops", fn.Loops.Len()),
	)
	return nil
}

// boundedPass 入口出发的有界支配者
// 结果为空时记录软失败，继续分析
type boundedPass struct{}

func (p *boundedPass) Name() string { return "bounded-dominators" }

func (p *boundedPass) Run(u *Unit) error {
	m, err := dominators.Bounded(u.Fn, u.Fn.Entry, u.constant, u.Config)
	if err != nil {
		return err
	}
	u.Dominators = m
	if m.Empty() {
		u.SoftFailure = true
		u.warn(errors.Warning(errors.SP0300, "").InFunction(u.Fn.Name).
			WithNote("constant-time single-path code is not achievable for this function"))
		return nil
	}
	if u.Config.Verify {
		return verifyDominators(u, m)
	}
	return nil
}

func verifyDominators(u *Unit, m dominators.Map) error {
	if err := dominators.Verify(u.Fn, u.Fn.Entry, m); err != nil {
		return err
	}
	return dominators.VerifyPaths(u.Fn, u.Fn.Entry, u.constant, m, u.Config)
}

// constantLoopPass 结束块的常量循环支配者
type constantLoopPass struct{}

func (p *constantLoopPass) Name() string { return "cl-dominators" }

func (p *constantLoopPass) Run(u *Unit) error {
	m, err := dominators.ConstantLoop(u.Fn, u.Fn.Entry, u.constant, true, u.Config)
	if err != nil {
		return err
	}
	u.CLDominators = m
	if u.Config.Verify {
		return verifyDominators(u, m)
	}
	return nil
}

// ============================================================================
// 谓词
// ============================================================================

// controlDependencePass FCFG 后支配者与控制依赖
type controlDependencePass struct{}

func (p *controlDependencePass) Name() string { return "control-dependence" }

func (p *controlDependencePass) Run(u *Unit) error {
	pdt, err := postdom.Compute(u.Fn, u.Config)
	if err != nil {
		return err
	}
	deps, err := pdt.ControlDependencies()
	if err != nil {
		return err
	}
	u.PostDom, u.Deps = pdt, deps
	return nil
}

// classPass 控制依赖等价类，每个类必须有唯一的根
type classPass struct{}

func (p *classPass) Name() string { return "equivalence-classes" }

func (p *classPass) Run(u *Unit) error {
	table := eqclass.Compute(u.Fn, u.Deps, u.Config)
	roots, err := table.Roots(u.PostDom)
	if err != nil {
		return err
	}
	u.Classes, u.Roots = table, roots
	return nil
}

// ============================================================================
// 访存补偿
// ============================================================================

// compensationPass 访存次数分析与补偿方式选择
type compensationPass struct{}

func (p *compensationPass) Name() string { return "compensation" }

func (p *compensationPass) Run(u *Unit) error {
	in := memaccess.Input{
		Fn:         u.Fn,
		Count:      u.Desc.Accesses,
		Bound:      u.bound,
		RootLike:   u.Desc.RootLike(),
		PseudoRoot: u.Desc.PseudoRoot,
	}
	if end, ok := u.Fn.End(); ok && u.CLDominators != nil {
		in.EndDominators = u.CLDominators.Get(end)
	}
	d, err := memaccess.Decide(in, u.Config)
	if err != nil {
		return err
	}
	u.Decision = d
	return nil
}
