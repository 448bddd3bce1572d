package memaccess

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
)

// Strategy 函数采用的补偿方式
type Strategy string

const (
	StrategyNone     Strategy = "none"     // 所有路径访问次数相同
	StrategyCounter  Strategy = "counter"  // 递减计数器
	StrategyOpposite Strategy = "opposite" // 反谓词填充
)

// Input 一个函数的补偿决策输入
type Input struct {
	Fn    *cfg.Function
	Count CountFunc
	Bound BoundFunc
	// RootLike 根函数或伪根函数，总是以启用状态执行
	RootLike bool
	// PseudoRoot 伪根函数
	PseudoRoot bool
	// EndDominators 结束块的常量循环支配者，只用于伪根函数
	EndDominators cfg.BlockSet
}

// Decision 补偿决策
type Decision struct {
	Strategy     Strategy
	Bounds       Range
	Analysis     *Analysis
	Compensation Compensation
	// Plan 只在选择计数器补偿时存在
	Plan         *Plan
	CounterCost  int
	OppositeCost int
}

// OppositeCost 反谓词填充需要增加的指令数：每个访存指令配一条反谓词的副本
//
// 伪根函数中结束块的常量循环支配者总会执行，不需要填充。
func OppositeCost(in Input) int {
	cost := 0
	for _, b := range in.Fn.Blocks {
		if in.PseudoRoot && in.EndDominators != nil && in.EndDominators.Contains(b.ID) {
			continue
		}
		cost += int(in.Count(b.ID))
	}
	return cost
}

// Decide 选择补偿方式
//
// opposite 配置直接选择反谓词填充；否则访问次数固定时不需要补偿，
// 计数器方案更便宜或被强制使用时选择计数器，其余情况选择反谓词填充。
func Decide(in Input, c *config.Config) (*Decision, error) {
	_, log := limits(c)
	algo := config.CompensationHybrid
	verify := false
	if c != nil {
		algo, verify = c.Compensation, c.Verify
	}

	d := &Decision{}
	if algo == config.CompensationOpposite {
		d.Strategy = StrategyOpposite
		d.OppositeCost = OppositeCost(in)
		return d, nil
	}

	an, err := Analyze(in.Fn, in.Count, in.Bound, c)
	if err != nil {
		return nil, err
	}
	d.Analysis = an
	if d.Bounds, err = an.Bounds(in.Fn, in.RootLike); err != nil {
		return nil, err
	}
	if d.Bounds.Width() == 0 {
		d.Strategy = StrategyNone
		log.Debug("no compensation needed", zap.String("function", in.Fn.Name))
		return d, nil
	}

	d.Compensation = Compensate(in.Fn, in.Count, c)
	if verify {
		if err := VerifyConservation(in.Fn, in.Count, d.Compensation, c); err != nil {
			return nil, err
		}
	}
	plan, err := PlanCounter(in.Fn, d.Compensation, d.Bounds, in.RootLike, c)
	if err != nil {
		return nil, err
	}
	d.CounterCost = plan.Cost
	d.OppositeCost = OppositeCost(in)

	if d.CounterCost < d.OppositeCost || algo == config.CompensationCounter {
		d.Strategy = StrategyCounter
		d.Plan = plan
	} else {
		d.Strategy = StrategyOpposite
	}
	log.Debug("compensation strategy",
		zap.String("function", in.Fn.Name),
		zap.String("strategy", string(d.Strategy)),
		zap.Int64("min", d.Bounds.Min),
		zap.Int64("max", d.Bounds.Max),
		zap.Int("counter_cost", d.CounterCost),
		zap.Int("opposite_cost", d.OppositeCost),
	)
	return d, nil
}
