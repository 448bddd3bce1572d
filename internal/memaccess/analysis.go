// Package memaccess 主存访问次数分析与补偿
//
// 单路径代码要求每条执行路径的主存访问次数相同。Analyze 求出每个块、
// 每个循环的访问次数范围；Compensate 求出需要在哪些边上补足差额；
// PlanCounter 与 OppositeCost 估算两种补偿方式的代价，Decide 在两者间选择。
package memaccess

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// CountFunc 块中可变延迟主存访问指令的数量
type CountFunc func(id cfg.BlockID) int64

// BoundFunc 循环头的迭代次数边界
type BoundFunc func(header cfg.BlockID) config.Bound

// Range 访问次数范围
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// Join 两个范围的并
func (r Range) Join(o Range) Range {
	return Range{Min: min(r.Min, o.Min), Max: max(r.Max, o.Max)}
}

// Add 逐端相加
func (r Range) Add(o Range) Range {
	return Range{Min: r.Min + o.Min, Max: r.Max + o.Max}
}

// Width 最大与最小之差
func (r Range) Width() int64 {
	return r.Max - r.Min
}

func single(n int64) Range {
	return Range{Min: n, Max: n}
}

// LoopRange 一个循环的访问次数
type LoopRange struct {
	Header cfg.BlockID
	// Pred 进入循环前（非回边前驱）的访问次数
	Pred Range
	// Body 一次完整迭代（从循环头到回边块）的访问次数
	Body Range
	// Exits 从各出口块离开循环时的访问次数，按出口块索引
	Exits map[cfg.BlockID]Range
}

// Span 覆盖所有出口的范围
func (l *LoopRange) Span() (Range, bool) {
	var out Range
	found := false
	for _, r := range l.Exits {
		if !found {
			out, found = r, true
			continue
		}
		out = out.Join(r)
	}
	return out, found
}

func (l *LoopRange) equal(o *LoopRange) bool {
	if o == nil || l.Pred != o.Pred || l.Body != o.Body || len(l.Exits) != len(o.Exits) {
		return false
	}
	for id, r := range l.Exits {
		if or, ok := o.Exits[id]; !ok || or != r {
			return false
		}
	}
	return true
}

// Analysis 访问次数分析结果
type Analysis struct {
	// Blocks 每个块的范围，从最内层循环的循环头（或函数入口）算起
	Blocks map[cfg.BlockID]Range
	// Loops 每个循环的结果，按循环头索引
	Loops map[cfg.BlockID]*LoopRange
}

type analyzer struct {
	fn     *cfg.Function
	lf     *cfg.LoopForest
	count  CountFunc
	bound  BoundFunc
	blocks map[cfg.BlockID]Range
	loops  map[cfg.BlockID]*LoopRange
}

// Analyze 计算函数中每个块与每个循环的访问次数范围
//
// 每一轮按逆后序重新计算所有块，再由内向外重新计算所有循环，直到结果不再变化。
func Analyze(fn *cfg.Function, count CountFunc, bound BoundFunc, c *config.Config) (*Analysis, error) {
	maxIter, log := limits(c)
	a := &analyzer{
		fn:     fn,
		lf:     fn.Loops,
		count:  count,
		bound:  bound,
		blocks: make(map[cfg.BlockID]Range, fn.Len()),
		loops:  make(map[cfg.BlockID]*LoopRange),
	}

	rounds := 0
	for changed := true; changed; {
		rounds++
		if rounds > maxIter {
			return nil, errors.Internal(errors.SP0205, "memory access analysis exceeded %d rounds", maxIter).
				InFunction(fn.Name)
		}
		changed = false
		for _, id := range fn.ReversePostorder() {
			r, ok := a.block(id)
			if !ok {
				continue
			}
			if old, seen := a.blocks[id]; !seen || old != r {
				a.blocks[id] = r
				changed = true
			}
		}
		for _, l := range a.lf.PostOrder() {
			lr, ok := a.loop(l)
			if !ok {
				continue
			}
			header := a.lf.Loop(l).Header
			if !lr.equal(a.loops[header]) {
				a.loops[header] = lr
				changed = true
			}
		}
	}

	log.Debug("memory access analysis",
		zap.String("function", fn.Name),
		zap.Int("rounds", rounds),
		zap.Int("loops", len(a.loops)),
	)
	return &Analysis{Blocks: a.blocks, Loops: a.loops}, nil
}

// block 由前驱重新计算块的范围
// 入口与循环头从自身的访问次数重新开始
func (a *analyzer) block(id cfg.BlockID) (Range, bool) {
	own := single(a.count(id))
	if id == a.fn.Entry || a.lf.IsHeader(id) {
		return own, true
	}
	acc, ok := a.join(id, a.fn.Preds(id))
	if !ok {
		return Range{}, false
	}
	return acc.Add(own), true
}

// join 合并从各前驱到达 target 时的范围，尚未求出的前驱被跳过
func (a *analyzer) join(target cfg.BlockID, preds []cfg.BlockID) (Range, bool) {
	var acc Range
	found := false
	for _, p := range preds {
		r, ok := a.arriving(p, target)
		if !ok {
			continue
		}
		if !found {
			acc, found = r, true
		} else {
			acc = acc.Join(r)
		}
	}
	return acc, found
}

// arriving 沿边 pred -> target 到达时的范围
// 边离开若干循环时，取其中最外层循环在 pred 处的出口范围
func (a *analyzer) arriving(pred, target cfg.BlockID) (Range, bool) {
	left := cfg.NoLoop
	for l := a.lf.LoopFor(pred); l != cfg.NoLoop; l = a.lf.Parent(l) {
		if !a.lf.Contains(l, target) {
			left = l
		}
	}
	if left == cfg.NoLoop {
		r, ok := a.blocks[pred]
		return r, ok
	}
	lr, ok := a.loops[a.lf.Loop(left).Header]
	if !ok {
		return Range{}, false
	}
	r, ok := lr.Exits[pred]
	return r, ok
}

// within 块在 loop 这一层看到的范围
// 位于内层循环中的块取该内层循环所有出口的范围
func (a *analyzer) within(loop cfg.LoopID, id cfg.BlockID) (Range, bool) {
	if a.lf.LoopFor(id) == loop {
		r, ok := a.blocks[id]
		return r, ok
	}
	inner := a.lf.OutermostInner(loop, id)
	if inner == cfg.NoLoop {
		return Range{}, false
	}
	lr, ok := a.loops[a.lf.Loop(inner).Header]
	if !ok {
		return Range{}, false
	}
	return lr.Span()
}

func (a *analyzer) loop(id cfg.LoopID) (*LoopRange, bool) {
	loop := a.lf.Loop(id)
	header := loop.Header

	var entries []cfg.BlockID
	for _, p := range a.fn.Preds(header) {
		if !loop.Contains(p) {
			entries = append(entries, p)
		}
	}
	pred, ok := a.join(header, entries)
	if !ok {
		if len(entries) > 0 {
			return nil, false
		}
		pred = Range{}
	}

	var body Range
	found := false
	for _, latch := range loop.Latches {
		r, ok := a.within(id, latch)
		if !ok {
			continue
		}
		if !found {
			body, found = r, true
		} else {
			body = body.Join(r)
		}
	}
	if !found {
		return nil, false
	}

	iter := a.iterations(header)
	lr := &LoopRange{
		Header: header,
		Pred:   pred,
		Body:   body,
		Exits:  make(map[cfg.BlockID]Range, len(loop.Exiting)),
	}
	for _, e := range loop.Exiting {
		r, ok := a.within(id, e)
		if !ok {
			continue
		}
		lr.Exits[e] = Range{
			Min: pred.Min + (iter.Min-1)*body.Min + r.Min,
			Max: pred.Max + (iter.Max-1)*body.Max + r.Max,
		}
	}
	return lr, true
}

// iterations 迭代次数，至少为 1（循环头总会执行一次）
func (a *analyzer) iterations(header cfg.BlockID) config.Bound {
	b := a.bound(header)
	return config.Bound{Min: max(b.Min, 1), Max: max(b.Max, 1)}
}

// Bounds 函数结束时的最少与最多访问次数
//
// 非根函数可能以禁用状态被调用，此时一次访问也不做，最少次数取 0。
func (an *Analysis) Bounds(fn *cfg.Function, rootLike bool) (Range, error) {
	end, ok := fn.End()
	if !ok {
		return Range{}, errors.Fatal(errors.SP0102, "function has %d exit blocks", len(fn.Ends())).
			InFunction(fn.Name)
	}
	r, ok := an.Blocks[end]
	if !ok {
		return Range{}, errors.Internal(errors.SP0205, "no access count for end block").
			InFunction(fn.Name).AtBlock(fn.NameOf(end))
	}
	if !rootLike {
		r.Min = 0
	}
	return r, nil
}

// limits 从配置读取迭代上限与日志器
func limits(c *config.Config) (int, *zap.Logger) {
	if c == nil {
		return config.DefaultMaxIterations, zap.NewNop()
	}
	return c.MaxIterations, c.Logger()
}
