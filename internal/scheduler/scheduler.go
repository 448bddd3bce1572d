// Package scheduler 单路径代码的双发射列表调度器
//
// 调度以基本块为单位：先构建依赖图，然后逐周期从就绪指令中选出优先级最高的
// 一条放入第一发射槽；启用双发射时再为第二发射槽选一条可同包的指令。
// 没有就绪指令的周期留空，由调用方填入空操作。
//
// 优先级：有效延迟长者优先，依赖图后继多者优先，双发射时长指令优先，
// 最后按原始顺序。
package scheduler

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// NoOp 空槽
const NoOp = -1

// Options 调度选项
type Options struct {
	// Dual 非 nil 时启用双发射
	Dual *DualIssue
	// Dependent 两条指令是否可能同时启用；nil 表示总是相关
	Dependent func(a, b int) bool
}

// poison 正在执行的指令占用的寄存器
type poison struct {
	op       Operand
	from, to int // 闭区间
}

type scheduler struct {
	in      Introspection
	opts    Options
	g       *Graph
	issued  []int // 指令 -> 发射周期，未发射为 -1
	poisons []poison
}

// ListSchedule 调度 n 条指令
func ListSchedule(n int, in Introspection, opts Options, c *config.Config) (*Schedule, error) {
	log := zap.NewNop()
	if c != nil {
		log = c.Logger()
	}

	sched := newSchedule(n, opts.Dual)
	if n == 0 {
		return sched, nil
	}

	s := &scheduler{
		in:     in,
		opts:   opts,
		g:      BuildGraph(n, in, opts.Dependent),
		issued: make([]int, n),
	}
	for i := range s.issued {
		s.issued[i] = -1
	}

	limit := s.cycleLimit()
	done := 0
	cycle := 0
	for ; done < n; cycle++ {
		if cycle > limit {
			return nil, errors.Internal(errors.SP0203, "%d of %d instructions unscheduled after %d cycles", n-done, n, limit)
		}
		s.expire(cycle)

		primary := s.pick(cycle, NoOp)
		if primary == NoOp {
			continue
		}
		s.issued[primary] = cycle
		done++
		slots := [2]int{primary, NoOp}

		if dual := opts.Dual; dual != nil && !dual.isLong(primary) {
			if second := s.pick(cycle, primary); second != NoOp {
				s.issued[second] = cycle
				done++
				if dual.maySecondSlot(second) {
					slots[1] = second
				} else {
					slots = [2]int{second, primary}
				}
			}
		}

		for slot, idx := range slots {
			if idx == NoOp {
				continue
			}
			sched.place(cycle, slot, idx)
			for _, op := range in.poisoned(idx) {
				s.poisons = append(s.poisons, poison{op: op, from: cycle + 1, to: cycle + in.latency(idx)})
			}
		}
	}

	log.Debug("list schedule",
		zap.Int("instructions", n),
		zap.Int("cycles", cycle),
		zap.Int("noops", sched.NoOps()),
		zap.Bool("dual_issue", opts.Dual != nil),
	)
	return sched, nil
}

// cycleLimit 每条指令最多等待最长依赖距离或最长延迟
func (s *scheduler) cycleLimit() int {
	wait := 0
	for _, n := range s.g.Nodes {
		wait = max(wait, s.in.latency(n.Index))
		for _, d := range n.Preds {
			wait = max(wait, d.Distance)
		}
	}
	return len(s.g.Nodes)*(wait+1) + 1
}

func (s *scheduler) expire(cycle int) {
	live := s.poisons[:0]
	for _, p := range s.poisons {
		if p.to >= cycle {
			live = append(live, p)
		}
	}
	s.poisons = live
}

// pick 选择本周期优先级最高的就绪指令
// primary 不是 NoOp 时为第二发射槽选择，primary 已经记为本周期发射
func (s *scheduler) pick(cycle, primary int) int {
	best := NoOp
	for i := range s.g.Nodes {
		if s.issued[i] >= 0 || !s.ready(i, cycle) {
			continue
		}
		if primary != NoOp && !s.bundleable(primary, i) {
			continue
		}
		if best == NoOp || s.better(i, best) {
			best = i
		}
	}
	return best
}

// ready 所有前驱已在足够早的周期发射，且不访问被占用的寄存器
func (s *scheduler) ready(i, cycle int) bool {
	for p, d := range s.g.Nodes[i].Preds {
		at := s.issued[p]
		if at < 0 || at+d.Distance > cycle {
			return false
		}
	}
	for _, p := range s.poisons {
		last := p.to
		if s.in.isCall(i) {
			// 调用可以容忍最后一个被占用的周期
			last--
		}
		if cycle < p.from || cycle > last {
			continue
		}
		if s.in.readsOp(i, p.op) || s.in.writesOp(i, p.op) {
			return false
		}
	}
	return true
}

// bundleable 候选指令能否与第一发射槽的指令同包
func (s *scheduler) bundleable(primary, cand int) bool {
	dual := s.opts.Dual
	if dual.isLong(cand) {
		return false
	}
	if !dual.maySecondSlot(cand) && !dual.maySecondSlot(primary) {
		return false
	}
	if dual.mayBundle(primary, cand) {
		return true
	}
	return s.opts.Dependent != nil && !s.opts.Dependent(primary, cand)
}

// better a 的优先级是否高于 b
func (s *scheduler) better(a, b int) bool {
	na, nb := s.g.Nodes[a], s.g.Nodes[b]
	if na.Latency != nb.Latency {
		return na.Latency > nb.Latency
	}
	if sa, sb := na.Succs.Cardinality(), nb.Succs.Cardinality(); sa != sb {
		return sa > sb
	}
	if dual := s.opts.Dual; dual != nil {
		if la, lb := dual.isLong(a), dual.isLong(b); la != lb {
			return la
		}
	}
	return a < b
}
