package dominators

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// ============================================================================
// 常量循环支配者
// ============================================================================

// count 支配者在区域的一次执行中被访问的次数（符号形式）
//
// 只比较相等性：两条路径在汇合点上对同一个块给出不同的次数时，
// 该块不再是常量循环支配者。
type count string

const once count = "1"

// loopCount 块在常量循环中的访问次数
// perIter 为每次完整迭代的次数，last 为最后一次（离开循环的）迭代中的次数
func loopCount(header cfg.BlockID, perIter, last count) count {
	return count(fmt.Sprintf("%d[%s;%s]", header, perIter, last))
}

// iterCount 循环体内部看到的、每次迭代固定访问的块
func iterCount(header cfg.BlockID, c count) count {
	return count(fmt.Sprintf("%d*%s", header, c))
}

// counted 带访问次数的支配者集合
type counted map[cfg.BlockID]count

func (c counted) clone() counted {
	out := make(counted, len(c))
	for id, n := range c {
		out[id] = n
	}
	return out
}

// meet 交集：块必须在两边都出现且次数相同
func (c counted) meet(o counted) counted {
	out := make(counted)
	for id, n := range c {
		if m, ok := o[id]; ok && m == n {
			out[id] = n
		}
	}
	return out
}

func (c counted) merge(o counted) {
	for id, n := range o {
		c[id] = n
	}
}

func (c counted) set() cfg.BlockSet {
	s := cfg.NewSet()
	for id := range c {
		s.Add(id)
	}
	return s
}

// region 一个区域（函数或循环）的分析结果
type region struct {
	// local 展开内层循环之前的结果，内层循环只由其循环头代表
	local map[cfg.BlockID]counted
	// doms 最终结果，覆盖区域内包括内层循环在内的所有块
	doms map[cfg.BlockID]counted
}

type constLoopAnalysis struct {
	fn       *cfg.Function
	lf       *cfg.LoopForest
	constant ConstantFunc
	maxIter  int
	log      *zap.Logger
	regions  map[cfg.BlockID]*region
	reach    map[cfg.BlockID]*Reachability
}

// ConstantLoop 计算从 root 出发的常量循环支配者
//
// endOnly 为 true 时只返回没有后继的结束块。
func ConstantLoop(fn *cfg.Function, root cfg.BlockID, constant ConstantFunc, endOnly bool, c *config.Config) (Map, error) {
	maxIter, log := limits(c)
	a := &constLoopAnalysis{
		fn:       fn,
		lf:       fn.Loops,
		constant: constant,
		maxIter:  maxIter,
		log:      log,
		regions:  make(map[cfg.BlockID]*region),
		reach:    make(map[cfg.BlockID]*Reachability),
	}
	r, err := a.run(root)
	if err != nil {
		return nil, err
	}

	result := make(Map, len(r.doms))
	for id, doms := range r.doms {
		if endOnly && !fn.Block(id).IsEnd() {
			continue
		}
		result[id] = doms.set()
	}
	log.Debug("constant-loop dominators",
		zap.String("function", fn.Name),
		zap.String("root", fn.NameOf(root)),
		zap.Int("blocks", len(result)),
	)
	return result, nil
}

// run 分析以 start 为起点的区域，每个循环头只分析一次
func (a *constLoopAnalysis) run(start cfg.BlockID) (*region, error) {
	if r, ok := a.regions[start]; ok {
		return r, nil
	}
	lf := a.lf

	doms := map[cfg.BlockID]counted{start: {start: once}}
	var inner []cfg.BlockID
	analysed := cfg.NewSet()

	queue := []cfg.BlockID{start}
	queued := cfg.NewSet(start)
	limit := a.maxIter * (a.fn.Len() + 1)
	for pops := 0; len(queue) > 0; pops++ {
		if pops > limit {
			return nil, errors.Internal(errors.SP0205, "constant-loop dominators exceeded %d steps", limit).
				InFunction(a.fn.Name).AtBlock(a.fn.NameOf(start))
		}
		current := queue[0]
		queue = queue[1:]
		queued.Remove(current)

		if a.fn.Block(current).IsEnd() {
			continue
		}
		exiting := current != start && lf.IsHeader(current) && a.constant(current)

		for _, succ := range a.fn.FCFGSuccessors(current, start) {
			if queued.Add(succ) {
				queue = append(queue, succ)
			}
			if lf.IsHeader(succ) && analysed.Add(succ) {
				if _, err := a.run(succ); err != nil {
					return nil, err
				}
				inner = append(inner, succ)
			}

			refine := doms[current].clone()
			if exiting {
				fixed, err := a.exitDominators(current, succ)
				if err != nil {
					return nil, err
				}
				refine.merge(fixed)
			}
			if prev, ok := doms[succ]; ok && len(prev) > 0 {
				refine = prev.meet(refine)
			}
			if !lf.IsHeader(succ) || a.constant(succ) {
				refine[succ] = once
			}
			doms[succ] = refine
		}
	}

	r := &region{local: make(map[cfg.BlockID]counted, len(doms))}
	for id, d := range doms {
		r.local[id] = d.clone()
	}
	// 把内层循环展开：循环体继承循环头的集合，常量循环再加上每次迭代固定执行的块
	a.regions[start] = r
	for _, header := range inner {
		base := doms[header]
		iter := counted{}
		if a.constant(header) {
			latch, err := a.latchDominators(header)
			if err != nil {
				return nil, err
			}
			for id, n := range latch {
				iter[id] = iterCount(header, n)
			}
		}
		loop := lf.Loop(lf.HeaderLoop(header))
		for _, b := range loop.Blocks {
			d := base.clone()
			d.merge(iter)
			doms[b] = d
		}
	}
	r.doms = doms
	return r, nil
}

// contribution 离开 x 走向 target 时，header 区域内固定访问的块
// x 位于内层循环时由该内层循环的循环头代表
func (a *constLoopAnalysis) contribution(header, x, target cfg.BlockID) (counted, error) {
	r := a.regions[header]
	if a.lf.Depth(x) == a.lf.Depth(header) {
		return r.local[x].clone(), nil
	}
	node, ok := a.fn.FCFGNode(x, a.lf.HeaderLoop(header))
	if !ok {
		return counted{}, nil
	}
	out := r.local[node].clone()
	if a.constant(node) {
		fixed, err := a.exitDominators(node, target)
		if err != nil {
			return nil, err
		}
		out.merge(fixed)
	}
	return out, nil
}

// latchDominators 每次完整迭代中固定访问的块
func (a *constLoopAnalysis) latchDominators(header cfg.BlockID) (counted, error) {
	loop := a.lf.Loop(a.lf.HeaderLoop(header))
	var result counted
	for _, latch := range loop.Latches {
		c, err := a.contribution(header, latch, header)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = c
		} else {
			result = result.meet(c)
		}
	}
	if result == nil {
		return counted{}, nil
	}
	return result, nil
}

// exitDominators 常量循环经由通往 target 的出口离开后，循环内访问次数固定的块
//
// 块必须在每次完整迭代中固定访问，并且在最后一次迭代中要么支配所有
// 通往 target 的出口块，要么无法到达其中任何一个。
func (a *constLoopAnalysis) exitDominators(header, target cfg.BlockID) (counted, error) {
	if _, err := a.run(header); err != nil {
		return nil, err
	}
	loopID := a.lf.HeaderLoop(header)
	loop := a.lf.Loop(loopID)

	var sources []cfg.BlockID
	for _, e := range loop.Exits {
		if e.To == target {
			sources = append(sources, e.From)
		}
	}

	latch, err := a.latchDominators(header)
	if err != nil {
		return nil, err
	}
	var last counted
	for _, src := range sources {
		c, err := a.contribution(header, src, target)
		if err != nil {
			return nil, err
		}
		if last == nil {
			last = c
		} else {
			last = last.meet(c)
		}
	}

	reach, ok := a.reach[header]
	if !ok {
		reach = Reach(a.fn, header)
		a.reach[header] = reach
	}
	exitNodes := make([]cfg.BlockID, 0, len(sources))
	for _, src := range sources {
		if n, ok := a.fn.FCFGNode(src, loopID); ok {
			exitNodes = append(exitNodes, n)
		}
	}

	out := make(counted)
	for id, perIter := range latch {
		if n, ok := last[id]; ok {
			out[id] = loopCount(header, perIter, n)
			continue
		}
		node, ok := a.fn.FCFGNode(id, loopID)
		if !ok {
			continue
		}
		if !reach.reachesAny(node, exitNodes) {
			out[id] = loopCount(header, perIter, "0")
		}
	}
	return out, nil
}
