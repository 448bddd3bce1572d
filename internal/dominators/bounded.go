package dominators

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// ============================================================================
// 有界支配者
// ============================================================================

// boundedAnalysis 一次有界支配者分析
// 内层循环递归分析，结果只在本次分析内使用
type boundedAnalysis struct {
	fn       *cfg.Function
	lf       *cfg.LoopForest
	constant ConstantFunc
	maxIter  int
	log      *zap.Logger
}

// Bounded 计算从 root 出发、所有结束块的有界支配者
//
// 结束块是 root 所在区域中没有后继的块，或离开该区域的出口。
// 返回空 Map 表示某个内层循环无法建立结束块支配者，调用方必须检查 Empty()。
func Bounded(fn *cfg.Function, root cfg.BlockID, constant ConstantFunc, c *config.Config) (Map, error) {
	maxIter, log := limits(c)
	a := &boundedAnalysis{
		fn:       fn,
		lf:       fn.Loops,
		constant: constant,
		maxIter:  maxIter,
		log:      log,
	}
	result, err := a.run(root)
	if err != nil {
		return nil, err
	}
	log.Debug("bounded dominators",
		zap.String("function", fn.Name),
		zap.String("root", fn.NameOf(root)),
		zap.Int("ends", len(result)),
	)
	return result, nil
}

func (a *boundedAnalysis) run(start cfg.BlockID) (Map, error) {
	lf := a.lf
	startDepth := lf.Depth(start)

	visited := cfg.NewSet()
	ends := cfg.NewSet()
	loopDoms := make(map[cfg.BlockID]cfg.BlockSet)

	// 第一步：探索 FCFG，遇到内层循环头时递归
	queue := []cfg.BlockID{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if !visited.Add(current) {
			continue
		}

		switch {
		case a.fn.Block(current).IsEnd():
			ends.Add(current)

		case current != start && lf.IsHeader(current):
			loop := lf.Loop(lf.HeaderLoop(current))
			for _, exit := range loop.Exits {
				d := lf.Depth(exit.To)
				if d == startDepth || d == startDepth+1 {
					queue = append(queue, exit.To)
				} else {
					// 同时离开当前区域的出口
					ends.Add(exit.To)
				}
			}

			inner, err := a.run(current)
			if err != nil {
				return nil, err
			}
			if inner.Empty() {
				a.log.Debug("loop without bounded end dominators",
					zap.String("function", a.fn.Name),
					zap.String("loop", a.fn.NameOf(current)),
				)
				return Map{}, nil
			}
			shared := make([]cfg.BlockSet, 0, len(inner))
			for _, id := range inner.Blocks() {
				shared = append(shared, inner[id])
			}
			loopDoms[current] = cfg.Intersection(shared...)

		default:
			curLoop := lf.LoopFor(current)
			for _, succ := range a.fn.Succs(current) {
				if curLoop != cfg.NoLoop && !lf.Contains(curLoop, succ) {
					ends.Add(current)
				} else if curLoop == cfg.NoLoop || lf.Loop(curLoop).Header != succ {
					queue = append(queue, succ)
				}
			}
		}
	}

	// 第二步：初始化候选集合
	all := visited.Clone()
	for _, doms := range loopDoms {
		all = all.Union(doms)
	}
	dominators := make(Map, visited.Cardinality())
	for _, id := range visited.ToSlice() {
		dominators[id] = all.Clone()
	}
	dominators[start] = cfg.NewSet(start)

	// 第三步：迭代到不动点
	blocks := cfg.Sorted(visited)
	iterations := 0
	for changed := true; changed; {
		changed = false
		iterations++
		if iterations > a.maxIter {
			return nil, errors.Internal(errors.SP0205, "bounded dominators exceeded %d iterations", a.maxIter).
				InFunction(a.fn.Name).AtBlock(a.fn.NameOf(start))
		}
		for _, mbb := range blocks {
			shared := a.refine(mbb, start, dominators, loopDoms)
			if !shared.Equal(dominators[mbb]) {
				changed = true
			}
			dominators[mbb] = shared
		}
	}

	// 第四步：区域是循环时，所有回边块共同的支配者
	latchDoms := a.latchDominators(start, dominators, loopDoms)

	result := make(Map, ends.Cardinality())
	for _, end := range ends.ToSlice() {
		result[end] = dominators.Get(end).Union(latchDoms)
	}
	return result, nil
}

// refine 由前驱重新计算 mbb 的支配者
func (a *boundedAnalysis) refine(mbb, start cfg.BlockID, dominators Map, loopDoms map[cfg.BlockID]cfg.BlockSet) cfg.BlockSet {
	lf := a.lf
	mbbDepth := lf.Depth(mbb)
	mbbLoop := lf.LoopFor(mbb)
	shared := dominators[mbb].Clone()

	for _, pred := range a.fn.Preds(mbb) {
		// 忽略回边
		if lf.IsHeader(mbb) && lf.Contains(mbbLoop, pred) {
			continue
		}

		predDoms := cfg.NewSet()
		predDepth := lf.Depth(pred)
		predLoop := lf.LoopFor(pred)
		if predDepth > mbbDepth || (predDepth == mbbDepth && predLoop != mbbLoop && mbb != start) {
			// 从循环退出：以该循环的循环头代替前驱
			loop := predLoop
			for loop != cfg.NoLoop && lf.Parent(loop) != mbbLoop && lf.LoopDepth(loop) != mbbDepth {
				loop = lf.Parent(loop)
			}
			if loop != cfg.NoLoop {
				pred = lf.Loop(loop).Header
				if a.constant(pred) {
					if doms, ok := loopDoms[pred]; ok {
						predDoms = predDoms.Union(doms)
						shared = shared.Union(doms)
					}
				}
			}
		}
		predDoms = predDoms.Union(dominators.Get(pred))
		next := shared.Intersect(predDoms)

		predDepth = lf.Depth(pred)
		predLoop = lf.LoopFor(pred)
		exit := predDepth > mbbDepth || (predDepth == mbbDepth && predLoop != mbbLoop)
		if exit && lf.IsHeader(pred) && !a.constant(pred) {
			// 变长循环的执行次数不确定
			next.Remove(pred)
		}
		shared = next
	}
	shared.Add(mbb)
	return shared
}

// latchDominators 支配 start 所在循环所有回边块的块
func (a *boundedAnalysis) latchDominators(start cfg.BlockID, dominators Map, loopDoms map[cfg.BlockID]cfg.BlockSet) cfg.BlockSet {
	lf := a.lf
	latchDoms := cfg.NewSet()
	startDepth := lf.Depth(start)
	if startDepth == 0 {
		return latchDoms
	}

	loop := lf.Loop(lf.LoopFor(start))
	first := true
	for _, latch := range loop.Latches {
		newDoms := cfg.NewSet()
		nested := lf.Depth(latch) > startDepth
		if nested {
			// 回边来自内层循环：以直接子循环的循环头代替
			inner := lf.AncestorAt(lf.LoopFor(latch), startDepth+1)
			latch = lf.Loop(inner).Header
			if a.constant(latch) {
				if doms, ok := loopDoms[latch]; ok {
					newDoms = newDoms.Union(doms)
					latchDoms = latchDoms.Union(doms)
				}
			}
		}
		if first {
			first = false
			newDoms = newDoms.Union(dominators.Get(latch))
		} else {
			newDoms = newDoms.Union(latchDoms.Intersect(dominators.Get(latch)))
		}
		if nested && !a.constant(latch) {
			newDoms.Remove(latch)
		}
		latchDoms = newDoms
	}
	return latchDoms
}
