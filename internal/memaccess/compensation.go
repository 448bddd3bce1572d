package memaccess

import (
	"sort"

	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// ============================================================================
// 补偿
// ============================================================================

// Compensation 每条边上要从计数器中扣除的访问次数
// 值为 0 的边不出现
type Compensation map[cfg.BlockEdge]int64

// Edges 按源、目标排序的边
func (c Compensation) Edges() []cfg.BlockEdge {
	edges := make([]cfg.BlockEdge, 0, len(c))
	for e := range c {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
	return edges
}

// At 边上的补偿值
func (c Compensation) At(from, to cfg.BlockID) int64 {
	return c[cfg.BlockEdge{From: from, To: to}]
}

// Compensate 计算补偿边
//
// 自上一个记录点起累积的访问次数在以下边上记录：
// 指向结束块的边（再加上结束块自身的次数）、指向有多个非回边前驱的块的边、回边。
// 进入循环头的累积值推迟到该循环的出口边上，离开多层循环的边带上每一层推迟的值。
func Compensate(fn *cfg.Function, count CountFunc, c *config.Config) Compensation {
	_, log := limits(c)
	lf := fn.Loops

	incoming := make(map[cfg.BlockID]int64)
	deferred := make(map[cfg.LoopID]int64)
	comp := make(Compensation)
	record := func(from, to cfg.BlockID, n int64) {
		if n != 0 {
			comp[cfg.BlockEdge{From: from, To: to}] = n
		}
	}

	// 逆后序保证非回边的源先于目标处理
	for _, u := range fn.ReversePostorder() {
		acc := incoming[u] + count(u)
		for _, v := range fn.Succs(u) {
			carried := acc
			for l := lf.LoopFor(u); l != cfg.NoLoop; l = lf.Parent(l) {
				if !lf.Contains(l, v) {
					carried += deferred[l]
				}
			}

			switch {
			case lf.IsBackEdge(u, v):
				record(u, v, carried)
			case fn.Block(v).IsEnd():
				record(u, v, carried+count(v))
			case entryPreds(fn, v) > 1:
				record(u, v, carried)
				incoming[v] = 0
			case lf.IsHeader(v):
				deferred[lf.HeaderLoop(v)] = carried
				incoming[v] = 0
			default:
				incoming[v] = carried
			}
		}
	}

	log.Debug("memory access compensation",
		zap.String("function", fn.Name),
		zap.Int("edges", len(comp)),
	)
	return comp
}

// entryPreds 非回边前驱的数量
func entryPreds(fn *cfg.Function, id cfg.BlockID) int {
	n := 0
	for _, p := range fn.Preds(id) {
		if !fn.Loops.IsBackEdge(p, id) {
			n++
		}
	}
	return n
}

// VerifyConservation 检查补偿是否守恒
//
// 枚举从入口到结束块的路径（每条回边最多走一次），每条路径上扣除的补偿之和
// 必须等于路径上实际的访问次数。路径数超过迭代上限时停止枚举。
// 没有入边的结束块（单块函数的入口）自身的访问由降级代码直接结算，不参与检查。
func VerifyConservation(fn *cfg.Function, count CountFunc, comp Compensation, c *config.Config) error {
	maxIter, _ := limits(c)
	v := &conservation{
		fn:     fn,
		count:  count,
		comp:   comp,
		budget: maxIter,
		taken:  make(map[cfg.BlockEdge]bool),
	}
	v.walk(fn.Entry, count(fn.Entry), 0, []cfg.BlockID{fn.Entry})
	return v.err
}

type conservation struct {
	fn     *cfg.Function
	count  CountFunc
	comp   Compensation
	budget int
	taken  map[cfg.BlockEdge]bool
	err    error
}

func (v *conservation) walk(id cfg.BlockID, accesses, compensated int64, path []cfg.BlockID) {
	if v.err != nil || v.budget <= 0 {
		return
	}
	if v.fn.Block(id).IsEnd() {
		v.budget--
		if len(path) > 1 && accesses != compensated {
			names := make([]string, len(path))
			for i, p := range path {
				names[i] = v.fn.NameOf(p)
			}
			v.err = errors.Internal(errors.SP0207, "path %v performs %d accesses but compensates %d",
				names, accesses, compensated).InFunction(v.fn.Name).AtBlock(v.fn.NameOf(id))
		}
		return
	}
	for _, s := range v.fn.Succs(id) {
		e := cfg.BlockEdge{From: id, To: s}
		back := v.fn.Loops.IsBackEdge(id, s)
		if back {
			if v.taken[e] {
				continue
			}
			v.taken[e] = true
		}
		v.walk(s, accesses+v.count(s), compensated+v.comp[e], append(path, s))
		if back {
			v.taken[e] = false
		}
	}
}
