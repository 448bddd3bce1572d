package dominators

import (
	"github.com/willf/bitset"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// Verify 对分析结果做基本的一致性检查
//
// 起点必须支配结果中的每个块；每个支配者都必须能在 CFG（含回边）上到达被支配的块。
func Verify(fn *cfg.Function, root cfg.BlockID, m Map) error {
	reach := closure(fn)
	for _, id := range m.Blocks() {
		doms := m[id]
		if !doms.Contains(root) {
			return errors.Internal(errors.SP0206, "%s does not dominate %s", fn.NameOf(root), fn.NameOf(id)).
				InFunction(fn.Name).AtBlock(fn.NameOf(id))
		}
		for _, d := range cfg.Sorted(doms) {
			if d == id {
				continue
			}
			if !fn.Valid(d) || !reach[d].Test(uint(id)) {
				return errors.Internal(errors.SP0206, "%s cannot reach %s", fn.NameOf(d), fn.NameOf(id)).
					InFunction(fn.Name).AtBlock(fn.NameOf(id))
			}
		}
	}
	return nil
}

// closure CFG 的传递闭包，每个块一行
func closure(fn *cfg.Function) []*bitset.BitSet {
	n := uint(fn.Len())
	rows := make([]*bitset.BitSet, fn.Len())
	for i := range rows {
		row := bitset.New(n)
		queue := []cfg.BlockID{cfg.BlockID(i)}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, s := range fn.Succs(cur) {
				if !row.Test(uint(s)) {
					row.Set(uint(s))
					queue = append(queue, s)
				}
			}
		}
		rows[i] = row
	}
	return rows
}

// ============================================================================
// 路径枚举
// ============================================================================

// VerifyPaths 枚举从起点出发的路径，检查支配者确实出现在每条路径上
//
// 每条回边在一条路径上最多走一次。常量循环至少完整迭代一次，因此离开常量循环
// 的路径必须已经走过它的某条回边。只检查不在任何循环中的块；路径数超过迭代上限时
// 停止枚举。
func VerifyPaths(fn *cfg.Function, root cfg.BlockID, constant ConstantFunc, m Map, c *config.Config) error {
	maxIter, _ := limits(c)
	v := &pathWalker{
		fn:       fn,
		constant: constant,
		m:        m,
		budget:   maxIter,
		taken:    make(map[cfg.BlockEdge]bool),
		iterated: make(map[cfg.LoopID]int),
	}
	v.walk(root, []cfg.BlockID{root})
	return v.err
}

type pathWalker struct {
	fn       *cfg.Function
	constant ConstantFunc
	m        Map
	budget   int
	taken    map[cfg.BlockEdge]bool
	iterated map[cfg.LoopID]int // 循环 -> 路径上已走过的回边数
	err      error
}

func (v *pathWalker) walk(id cfg.BlockID, path []cfg.BlockID) {
	if v.err != nil || v.budget <= 0 {
		return
	}
	v.budget--
	if doms, ok := v.m[id]; ok && v.fn.Loops.Depth(id) == 0 {
		for _, d := range cfg.Sorted(doms) {
			if !onPath(path, d) {
				names := make([]string, len(path))
				for i, p := range path {
					names[i] = v.fn.NameOf(p)
				}
				v.err = errors.Internal(errors.SP0206, "%s is not on path %v", v.fn.NameOf(d), names).
					InFunction(v.fn.Name).AtBlock(v.fn.NameOf(id))
				return
			}
		}
	}

	lf := v.fn.Loops
	for _, s := range v.fn.Succs(id) {
		if !v.mayLeave(id, s) {
			continue
		}
		e := cfg.BlockEdge{From: id, To: s}
		back := lf.IsBackEdge(id, s)
		if back {
			if v.taken[e] {
				continue
			}
			v.taken[e] = true
			v.iterated[lf.HeaderLoop(s)]++
		}
		v.walk(s, append(path, s))
		if back {
			v.taken[e] = false
			v.iterated[lf.HeaderLoop(s)]--
		}
	}
}

// mayLeave 边 from -> to 离开的常量循环是否都已迭代过
func (v *pathWalker) mayLeave(from, to cfg.BlockID) bool {
	lf := v.fn.Loops
	for l := lf.LoopFor(from); l != cfg.NoLoop; l = lf.Parent(l) {
		if lf.Contains(l, to) {
			break
		}
		if v.constant != nil && v.constant(lf.Loop(l).Header) && v.iterated[l] == 0 {
			return false
		}
	}
	return true
}

func onPath(path []cfg.BlockID, id cfg.BlockID) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}
