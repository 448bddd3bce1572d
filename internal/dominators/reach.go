package dominators

import (
	"github.com/willf/bitset"

	"github.com/tangzhangming/singlepath/internal/cfg"
)

// Reachability 以某个起点为视角的 FCFG 可达关系
// FCFG 无环，每个节点一行位图，按后序一次求出
type Reachability struct {
	index map[cfg.BlockID]uint
	rows  []*bitset.BitSet
}

// Reach 计算从 start 出发的 FCFG 上任意两个节点间的可达关系
func Reach(fn *cfg.Function, start cfg.BlockID) *Reachability {
	r := &Reachability{index: make(map[cfg.BlockID]uint)}

	// 迭代 DFS 求后序
	var order []cfg.BlockID
	type frame struct {
		id    cfg.BlockID
		succs []cfg.BlockID
		next  int
	}
	visited := cfg.NewSet(start)
	stack := []frame{{id: start, succs: fn.FCFGSuccessors(start, start)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.succs) {
			s := top.succs[top.next]
			top.next++
			if visited.Add(s) {
				stack = append(stack, frame{id: s, succs: fn.FCFGSuccessors(s, start)})
			}
			continue
		}
		order = append(order, top.id)
		stack = stack[:len(stack)-1]
	}

	for i, id := range order {
		r.index[id] = uint(i)
	}
	r.rows = make([]*bitset.BitSet, len(order))
	n := uint(len(order))
	for i, id := range order {
		row := bitset.New(n)
		row.Set(uint(i))
		for _, s := range fn.FCFGSuccessors(id, start) {
			if j, ok := r.index[s]; ok {
				row.InPlaceUnion(r.rows[j])
			}
		}
		r.rows[i] = row
	}
	return r
}

// Reachable a 是否能到达 b（包括 a == b）
func (r *Reachability) Reachable(a, b cfg.BlockID) bool {
	i, ok := r.index[a]
	if !ok {
		return false
	}
	j, ok := r.index[b]
	if !ok {
		return false
	}
	return r.rows[i].Test(j)
}

// Between d 是否严格位于 a 与 b 之间
func (r *Reachability) Between(a, d, b cfg.BlockID) bool {
	return d != a && d != b && r.Reachable(a, d) && r.Reachable(d, b)
}

func (r *Reachability) reachesAny(a cfg.BlockID, targets []cfg.BlockID) bool {
	for _, t := range targets {
		if r.Reachable(a, t) {
			return true
		}
	}
	return false
}
