package cfg

import (
	"sort"

	"github.com/tangzhangming/singlepath/internal/errors"
)

// ============================================================================
// 循环森林
// ============================================================================

// LoopID 循环在森林中的编号
type LoopID int

// NoLoop 表示不在任何循环中（或整个函数）
const NoLoop LoopID = -1

// Loop 自然循环
type Loop struct {
	ID       LoopID
	Header   BlockID
	Blocks   []BlockID   // 循环头在前，其余按函数顺序
	Latches  []BlockID   // 有回边指向循环头的块
	Exiting  []BlockID   // 有后继在循环外的块
	Exits    []BlockEdge // 离开循环的边，按出口块、后继顺序
	Parent   LoopID
	Children []LoopID
	Depth    int // 最外层为 1

	members BlockSet
}

// Contains 块是否属于循环（含嵌套循环）
func (l *Loop) Contains(id BlockID) bool {
	return l.members.Contains(id)
}

// IsLatch 是否为本循环的回边块
func (l *Loop) IsLatch(id BlockID) bool {
	for _, latch := range l.Latches {
		if latch == id {
			return true
		}
	}
	return false
}

// IsExiting 是否为本循环的出口块
func (l *Loop) IsExiting(id BlockID) bool {
	for _, e := range l.Exiting {
		if e == id {
			return true
		}
	}
	return false
}

// Members 循环成员集合的副本
func (l *Loop) Members() BlockSet {
	return l.members.Clone()
}

// LoopForest 循环森林
// 循环按循环头编号存放在切片中，父子关系用编号表示
type LoopForest struct {
	loops     []Loop
	innermost []LoopID // 块 -> 最内层循环
	header    []LoopID // 块 -> 以其为头的循环
	top       []LoopID
}

// buildLoopForest 由回边构建自然循环，并检查可归约性
func buildLoopForest(fn *Function) (*LoopForest, error) {
	n := len(fn.Blocks)

	// 收集回边，按循环头合并
	latchesOf := make(map[BlockID][]BlockID)
	var headers []BlockID
	for _, u := range fn.rpo {
		for _, v := range fn.Blocks[u].Succs {
			if fn.rpoNum[v] > fn.rpoNum[u] {
				continue
			}
			if !fn.Dominates(v, u) {
				return nil, errors.Fatal(errors.SP0100, "edge %s -> %s enters a loop without passing its header",
					fn.NameOf(u), fn.NameOf(v)).InFunction(fn.Name).AtBlock(fn.NameOf(v))
			}
			if _, seen := latchesOf[v]; !seen {
				headers = append(headers, v)
			}
			latchesOf[v] = append(latchesOf[v], u)
		}
	}
	SortIDs(headers)

	lf := &LoopForest{
		loops:     make([]Loop, len(headers)),
		innermost: make([]LoopID, n),
		header:    make([]LoopID, n),
	}
	for i := range lf.innermost {
		lf.innermost[i] = NoLoop
		lf.header[i] = NoLoop
	}

	// 每个循环头的自然循环体
	for i, h := range headers {
		members := NewSet(h)
		var worklist []BlockID
		for _, latch := range latchesOf[h] {
			if members.Add(latch) {
				worklist = append(worklist, latch)
			}
		}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, p := range fn.Blocks[b].Preds {
				if members.Add(p) {
					worklist = append(worklist, p)
				}
			}
		}

		latches := SortIDs(append([]BlockID(nil), latchesOf[h]...))
		lf.loops[i] = Loop{
			ID:      LoopID(i),
			Header:  h,
			Latches: latches,
			Parent:  NoLoop,
			members: members,
		}
		lf.header[h] = LoopID(i)
	}

	// 嵌套关系：包含它的最小循环为父循环
	for i := range lf.loops {
		l := &lf.loops[i]
		best := NoLoop
		for j := range lf.loops {
			if i == j {
				continue
			}
			o := &lf.loops[j]
			if !o.members.Contains(l.Header) || o.members.Cardinality() <= l.members.Cardinality() {
				continue
			}
			if best == NoLoop || o.members.Cardinality() < lf.loops[best].members.Cardinality() {
				best = LoopID(j)
			}
		}
		l.Parent = best
	}
	for i := range lf.loops {
		l := &lf.loops[i]
		if l.Parent == NoLoop {
			lf.top = append(lf.top, l.ID)
		} else {
			p := &lf.loops[l.Parent]
			p.Children = append(p.Children, l.ID)
		}
	}
	for i := range lf.loops {
		depth := 1
		for p := lf.loops[i].Parent; p != NoLoop; p = lf.loops[p].Parent {
			depth++
		}
		lf.loops[i].Depth = depth
	}

	// 块的最内层循环：包含它的最深循环
	for i := range lf.loops {
		l := &lf.loops[i]
		for _, b := range l.members.ToSlice() {
			cur := lf.innermost[b]
			if cur == NoLoop || lf.loops[cur].Depth < l.Depth {
				lf.innermost[b] = l.ID
			}
		}
	}

	// 块列表、出口块与出口边
	for i := range lf.loops {
		l := &lf.loops[i]
		blocks := Sorted(l.members)
		l.Blocks = append([]BlockID{l.Header}, without(blocks, l.Header)...)
		for _, b := range blocks {
			exiting := false
			for _, s := range fn.Blocks[b].Succs {
				if !l.members.Contains(s) {
					exiting = true
					l.Exits = append(l.Exits, BlockEdge{From: b, To: s})
				}
			}
			if exiting {
				l.Exiting = append(l.Exiting, b)
			}
		}
	}

	return lf, nil
}

func without(ids []BlockID, drop BlockID) []BlockID {
	out := make([]BlockID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// Len 循环数量
func (lf *LoopForest) Len() int {
	return len(lf.loops)
}

// Loop 按编号取循环
func (lf *LoopForest) Loop(id LoopID) *Loop {
	return &lf.loops[id]
}

// All 所有循环，按循环头顺序
func (lf *LoopForest) All() []*Loop {
	out := make([]*Loop, len(lf.loops))
	for i := range lf.loops {
		out[i] = &lf.loops[i]
	}
	return out
}

// TopLevel 最外层循环
func (lf *LoopForest) TopLevel() []LoopID {
	return lf.top
}

// PostOrder 内层循环先于外层循环
func (lf *LoopForest) PostOrder() []LoopID {
	var order []LoopID
	var visit func(id LoopID)
	visit = func(id LoopID) {
		for _, c := range lf.loops[id].Children {
			visit(c)
		}
		order = append(order, id)
	}
	for _, id := range lf.top {
		visit(id)
	}
	return order
}

// LoopFor 包含块的最内层循环
func (lf *LoopForest) LoopFor(id BlockID) LoopID {
	return lf.innermost[id]
}

// Depth 块的循环嵌套深度，不在循环中为 0
func (lf *LoopForest) Depth(id BlockID) int {
	return lf.LoopDepth(lf.innermost[id])
}

// LoopDepth 循环深度，NoLoop 为 0
func (lf *LoopForest) LoopDepth(id LoopID) int {
	if id == NoLoop {
		return 0
	}
	return lf.loops[id].Depth
}

// Parent 父循环
func (lf *LoopForest) Parent(id LoopID) LoopID {
	if id == NoLoop {
		return NoLoop
	}
	return lf.loops[id].Parent
}

// IsHeader 块是否为循环头
func (lf *LoopForest) IsHeader(id BlockID) bool {
	return lf.header[id] != NoLoop
}

// HeaderLoop 以块为头的循环
func (lf *LoopForest) HeaderLoop(id BlockID) LoopID {
	return lf.header[id]
}

// Contains 循环是否包含块，NoLoop 包含所有块
func (lf *LoopForest) Contains(loop LoopID, id BlockID) bool {
	if loop == NoLoop {
		return true
	}
	return lf.loops[loop].Contains(id)
}

// IsBackEdge 边 from -> to 是否为回边
func (lf *LoopForest) IsBackEdge(from, to BlockID) bool {
	l := lf.header[to]
	return l != NoLoop && lf.loops[l].IsLatch(from)
}

// IsLatchEdge 同 IsBackEdge，按循环判断
func (lf *LoopForest) IsLatchEdge(loop LoopID, from BlockID) bool {
	return loop != NoLoop && lf.loops[loop].IsLatch(from)
}

// AncestorAt 沿父链向上找到深度为 depth 的循环
func (lf *LoopForest) AncestorAt(id LoopID, depth int) LoopID {
	for id != NoLoop && lf.loops[id].Depth > depth {
		id = lf.loops[id].Parent
	}
	if id != NoLoop && lf.loops[id].Depth != depth {
		return NoLoop
	}
	return id
}

// OutermostInner 包含块的、loop 的直接子循环
// 块不在 loop 的子循环中时返回 NoLoop
func (lf *LoopForest) OutermostInner(loop LoopID, id BlockID) LoopID {
	inner := lf.innermost[id]
	if inner == NoLoop || inner == loop {
		return NoLoop
	}
	target := lf.LoopDepth(loop) + 1
	inner = lf.AncestorAt(inner, target)
	if inner == NoLoop || lf.loops[inner].Parent != loop {
		return NoLoop
	}
	return inner
}

// LoopName 循环头名称，用于诊断
func (f *Function) LoopName(id LoopID) string {
	if id == NoLoop {
		return f.Name
	}
	return f.NameOf(f.Loops.loops[id].Header)
}

// SortLoops 按循环头排序
func (lf *LoopForest) SortLoops(ids []LoopID) {
	sort.Slice(ids, func(i, j int) bool {
		return lf.loops[ids[i]].Header < lf.loops[ids[j]].Header
	})
}
