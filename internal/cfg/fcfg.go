package cfg

// ============================================================================
// 前向控制流图 (FCFG)
// ============================================================================
//
// 以某个起点（循环头或函数入口）为视角：内层循环收缩为其循环头，
// 循环头的后继是该循环的出口边目标，回边被省略。

// FCFGSuccessors 以 start 为视角时 current 的后继，按编号升序
func (f *Function) FCFGSuccessors(current, start BlockID) []BlockID {
	lf := f.Loops
	startDepth := lf.Depth(start)
	startLoop := lf.LoopFor(start)

	var candidates []BlockID
	if current != start && lf.IsHeader(current) {
		loop := lf.Loop(lf.HeaderLoop(current))
		for _, e := range loop.Exits {
			d := lf.Depth(e.To)
			if d == startDepth || d == startDepth+1 {
				candidates = append(candidates, e.To)
			}
		}
	} else {
		candidates = f.Blocks[current].Succs
	}

	seen := NewSet()
	var succs []BlockID
	for _, s := range candidates {
		if s == start {
			continue
		}
		d := lf.Depth(s)
		if d < startDepth || (d == startDepth && lf.LoopFor(s) != startLoop) {
			continue
		}
		if seen.Add(s) {
			succs = append(succs, s)
		}
	}
	return SortIDs(succs)
}

// FCFGNode 块在 loop 的 FCFG 中对应的节点
// 内层循环中的块映射为 loop 的直接子循环的循环头；loop 外的块没有对应节点
func (f *Function) FCFGNode(id BlockID, loop LoopID) (BlockID, bool) {
	lf := f.Loops
	if lf.LoopFor(id) == loop {
		return id, true
	}
	if !lf.Contains(loop, id) {
		return NoBlock, false
	}
	inner := lf.OutermostInner(loop, id)
	if inner == NoLoop {
		return NoBlock, false
	}
	return lf.Loop(inner).Header, true
}

// InnerHeaderAt 块所在的、深度为 depth 的循环的循环头
// 块的深度不超过 depth 时返回块本身
func (f *Function) InnerHeaderAt(id BlockID, depth int) BlockID {
	lf := f.Loops
	if lf.Depth(id) <= depth {
		return id
	}
	l := lf.AncestorAt(lf.LoopFor(id), depth)
	if l == NoLoop {
		return id
	}
	return lf.Loop(l).Header
}
