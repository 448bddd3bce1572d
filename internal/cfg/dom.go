package cfg

// ============================================================================
// 遍历顺序与支配树
// ============================================================================

// computeOrder 从入口做深度优先遍历，计算逆后序
func (f *Function) computeOrder() {
	n := len(f.Blocks)
	f.rpoNum = make([]int, n)
	for i := range f.rpoNum {
		f.rpoNum[i] = -1
	}

	visited := make([]bool, n)
	post := make([]BlockID, 0, n)

	type frame struct {
		id   BlockID
		next int
	}
	stack := []frame{{id: f.Entry}}
	visited[f.Entry] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := f.Blocks[top.id].Succs
		if top.next < len(succs) {
			s := succs[top.next]
			top.next++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{id: s})
			}
			continue
		}
		post = append(post, top.id)
		stack = stack[:len(stack)-1]
	}

	f.rpo = make([]BlockID, len(post))
	for i, id := range post {
		f.rpo[len(post)-1-i] = id
	}
	for i, id := range f.rpo {
		f.rpoNum[id] = i
	}
}

// computeDominators 计算直接支配者
// 使用 Cooper 等人的简化算法
func (f *Function) computeDominators() {
	f.idom = make([]BlockID, len(f.Blocks))
	for i := range f.idom {
		f.idom[i] = NoBlock
	}
	f.idom[f.Entry] = f.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range f.rpo {
			if b == f.Entry {
				continue
			}

			// 找到第一个已处理的前驱
			newIdom := NoBlock
			for _, pred := range f.Blocks[b].Preds {
				if f.idom[pred] != NoBlock {
					newIdom = pred
					break
				}
			}
			if newIdom == NoBlock {
				continue
			}

			// 与其他已处理的前驱求交集
			for _, pred := range f.Blocks[b].Preds {
				if pred == newIdom || f.idom[pred] == NoBlock {
					continue
				}
				newIdom = f.intersect(pred, newIdom)
			}

			if f.idom[b] != newIdom {
				f.idom[b] = newIdom
				changed = true
			}
		}
	}
}

// intersect 两个块的最近公共支配者
func (f *Function) intersect(b1, b2 BlockID) BlockID {
	finger1, finger2 := b1, b2
	for finger1 != finger2 {
		for f.rpoNum[finger1] > f.rpoNum[finger2] {
			finger1 = f.idom[finger1]
		}
		for f.rpoNum[finger2] > f.rpoNum[finger1] {
			finger2 = f.idom[finger2]
		}
	}
	return finger1
}
