// Package postdom 前向控制流图 (FCFG) 上的后支配关系与控制依赖
//
// 每个循环一棵树：循环内部的 FCFG 中内层循环收缩为其循环头，
// 回边块与离开循环的出口块是根。函数层的树以唯一的结束块为根。
package postdom

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// Tree 一个区域（函数或循环）的后支配关系
type Tree struct {
	fn    *cfg.Function
	loop  cfg.LoopID
	doms  map[cfg.BlockID]cfg.BlockSet
	inner []*Tree
}

type builder struct {
	fn      *cfg.Function
	maxIter int
}

// Compute 计算函数及其所有循环的后支配关系
// 函数必须只有一个结束块
func Compute(fn *cfg.Function, c *config.Config) (*Tree, error) {
	maxIter, log := config.DefaultMaxIterations, zap.NewNop()
	if c != nil {
		maxIter, log = c.MaxIterations, c.Logger()
	}
	end, ok := fn.End()
	if !ok {
		return nil, errors.Fatal(errors.SP0102, "function has %d exit blocks", len(fn.Ends())).
			InFunction(fn.Name)
	}
	b := &builder{fn: fn, maxIter: maxIter}
	t, err := b.build(cfg.NoLoop, []cfg.BlockID{end})
	if err != nil {
		return nil, err
	}
	log.Debug("fcfg post-dominators",
		zap.String("function", fn.Name),
		zap.Int("loops", fn.Loops.Len()),
	)
	return t, nil
}

func (b *builder) build(loop cfg.LoopID, roots []cfg.BlockID) (*Tree, error) {
	t := &Tree{fn: b.fn, loop: loop, doms: make(map[cfg.BlockID]cfg.BlockSet)}
	if err := b.calculate(t, roots); err != nil {
		return nil, err
	}

	lf := b.fn.Loops
	var children []cfg.LoopID
	if loop == cfg.NoLoop {
		children = lf.TopLevel()
	} else {
		children = lf.Loop(loop).Children
	}
	for _, child := range children {
		inner, err := b.build(child, loopRoots(b.fn, child))
		if err != nil {
			return nil, err
		}
		t.inner = append(t.inner, inner)
	}
	return t, nil
}

// loopRoots 循环的根：出口边的源与回边块
// 位于内层循环中的块由内层循环头代表
func loopRoots(fn *cfg.Function, id cfg.LoopID) []cfg.BlockID {
	loop := fn.Loops.Loop(id)
	roots := cfg.NewSet()
	for _, e := range loop.Exits {
		if n, ok := fn.FCFGNode(e.From, id); ok {
			roots.Add(n)
		}
	}
	for _, latch := range loop.Latches {
		if n, ok := fn.FCFGNode(latch, id); ok {
			roots.Add(n)
		}
	}
	return cfg.Sorted(roots)
}

// calculate 从根出发沿前驱方向求后支配者
// 一个节点的所有 FCFG 后继都求出后才处理该节点
func (b *builder) calculate(t *Tree, roots []cfg.BlockID) error {
	var queue []cfg.BlockID
	pushPreds := func(id cfg.BlockID) {
		for _, p := range b.fn.Preds(id) {
			if n, ok := b.fn.FCFGNode(p, t.loop); ok {
				queue = append(queue, n)
			}
		}
	}

	for _, root := range roots {
		t.doms[root] = cfg.NewSet(root)
	}
	for _, root := range roots {
		pushPreds(root)
	}

	limit := b.maxIter * (b.fn.Len() + 1)
	waiting := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, done := t.doms[cur]; done {
			continue
		}

		succs := t.successors(cur)
		ready := true
		for _, s := range succs {
			if _, done := t.doms[s]; !done {
				ready = false
				break
			}
		}
		if !ready {
			waiting++
			if waiting > limit {
				return errors.Internal(errors.SP0205, "post-dominators exceeded %d steps", limit).
					InFunction(b.fn.Name).AtLoop(b.fn.LoopName(t.loop))
			}
			queue = append(queue, cur)
			continue
		}

		sets := make([]cfg.BlockSet, len(succs))
		for i, s := range succs {
			sets[i] = t.doms[s]
		}
		doms := cfg.Intersection(sets...)
		doms.Add(cur)
		t.doms[cur] = doms
		pushPreds(cur)
	}
	return nil
}

// successors 节点在本区域 FCFG 中的后继
// 内层循环头的后继是该循环留在本区域内的出口目标
func (t *Tree) successors(id cfg.BlockID) []cfg.BlockID {
	lf := t.fn.Loops
	out := cfg.NewSet()
	if lf.IsHeader(id) && (t.loop == cfg.NoLoop || lf.Loop(t.loop).Header != id) {
		for _, e := range lf.Loop(lf.HeaderLoop(id)).Exits {
			if lf.Contains(t.loop, e.To) {
				out.Add(e.To)
			}
		}
		return cfg.Sorted(out)
	}
	for _, s := range t.fn.Succs(id) {
		if n, ok := t.fn.FCFGNode(s, t.loop); ok {
			out.Add(n)
		}
	}
	return cfg.Sorted(out)
}

// Loop 树所属的循环，函数层为 NoLoop
func (t *Tree) Loop() cfg.LoopID {
	return t.loop
}

// Inner 直接内层循环的树
func (t *Tree) Inner() []*Tree {
	return t.inner
}

// PostDominators 本区域中后支配 id 的块，id 不在本区域时为 nil
func (t *Tree) PostDominators(id cfg.BlockID) cfg.BlockSet {
	return t.doms[id]
}

// PostDominates a 是否在本区域或任一内层区域中后支配 b
func (t *Tree) PostDominates(a, b cfg.BlockID) bool {
	if d, ok := t.doms[b]; ok && d.Contains(a) {
		return true
	}
	for _, inner := range t.inner {
		if inner.PostDominates(a, b) {
			return true
		}
	}
	return false
}

// dominees 被 id 后支配的块，包括内层区域
func (t *Tree) dominees(id cfg.BlockID, out cfg.BlockSet) {
	for b, d := range t.doms {
		if d.Contains(id) {
			out.Add(b)
		}
	}
	for _, inner := range t.inner {
		inner.dominees(id, out)
	}
}

// Format 缩进列出每个区域的后支配集合
func (t *Tree) Format() string {
	var sb strings.Builder
	t.format(&sb, 0)
	return sb.String()
}

func (t *Tree) format(sb *strings.Builder, indent int) {
	fmt.Fprintf(sb, "%s%s:\n", strings.Repeat("  ", indent), t.fn.LoopName(t.loop))
	for _, id := range cfg.Sorted(keys(t.doms)) {
		names := make([]string, 0, t.doms[id].Cardinality())
		for _, d := range cfg.Sorted(t.doms[id]) {
			names = append(names, t.fn.NameOf(d))
		}
		fmt.Fprintf(sb, "%s  %s: {%s}\n", strings.Repeat("  ", indent), t.fn.NameOf(id), strings.Join(names, ", "))
	}
	for _, inner := range t.inner {
		inner.format(sb, indent+1)
	}
}

func keys(m map[cfg.BlockID]cfg.BlockSet) cfg.BlockSet {
	s := cfg.NewSet()
	for id := range m {
		s.Add(id)
	}
	return s
}
