// graph.go - 指令依赖图
//
// 依赖边记录两条指令发射周期之间的最小距离：
// 后继的发射周期 >= 前驱的发射周期 + 距离。
//
//   真依赖（写后读）      强依赖，距离 = 延迟 + 1；读者是调用时距离 = 延迟
//   反依赖（读后写）      弱依赖，距离 0（可同包）；读者是调用时距离 1
//   输出依赖（写后写）    弱依赖，距离 1
//   访存顺序              弱依赖，距离 1
//   控制依赖（条件跳转后）弱依赖，距离 1
//   条件跳转之前的指令    弱依赖，距离 0
//
// 常量寄存器不产生依赖。按等价类相互独立的指令之间没有寄存器和访存依赖，
// 向前查找会越过它们继续进行。

package scheduler

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ============================================================================
// 依赖图节点
// ============================================================================

// Dep 一条依赖边
type Dep struct {
	Distance int
	// Strong 前驱必须执行完毕，否则只需已发射
	Strong bool
}

// Node 依赖图节点，对应一条指令
type Node struct {
	Index   int
	Latency int // 优先级使用的有效延迟
	Preds   map[int]Dep
	Succs   mapset.Set[int]
}

// Graph 一个基本块的依赖图
type Graph struct {
	Nodes []*Node
}

func (g *Graph) addDep(to, from int, d Dep) {
	n := g.Nodes[to]
	if old, ok := n.Preds[from]; ok {
		d.Distance = max(d.Distance, old.Distance)
		d.Strong = d.Strong || old.Strong
	}
	n.Preds[from] = d
	g.Nodes[from].Succs.Add(to)
}

// Roots 不依赖任何指令的节点
func (g *Graph) Roots() []int {
	var roots []int
	for _, n := range g.Nodes {
		if len(n.Preds) == 0 {
			roots = append(roots, n.Index)
		}
	}
	return roots
}

// String 按指令顺序列出依赖
func (g *Graph) String() string {
	var sb strings.Builder
	for _, n := range g.Nodes {
		preds := make([]int, 0, len(n.Preds))
		for p := range n.Preds {
			preds = append(preds, p)
		}
		sort.Ints(preds)
		parts := make([]string, len(preds))
		for i, p := range preds {
			kind := "weak"
			if n.Preds[p].Strong {
				kind = "strong"
			}
			parts[i] = fmt.Sprintf("%d/%s/%d", p, kind, n.Preds[p].Distance)
		}
		fmt.Fprintf(&sb, "%d: [%s]\n", n.Index, strings.Join(parts, ", "))
	}
	return sb.String()
}

// ============================================================================
// 构建
// ============================================================================

// BuildGraph 构建 n 条指令的依赖图
func BuildGraph(n int, in Introspection, dependent func(a, b int) bool) *Graph {
	if dependent == nil {
		dependent = func(a, b int) bool { return true }
	}
	g := &Graph{Nodes: make([]*Node, n)}
	for i := range g.Nodes {
		g.Nodes[i] = &Node{
			Index:   i,
			Latency: in.effectiveLatency(i),
			Preds:   make(map[int]Dep),
			Succs:   mapset.NewThreadUnsafeSet[int](),
		}
	}

	// lastDependent 从 i 向前找第一条满足 match 且与 i 相关的指令
	lastDependent := func(i int, match func(p int) bool) int {
		for p := i - 1; p >= 0; p-- {
			if match(p) && dependent(i, p) {
				return p
			}
		}
		return -1
	}

	lastBranch := -1
	var sinceBranch []int
	for i := 0; i < n; i++ {
		if lastBranch >= 0 {
			g.addDep(i, lastBranch, Dep{Distance: 1})
		}

		if in.memoryAccess(i) {
			if p := lastDependent(i, in.memoryAccess); p >= 0 {
				g.addDep(i, p, Dep{Distance: 1})
			}
		}

		call := in.isCall(i)
		for _, op := range in.reads(i) {
			if in.isConstant(op) {
				continue
			}
			if p := lastDependent(i, func(p int) bool { return in.writesOp(p, op) }); p >= 0 {
				d := in.latency(p) + 1
				if call {
					d = in.latency(p)
				}
				g.addDep(i, p, Dep{Distance: d, Strong: true})
			}
		}

		for _, op := range in.writes(i) {
			if in.isConstant(op) {
				continue
			}
			w := lastDependent(i, func(p int) bool { return in.writesOp(p, op) })
			if w >= 0 {
				g.addDep(i, w, Dep{Distance: 1})
			}
			// 上一次写之后的所有读
			for p := i - 1; p > w; p-- {
				if in.readsOp(p, op) && dependent(i, p) {
					d := 0
					if in.isCall(p) {
						d = 1
					}
					g.addDep(i, p, Dep{Distance: d})
				}
			}
		}

		if in.conditionalBranch(i) {
			for _, p := range sinceBranch {
				g.addDep(i, p, Dep{})
			}
			sinceBranch = sinceBranch[:0]
			lastBranch = i
		} else {
			sinceBranch = append(sinceBranch, i)
		}
	}
	return g
}
