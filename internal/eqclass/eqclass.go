// Package eqclass 按控制依赖划分基本块的等价类
//
// 控制依赖集合相同的块属于同一个等价类，共用一个谓词寄存器。
// 类编号按函数中块的顺序从 0 开始分配，同时作为谓词编号。
package eqclass

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/postdom"
)

// ============================================================================
// 等价类
// ============================================================================

// Class 一个等价类
type Class struct {
	ID     int
	Deps   []cfg.Edge    // 控制依赖边，按 Edge.Less 排序
	Blocks []cfg.BlockID // 成员块，升序

	deps cfg.EdgeSet
}

func (c *Class) String() string {
	deps := make([]string, len(c.Deps))
	for i, e := range c.Deps {
		deps[i] = e.String()
	}
	blocks := make([]string, len(c.Blocks))
	for i, b := range c.Blocks {
		blocks[i] = b.String()
	}
	return fmt.Sprintf("(%d) deps {%s} blocks {%s}", c.ID, strings.Join(deps, ", "), strings.Join(blocks, ", "))
}

// Table 函数的等价类表
type Table struct {
	fn      *cfg.Function
	classes []*Class
	of      []int             // 块 -> 类编号
	related []mapset.Set[int] // 类 -> 可能同时执行的类
}

// Compute 按依赖集合对块分组
// 没有依赖边的块视为依赖空集合
func Compute(fn *cfg.Function, deps postdom.Dependencies, c *config.Config) *Table {
	log := zap.NewNop()
	if c != nil {
		log = c.Logger()
	}

	t := &Table{fn: fn, of: make([]int, fn.Len())}
	for _, b := range fn.Blocks {
		set, ok := deps[b.ID]
		if !ok {
			set = cfg.NewEdgeSet()
		}

		found := -1
		for _, cl := range t.classes {
			if cl.deps.Equal(set) {
				found = cl.ID
				break
			}
		}
		if found < 0 {
			found = len(t.classes)
			t.classes = append(t.classes, &Class{
				ID:   found,
				Deps: cfg.SortedEdges(set),
				deps: set,
			})
		}
		t.classes[found].Blocks = append(t.classes[found].Blocks, b.ID)
		t.of[b.ID] = found
	}
	t.related = t.dependencies()

	log.Debug("equivalence classes",
		zap.String("function", fn.Name),
		zap.Int("blocks", fn.Len()),
		zap.Int("classes", len(t.classes)),
	)
	return t
}

// Len 类的数量
func (t *Table) Len() int {
	return len(t.classes)
}

// Classes 所有类，按编号排列
func (t *Table) Classes() []*Class {
	return t.classes
}

// Class 按编号取类
func (t *Table) Class(id int) *Class {
	return t.classes[id]
}

// ClassOf 块所在的类
func (t *Table) ClassOf(id cfg.BlockID) *Class {
	return t.classes[t.of[id]]
}

// ============================================================================
// 根校验
// ============================================================================

// Roots 每个类的根：被类中其他所有成员后支配的成员
// 根不唯一的类报告 SP0200，所有违例一并返回
func (t *Table) Roots(pdt *postdom.Tree) ([]cfg.BlockID, error) {
	roots := make([]cfg.BlockID, len(t.classes))
	var errs error
	for _, cl := range t.classes {
		var found []cfg.BlockID
		for _, cand := range cl.Blocks {
			root := true
			for _, other := range cl.Blocks {
				if other != cand && !pdt.PostDominates(other, cand) {
					root = false
					break
				}
			}
			if root {
				found = append(found, cand)
			}
		}
		if len(found) != 1 {
			roots[cl.ID] = cfg.NoBlock
			errs = multierr.Append(errs,
				errors.Internal(errors.SP0200, "class %d has %d roots among %d blocks", cl.ID, len(found), len(cl.Blocks)).
					InFunction(t.fn.Name))
			continue
		}
		roots[cl.ID] = found[0]
	}
	return roots, errs
}

// VerifyRoots 每个类必须恰好有一个根
func (t *Table) VerifyRoots(pdt *postdom.Tree) error {
	_, err := t.Roots(pdt)
	return err
}

// ============================================================================
// 类之间的依赖
// ============================================================================

// dependencies 不经过回边时一个类能到达另一个类，两者就可能在同一次执行中都启用
func (t *Table) dependencies() []mapset.Set[int] {
	lf := t.fn.Loops
	related := make([]mapset.Set[int], len(t.classes))
	for i := range related {
		related[i] = mapset.NewThreadUnsafeSet[int]()
	}

	for _, cl := range t.classes {
		queue := append([]cfg.BlockID(nil), cl.Blocks...)
		done := cfg.NewSet()
		for len(queue) > 0 {
			b := queue[0]
			queue = queue[1:]
			if done.Contains(b) {
				continue
			}
			done.Add(b)

			other := t.of[b]
			related[cl.ID].Add(other)
			related[other].Add(cl.ID)

			for _, s := range t.fn.Succs(b) {
				if !lf.IsBackEdge(b, s) && !done.Contains(s) {
					queue = append(queue, s)
				}
			}
		}
	}
	return related
}

// Dependencies 类 -> 与之相关的类，升序
func (t *Table) Dependencies() map[int][]int {
	out := make(map[int][]int, len(t.related))
	for id, s := range t.related {
		out[id] = sortedInts(s)
	}
	return out
}

// Related 两个类是否可能同时启用，未知的类总是相关
func (t *Table) Related(a, b int) bool {
	if a < 0 || a >= len(t.related) || b < 0 || b >= len(t.related) {
		return true
	}
	return t.related[a].Contains(b)
}

func sortedInts(s mapset.Set[int]) []int {
	ids := s.ToSlice()
	sort.Ints(ids)
	return ids
}
