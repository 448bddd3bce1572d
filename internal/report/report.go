// Package report 把分析结果整理为可序列化的报告
//
// 报告只包含确定性的内容（按函数、块、类的顺序排列的切片），
// 相同输入的两次运行产生完全相同的 JSON 与指纹。
package report

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/pipeline"
	"github.com/tangzhangming/singlepath/internal/scheduler"
)

// Module 模块报告
type Module struct {
	Name      string           `json:"name"`
	Functions []*Function      `json:"functions"`
	Summary   pipeline.Summary `json:"summary"`
	Errors    []string         `json:"errors,omitempty"`
}

// Function 函数报告
type Function struct {
	Name         string        `json:"name"`
	Blocks       int           `json:"blocks"`
	Loops        int           `json:"loops"`
	SoftFailure  bool          `json:"soft_failure,omitempty"`
	Classes      []Class       `json:"classes,omitempty"`
	Compensation *Compensation `json:"compensation,omitempty"`
	Schedules    []Schedule    `json:"schedules,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// Class 等价类
type Class struct {
	ID     int      `json:"id"`
	Root   string   `json:"root"`
	Deps   []string `json:"deps"`
	Blocks []string `json:"blocks"`
	// Related 可能同时启用的其他类
	Related []int `json:"related,omitempty"`
}

// Compensation 访存补偿
type Compensation struct {
	Strategy     string   `json:"strategy"`
	Min          int64    `json:"min"`
	Max          int64    `json:"max"`
	CounterCost  int      `json:"counter_cost"`
	OppositeCost int      `json:"opposite_cost"`
	Edges        []Amount `json:"edges,omitempty"`
	Plan         []string `json:"plan,omitempty"`
}

// Amount 一条边上的补偿值
type Amount struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Schedule 一个块的调度结果
type Schedule struct {
	Block   string   `json:"block"`
	Bundles [][2]int `json:"bundles"`
	NoOps   int      `json:"noops"`
}

// Build 从模块分析结果生成报告
// err 是 RunModule 返回的合并错误，逐条记录
func Build(res *pipeline.Result, err error) *Module {
	rep := &Module{}
	for _, e := range multierr.Errors(err) {
		rep.Errors = append(rep.Errors, e.Error())
	}
	if res == nil {
		return rep
	}
	rep.Name = res.Module.Name
	rep.Summary = res.Stats.Snapshot()
	for _, u := range res.Units {
		if u != nil {
			rep.Functions = append(rep.Functions, BuildFunction(u))
		}
	}
	return rep
}

// BuildFunction 单个函数的报告
func BuildFunction(u *pipeline.Unit) *Function {
	fn := u.Fn
	f := &Function{
		Name:        u.Desc.Name,
		SoftFailure: u.SoftFailure,
	}
	if fn == nil {
		return f
	}
	f.Blocks = fn.Len()
	f.Loops = fn.Loops.Len()

	if u.Classes != nil {
		deps := u.Classes.Dependencies()
		for _, cl := range u.Classes.Classes() {
			c := Class{ID: cl.ID, Related: related(deps[cl.ID], cl.ID)}
			if cl.ID < len(u.Roots) && u.Roots[cl.ID] != cfg.NoBlock {
				c.Root = fn.NameOf(u.Roots[cl.ID])
			}
			for _, e := range cl.Deps {
				c.Deps = append(c.Deps, edgeName(fn, e))
			}
			for _, b := range cl.Blocks {
				c.Blocks = append(c.Blocks, fn.NameOf(b))
			}
			f.Classes = append(f.Classes, c)
		}
	}

	if d := u.Decision; d != nil {
		c := &Compensation{
			Strategy:     string(d.Strategy),
			Min:          d.Bounds.Min,
			Max:          d.Bounds.Max,
			CounterCost:  d.CounterCost,
			OppositeCost: d.OppositeCost,
		}
		for _, e := range d.Compensation.Edges() {
			c.Edges = append(c.Edges, Amount{
				From:   fn.NameOf(e.From),
				To:     fn.NameOf(e.To),
				Amount: d.Compensation[e],
			})
		}
		if d.Plan != nil {
			for _, in := range d.Plan.Instrs {
				c.Plan = append(c.Plan, fmt.Sprintf("%s: %s", fn.NameOf(in.Block), in))
			}
		}
		f.Compensation = c
	}

	for id, s := range u.Schedules {
		if s == nil {
			continue
		}
		bid := cfg.BlockID(id)
		sched := Schedule{Block: fn.NameOf(bid), NoOps: s.NoOps()}
		for _, b := range u.Bundles(bid) {
			sched.Bundles = append(sched.Bundles, [2]int(b))
		}
		f.Schedules = append(f.Schedules, sched)
	}

	for _, w := range u.Warnings {
		f.Warnings = append(f.Warnings, w.Error())
	}
	return f
}

// related 去掉类自身
func related(ids []int, self int) []int {
	var out []int
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// edgeName 以块名表示控制依赖边，入口边的源写作 entry
func edgeName(fn *cfg.Function, e cfg.Edge) string {
	src := "entry"
	if b, ok := e.Source.Block(); ok {
		src = fn.NameOf(b)
	}
	return src + "->" + fn.NameOf(e.Target)
}

// bundleText 发射包的文本形式
func bundleText(b [2]int) string {
	slots := make([]string, 0, 2)
	for _, idx := range b {
		if idx == scheduler.NoOp {
			slots = append(slots, "nop")
		} else {
			slots = append(slots, fmt.Sprint(idx))
		}
	}
	return strings.Join(slots, " | ")
}
