// Package module 待转换程序的描述：模块、函数、基本块与指令
//
// 描述由 loader 从 YAML/TOML 读入，Build 把函数描述转换为只读的 cfg.Function。
// 块在描述中的顺序即函数顺序，第一个块是入口。
package module

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// 常量寄存器：读写都不产生依赖
const (
	ZeroRegister  = "r0"
	TruePredicate = "p0"
)

// Module 一个模块的所有函数
type Module struct {
	Name      string      `yaml:"name" toml:"name" json:"name"`
	Functions []*Function `yaml:"functions" toml:"functions" json:"functions"`
}

// Function 函数描述
type Function struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	// Root 单路径根函数，总是以启用状态执行
	Root bool `yaml:"root" toml:"root" json:"root,omitempty"`
	// PseudoRoot 只从根函数的常量循环支配者中调用的函数
	PseudoRoot bool     `yaml:"pseudo_root" toml:"pseudo_root" json:"pseudo_root,omitempty"`
	Blocks     []*Block `yaml:"blocks" toml:"blocks" json:"blocks"`
}

// Block 基本块描述
type Block struct {
	Name  string   `yaml:"name" toml:"name" json:"name"`
	Succs []string `yaml:"succs" toml:"succs" json:"succs,omitempty"`
	// Accesses 可变延迟访存次数；未给出时按指令统计
	Accesses *int64 `yaml:"accesses" toml:"accesses" json:"accesses,omitempty"`
	// Bound 循环头的迭代次数
	Bound  *config.Bound `yaml:"bound" toml:"bound" json:"bound,omitempty"`
	Instrs []*Instr      `yaml:"instrs" toml:"instrs" json:"instrs,omitempty"`
}

// Instr 指令描述
type Instr struct {
	Op      string   `yaml:"op" toml:"op" json:"op"`
	Reads   []string `yaml:"reads" toml:"reads" json:"reads,omitempty"`
	Writes  []string `yaml:"writes" toml:"writes" json:"writes,omitempty"`
	Latency int      `yaml:"latency" toml:"latency" json:"latency,omitempty"`

	Load    bool `yaml:"load" toml:"load" json:"load,omitempty"`
	Store   bool `yaml:"store" toml:"store" json:"store,omitempty"`
	Call    bool `yaml:"call" toml:"call" json:"call,omitempty"`
	Return  bool `yaml:"return" toml:"return" json:"return,omitempty"`
	Branch  bool `yaml:"branch" toml:"branch" json:"branch,omitempty"`
	Delayed bool `yaml:"delayed" toml:"delayed" json:"delayed,omitempty"`

	Long          bool `yaml:"long" toml:"long" json:"long,omitempty"`
	FirstSlot     bool `yaml:"first_slot" toml:"first_slot" json:"first_slot,omitempty"`
	NonBundleable bool `yaml:"non_bundleable" toml:"non_bundleable" json:"non_bundleable,omitempty"`

	// Negated 指令由所在块谓词的反谓词保护
	Negated bool `yaml:"negated" toml:"negated" json:"negated,omitempty"`
	// Unpredicated 指令总是执行，与所有指令相关
	Unpredicated bool `yaml:"unpredicated" toml:"unpredicated" json:"unpredicated,omitempty"`
}

// ============================================================================
// 指令属性
// ============================================================================

// IsConstant 操作数是否为常量寄存器
func IsConstant(op string) bool {
	return op == ZeroRegister || op == TruePredicate
}

// Poisons 写入结果在延迟结束前不可用
func (i *Instr) Poisons() bool {
	return i.Load
}

// MemoryAccess 是否参与访存排序
func (i *Instr) MemoryAccess() bool {
	return i.Load || i.Store || i.Call || i.Return
}

// ConditionalBranch 之后的指令控制依赖于它
func (i *Instr) ConditionalBranch() bool {
	return i.Branch || i.Return
}

// VariableLatency 是否为可变延迟访存
func (i *Instr) VariableLatency() bool {
	return i.Load || i.Store
}

func (i *Instr) String() string {
	var sb strings.Builder
	if len(i.Writes) > 0 {
		sb.WriteString(strings.Join(i.Writes, ", "))
		sb.WriteString(" = ")
	}
	sb.WriteString(i.Op)
	if len(i.Reads) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(i.Reads, ", "))
	}
	return sb.String()
}

// ============================================================================
// 函数
// ============================================================================

// RootLike 根函数或伪根函数
func (f *Function) RootLike() bool {
	return f.Root || f.PseudoRoot
}

// Build 构建控制流图，块编号与描述中的顺序一致
func (f *Function) Build() (*cfg.Function, error) {
	b := cfg.NewBuilder(f.Name)
	for i, blk := range f.Blocks {
		if blk.Name == "" {
			return nil, errors.Fatal(errors.SP0108, "block %d has no name", i).InFunction(f.Name)
		}
		b.NewBlock(blk.Name)
	}
	for _, blk := range f.Blocks {
		for _, succ := range blk.Succs {
			b.AddEdgeByName(blk.Name, succ)
		}
	}
	return b.Build()
}

// Block 按编号取块描述
func (f *Function) Block(id cfg.BlockID) *Block {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// Accesses 块的可变延迟访存次数
// 块描述没有给出次数时统计 load/store 指令
func (f *Function) Accesses(id cfg.BlockID) int64 {
	blk := f.Block(id)
	if blk == nil {
		return 0
	}
	if blk.Accesses != nil {
		return *blk.Accesses
	}
	var n int64
	for _, in := range blk.Instrs {
		if in.VariableLatency() {
			n++
		}
	}
	return n
}

// Bounds 每个循环头的迭代次数
//
// 描述中缺少边界时：annotation 来源报 SP0101，default 来源使用 DefaultLoopBound。
func (f *Function) Bounds(fn *cfg.Function, c *config.Config) (map[cfg.BlockID]config.Bound, error) {
	source, fallback := config.BoundsFromAnnotation, config.Bound{Min: 1, Max: 1}
	if c != nil {
		source, fallback = c.LoopBounds, c.DefaultLoopBound
	}

	bounds := make(map[cfg.BlockID]config.Bound)
	for _, loop := range fn.Loops.All() {
		header := loop.Header
		blk := f.Block(header)
		if blk == nil {
			return nil, errors.Fatal(errors.SP0106, "loop header %s has no description", header).InFunction(f.Name)
		}
		if blk.Bound == nil {
			if source != config.BoundsFromDefault {
				return nil, errors.Fatal(errors.SP0101, "").InFunction(f.Name).AtLoop(blk.Name)
			}
			bounds[header] = fallback
			continue
		}
		if blk.Bound.Min < 0 || blk.Bound.Min > blk.Bound.Max {
			return nil, errors.Fatal(errors.SP0108, "invalid loop bound [%d, %d]", blk.Bound.Min, blk.Bound.Max).
				InFunction(f.Name).AtLoop(blk.Name)
		}
		bounds[header] = *blk.Bound
	}
	return bounds, nil
}

// ============================================================================
// 模块
// ============================================================================

// Validate 检查函数名唯一且非空
func (m *Module) Validate() error {
	seen := make(map[string]bool, len(m.Functions))
	for i, f := range m.Functions {
		if f == nil || f.Name == "" {
			return errors.Fatal(errors.SP0108, "function %d has no name", i)
		}
		if seen[f.Name] {
			return errors.Fatal(errors.SP0108, "duplicate function %q", f.Name)
		}
		if f.Root && f.PseudoRoot {
			return errors.Fatal(errors.SP0108, "function is both root and pseudo-root").InFunction(f.Name)
		}
		for _, blk := range f.Blocks {
			if blk != nil && blk.Accesses != nil && *blk.Accesses < 0 {
				return errors.Fatal(errors.SP0108, "negative access count %d", *blk.Accesses).
					InFunction(f.Name).AtBlock(blk.Name)
			}
		}
		seen[f.Name] = true
	}
	return nil
}

// Function 按名称查找函数
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Module) String() string {
	return fmt.Sprintf("module %s (%d functions)", m.Name, len(m.Functions))
}
