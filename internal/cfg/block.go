// Package cfg 控制流图、循环森林与前向控制流图 (FCFG) 视图
//
// Function 构建后只读，所有分析共享同一个 Function。
package cfg

import (
	"fmt"
)

// BlockID 基本块编号，按函数内顺序从 0 开始
type BlockID int

// NoBlock 表示不存在的块
const NoBlock BlockID = -1

func (id BlockID) String() string {
	return fmt.Sprintf("bb%d", int(id))
}

// Block 基本块
type Block struct {
	ID    BlockID
	Name  string
	Preds []BlockID // 按边加入顺序
	Succs []BlockID // 按边加入顺序
}

// IsEnd 没有后继的块
func (b *Block) IsEnd() bool {
	return len(b.Succs) == 0
}

// HasSucc 是否存在边 b -> to
func (b *Block) HasSucc(to BlockID) bool {
	for _, s := range b.Succs {
		if s == to {
			return true
		}
	}
	return false
}

// Function 函数的控制流图
type Function struct {
	Name   string
	Blocks []*Block
	Entry  BlockID
	Loops  *LoopForest

	rpo    []BlockID // 逆后序
	rpoNum []int     // 块在逆后序中的位置
	idom   []BlockID // 直接支配者，入口为自身
	byName map[string]BlockID
}

// Len 块数量
func (f *Function) Len() int {
	return len(f.Blocks)
}

// Block 按编号取块
func (f *Function) Block(id BlockID) *Block {
	return f.Blocks[id]
}

// Valid 编号是否属于本函数
func (f *Function) Valid(id BlockID) bool {
	return id >= 0 && int(id) < len(f.Blocks)
}

// NameOf 块名
func (f *Function) NameOf(id BlockID) string {
	if !f.Valid(id) {
		return id.String()
	}
	return f.Blocks[id].Name
}

// Lookup 按名称查找块
func (f *Function) Lookup(name string) (BlockID, bool) {
	id, ok := f.byName[name]
	return id, ok
}

// Succs 后继
func (f *Function) Succs(id BlockID) []BlockID {
	return f.Blocks[id].Succs
}

// Preds 前驱
func (f *Function) Preds(id BlockID) []BlockID {
	return f.Blocks[id].Preds
}

// HasEdge 是否存在边 from -> to
func (f *Function) HasEdge(from, to BlockID) bool {
	return f.Valid(from) && f.Blocks[from].HasSucc(to)
}

// Ends 所有没有后继的块
func (f *Function) Ends() []BlockID {
	var ends []BlockID
	for _, b := range f.Blocks {
		if b.IsEnd() {
			ends = append(ends, b.ID)
		}
	}
	return ends
}

// End 唯一的结束块
func (f *Function) End() (BlockID, bool) {
	ends := f.Ends()
	if len(ends) != 1 {
		return NoBlock, false
	}
	return ends[0], true
}

// ReversePostorder 逆后序
func (f *Function) ReversePostorder() []BlockID {
	return f.rpo
}

// IDom 直接支配者
func (f *Function) IDom(id BlockID) BlockID {
	return f.idom[id]
}

// Dominates a 是否（普通意义上）支配 b
func (f *Function) Dominates(a, b BlockID) bool {
	for {
		if a == b {
			return true
		}
		if b == f.Entry {
			return false
		}
		b = f.idom[b]
	}
}
