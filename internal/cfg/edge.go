package cfg

import (
	"fmt"
)

// Source 控制依赖边的源
// 要么是函数（或循环）入口，要么是一个块
type Source struct {
	block BlockID
	entry bool
}

// FromEntry 入口源
func FromEntry() Source {
	return Source{block: NoBlock, entry: true}
}

// FromBlock 块源
func FromBlock(id BlockID) Source {
	return Source{block: id}
}

// IsEntry 是否为入口
func (s Source) IsEntry() bool {
	return s.entry
}

// Block 源块，入口源返回 NoBlock
func (s Source) Block() (BlockID, bool) {
	if s.entry {
		return NoBlock, false
	}
	return s.block, true
}

func (s Source) String() string {
	if s.entry {
		return "entry"
	}
	return s.block.String()
}

// Edge 控制依赖边 (源 -> 目标块)
type Edge struct {
	Source Source
	Target BlockID
}

func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.Source, e.Target)
}

// Less 全序：入口边在前，然后按源、目标排序
func (e Edge) Less(o Edge) bool {
	if e.Source.entry != o.Source.entry {
		return e.Source.entry
	}
	if e.Source.block != o.Source.block {
		return e.Source.block < o.Source.block
	}
	return e.Target < o.Target
}

// BlockEdge 普通 CFG 边，可作为 map 键
type BlockEdge struct {
	From BlockID
	To   BlockID
}

func (e BlockEdge) String() string {
	return fmt.Sprintf("%s->%s", e.From, e.To)
}

// Less 按源、目标排序
func (e BlockEdge) Less(o BlockEdge) bool {
	if e.From != o.From {
		return e.From < o.From
	}
	return e.To < o.To
}
