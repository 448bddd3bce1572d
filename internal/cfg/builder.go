package cfg

import (
	"fmt"

	"github.com/tangzhangming/singlepath/internal/errors"
)

// Builder 控制流图构建器
// 第一个创建的块是入口
type Builder struct {
	name   string
	blocks []*Block
	byName map[string]BlockID
	err    error
}

// NewBuilder 创建构建器
func NewBuilder(name string) *Builder {
	return &Builder{
		name:   name,
		byName: make(map[string]BlockID),
	}
}

// NewBlock 创建新的基本块，名称为空时使用 bb<编号>
func (b *Builder) NewBlock(name string) BlockID {
	id := BlockID(len(b.blocks))
	if name == "" {
		name = id.String()
	}
	if _, dup := b.byName[name]; dup && b.err == nil {
		b.err = errors.Fatal(errors.SP0108, "duplicate block name %q", name).InFunction(b.name)
	}
	b.blocks = append(b.blocks, &Block{ID: id, Name: name})
	b.byName[name] = id
	return id
}

// Block 按名称取块，不存在时创建
func (b *Builder) Block(name string) BlockID {
	if id, ok := b.byName[name]; ok {
		return id
	}
	return b.NewBlock(name)
}

// Blocks 批量创建 n 个默认命名的块
func (b *Builder) Blocks(n int) []BlockID {
	ids := make([]BlockID, n)
	for i := range ids {
		ids[i] = b.NewBlock("")
	}
	return ids
}

// AddEdge 添加边 from -> to，重复的边被忽略
func (b *Builder) AddEdge(from, to BlockID) *Builder {
	if !b.valid(from) || !b.valid(to) {
		if b.err == nil {
			b.err = errors.Fatal(errors.SP0106, "edge %s -> %s references an unknown block", from, to).InFunction(b.name)
		}
		return b
	}
	src := b.blocks[from]
	if src.HasSucc(to) {
		return b
	}
	src.Succs = append(src.Succs, to)
	b.blocks[to].Preds = append(b.blocks[to].Preds, from)
	return b
}

// AddEdgeByName 按块名添加边
func (b *Builder) AddEdgeByName(from, to string) *Builder {
	f, ok := b.byName[from]
	if !ok {
		if b.err == nil {
			b.err = errors.Fatal(errors.SP0106, "unknown block %q", from).InFunction(b.name)
		}
		return b
	}
	t, ok := b.byName[to]
	if !ok {
		if b.err == nil {
			b.err = errors.Fatal(errors.SP0106, "unknown block %q", to).InFunction(b.name)
		}
		return b
	}
	return b.AddEdge(f, t)
}

func (b *Builder) valid(id BlockID) bool {
	return id >= 0 && int(id) < len(b.blocks)
}

// Build 校验并生成只读的 Function
func (b *Builder) Build() (*Function, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.blocks) == 0 {
		return nil, errors.Fatal(errors.SP0104, "").InFunction(b.name)
	}

	fn := &Function{
		Name:   b.name,
		Blocks: b.blocks,
		Entry:  0,
		byName: b.byName,
	}
	if len(fn.Blocks[fn.Entry].Preds) > 0 {
		return nil, errors.Fatal(errors.SP0107, "").InFunction(b.name).AtBlock(fn.NameOf(fn.Entry))
	}

	fn.computeOrder()
	if len(fn.rpo) != len(fn.Blocks) {
		for _, blk := range fn.Blocks {
			if fn.rpoNum[blk.ID] < 0 {
				return nil, errors.Fatal(errors.SP0105, "").InFunction(b.name).AtBlock(blk.Name)
			}
		}
	}
	fn.computeDominators()

	loops, err := buildLoopForest(fn)
	if err != nil {
		return nil, fmt.Errorf("building loop forest: %w", err)
	}
	fn.Loops = loops

	// 构建器交出所有权
	b.blocks = nil
	b.byName = make(map[string]BlockID)
	return fn, nil
}

// MustBuild 构建失败时 panic，用于测试与内置示例
func (b *Builder) MustBuild() *Function {
	fn, err := b.Build()
	if err != nil {
		panic(err)
	}
	return fn
}
