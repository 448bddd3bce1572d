// Package cfgtest 测试用的控制流图构造工具
//
// 块用从 1 开始的序号描述，与纸面上的示意图一致。
package cfgtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/singlepath/internal/cfg"
)

// E 一条边，序号从 1 开始
type E [2]int

// B 第 k 个块（从 1 开始）的编号
func B(k int) cfg.BlockID {
	return cfg.BlockID(k - 1)
}

// Set 由序号构成的块集合
func Set(ks ...int) cfg.BlockSet {
	s := cfg.NewSet()
	for _, k := range ks {
		s.Add(B(k))
	}
	return s
}

// IDs 由序号构成的块列表
func IDs(ks ...int) []cfg.BlockID {
	ids := make([]cfg.BlockID, len(ks))
	for i, k := range ks {
		ids[i] = B(k)
	}
	return ids
}

// Build 构建 n 个块、给定边的函数，块 1 为入口
func Build(t testing.TB, n int, edges ...E) *cfg.Function {
	t.Helper()
	fn, err := New("f", n, edges...)
	require.NoError(t, err)
	return fn
}

// New 构建函数，不依赖 testing
func New(name string, n int, edges ...E) (*cfg.Function, error) {
	b := cfg.NewBuilder(name)
	b.Blocks(n)
	for _, e := range edges {
		b.AddEdge(B(e[0]), B(e[1]))
	}
	return b.Build()
}
