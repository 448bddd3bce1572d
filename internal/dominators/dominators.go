// Package dominators 计算考虑循环边界的支配关系
//
// 有界支配者 (Bounded) 回答“至少执行一次”；常量循环支配者 (ConstantLoop)
// 回答“执行固定次数”。两者都在 FCFG 上计算，循环只有在迭代次数为常量时
// 才支配它的后继。
package dominators

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
)

// ConstantFunc 循环头的迭代次数是否为常量
type ConstantFunc func(header cfg.BlockID) bool

// Map 块 -> 支配者集合
type Map map[cfg.BlockID]cfg.BlockSet

// Empty 结果为空
// 有界支配者分析用空结果表示无法建立单路径代码
func (m Map) Empty() bool {
	return len(m) == 0
}

// Get 块的支配者，不存在时返回空集合
func (m Map) Get(id cfg.BlockID) cfg.BlockSet {
	if s, ok := m[id]; ok {
		return s
	}
	return cfg.NewSet()
}

// Dominates d 是否支配 id
func (m Map) Dominates(d, id cfg.BlockID) bool {
	s, ok := m[id]
	return ok && s.Contains(d)
}

// Blocks 结果中的块，升序
func (m Map) Blocks() []cfg.BlockID {
	ids := make([]cfg.BlockID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return cfg.SortIDs(ids)
}

// Equal 两个结果是否相同
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for id, s := range m {
		t, ok := o[id]
		if !ok || !s.Equal(t) {
			return false
		}
	}
	return true
}

// Format 以块名输出，用于日志与报告
func (m Map) Format(fn *cfg.Function) string {
	var sb strings.Builder
	for i, id := range m.Blocks() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fn.NameOf(id))
		sb.WriteString(": {")
		for j, d := range cfg.Sorted(m[id]) {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fn.NameOf(d))
		}
		sb.WriteString("}")
	}
	return sb.String()
}

// clone 深拷贝
func (m Map) clone() Map {
	out := make(Map, len(m))
	for id, s := range m {
		out[id] = s.Clone()
	}
	return out
}

// limits 从配置读取迭代上限与日志器
func limits(c *config.Config) (int, *zap.Logger) {
	if c == nil {
		return config.DefaultMaxIterations, zap.NewNop()
	}
	return c.MaxIterations, c.Logger()
}

// sortedKeys 升序列出 map 的键
func sortedKeys(m map[cfg.BlockID]cfg.BlockSet) []cfg.BlockID {
	keys := make([]cfg.BlockID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
