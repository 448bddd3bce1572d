package cfg

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// BlockSet 块集合
// 统一使用非线程安全实现，分析内部独占
type BlockSet = mapset.Set[BlockID]

// NewSet 创建块集合
func NewSet(ids ...BlockID) BlockSet {
	return mapset.NewThreadUnsafeSet[BlockID](ids...)
}

// Sorted 升序列出集合元素
func Sorted(s BlockSet) []BlockID {
	if s == nil {
		return nil
	}
	ids := s.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortIDs 原地排序
func SortIDs(ids []BlockID) []BlockID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Intersection 多个集合的交集，空参数返回空集合
func Intersection(sets ...BlockSet) BlockSet {
	if len(sets) == 0 {
		return NewSet()
	}
	result := sets[0].Clone()
	for _, s := range sets[1:] {
		result = result.Intersect(s)
	}
	return result
}

// EdgeSet 控制依赖边集合
type EdgeSet = mapset.Set[Edge]

// NewEdgeSet 创建边集合
func NewEdgeSet(edges ...Edge) EdgeSet {
	return mapset.NewThreadUnsafeSet[Edge](edges...)
}

// SortedEdges 按 Edge.Less 列出集合元素
func SortedEdges(s EdgeSet) []Edge {
	if s == nil {
		return nil
	}
	edges := s.ToSlice()
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
	return edges
}
