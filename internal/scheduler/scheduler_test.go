package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/singlepath/internal/errors"
)

// attr 模拟指令的属性
type attr struct {
	latency       int
	poisons       bool
	memory        bool
	branch        bool
	second        bool
	long          bool
	call          bool
	nonBundleable bool
}

func simple(latency int) attr    { return attr{latency: latency, second: true} }
func firstOnly() attr            { return attr{} }
func nonBundleable() attr        { return attr{second: true, nonBundleable: true} }
func long() attr                 { return attr{long: true} }
func poisoning(latency int) attr { return attr{latency: latency, poisons: true, second: true} }
func load() attr                 { return attr{latency: 1, poisons: true, memory: true} }
func branch(latency int) attr    { return attr{latency: latency, branch: true} }
func call() attr                 { return attr{call: true} }

func memAcc(latency int, second bool) attr {
	return attr{latency: latency, memory: true, second: second}
}

type mock struct {
	reads, writes []Operand
	class         int // 0 表示无谓词
	attr          attr
}

func ops(names ...string) []Operand {
	out := make([]Operand, len(names))
	for i, n := range names {
		out[i] = Operand(n)
	}
	return out
}

func introspect(instrs []mock) Introspection {
	return Introspection{
		Reads:             func(i int) []Operand { return instrs[i].reads },
		Writes:            func(i int) []Operand { return instrs[i].writes },
		Poisons:           func(i int) bool { return instrs[i].attr.poisons },
		MemoryAccess:      func(i int) bool { return instrs[i].attr.memory },
		Latency:           func(i int) int { return instrs[i].attr.latency },
		IsConstant:        func(op Operand) bool { return op == "r0" },
		ConditionalBranch: func(i int) bool { return instrs[i].attr.branch },
		IsCall:            func(i int) bool { return instrs[i].attr.call },
	}
}

func dualIssue(instrs []mock) *DualIssue {
	return &DualIssue{
		MaySecondSlot: func(i int) bool { return instrs[i].attr.second },
		IsLong:        func(i int) bool { return instrs[i].attr.long },
		MayBundle: func(a, b int) bool {
			return !(instrs[a].attr.nonBundleable && instrs[b].attr.nonBundleable)
		},
	}
}

// classOracle 同类或类相关的指令相关，无谓词的指令与所有指令相关
func classOracle(instrs []mock, classDeps [][2]int) func(a, b int) bool {
	return func(a, b int) bool {
		ca, cb := instrs[a].class, instrs[b].class
		if ca == 0 || cb == 0 || ca == cb {
			return true
		}
		for _, d := range classDeps {
			if (d[0] == ca && d[1] == cb) || (d[0] == cb && d[1] == ca) {
				return true
			}
		}
		return false
	}
}

func TestListSchedule(t *testing.T) {
	tests := []struct {
		name      string
		dual      bool
		oracle    bool
		classDeps [][2]int
		instrs    []mock
		want      map[int]int
	}{
		{
			name: "UnrelatedInstructions/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2, 3: 3},
		},
		{
			name: "UnrelatedInstructions/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2, 3: 3},
		},
		{
			name: "PoisonAddsNop/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: poisoning(2)},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 3: 1},
		},
		{
			name: "PoisonAddsNop/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: poisoning(2)},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 6: 1},
		},
		{
			name: "DelayAddsNop/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(1)},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 2: 1},
		},
		{
			name: "DelayAddsNop/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(1)},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 4: 1},
		},
		{
			name: "IndependentDelayIgnored/single",
			dual: false,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), class: 1, attr: simple(1)},
				{reads: ops("r1"), writes: ops("r2"), class: 2, attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "IndependentDelayIgnored/dual",
			dual: true,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), class: 1, attr: simple(1)},
				{reads: ops("r1"), writes: ops("r2"), class: 2, attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "FillDelay/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: poisoning(1)},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 2: 1},
		},
		{
			name: "FillDelay/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: poisoning(1)},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 4: 1},
		},
		{
			name: "PreferLongDelay/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(1)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(2)},
			},
			want: map[int]int{0: 2, 1: 1, 2: 0},
		},
		{
			name: "PreferLongDelay/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(1)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(2)},
			},
			want: map[int]int{0: 2, 1: 1, 2: 0},
		},
		{
			name: "MaintainMemAccessOrder/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: memAcc(1, false)},
				{reads: ops("r1"), writes: ops("r2"), attr: memAcc(0, false)},
				{reads: ops("r3"), writes: ops("r3"), attr: memAcc(0, false)},
			},
			want: map[int]int{0: 0, 2: 1, 3: 2},
		},
		{
			name: "MaintainMemAccessOrder/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: memAcc(1, false)},
				{reads: ops("r1"), writes: ops("r2"), attr: memAcc(0, false)},
				{reads: ops("r3"), writes: ops("r3"), attr: memAcc(0, false)},
			},
			want: map[int]int{0: 0, 4: 1, 6: 2},
		},
		{
			name: "IgnoreIndependentMemAccessOrder/single",
			dual: false,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: memAcc(1, false)},
				{reads: ops("r1"), writes: ops("r2"), class: 1, attr: memAcc(0, false)},
				{reads: ops("r3"), writes: ops("r3"), class: 2, attr: memAcc(0, false)},
			},
			want: map[int]int{0: 0, 1: 2, 2: 1},
		},
		{
			name: "IgnoreIndependentMemAccessOrder/dual",
			dual: true,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: memAcc(1, false)},
				{reads: ops("r1"), writes: ops("r2"), class: 1, attr: memAcc(0, false)},
				{reads: ops("r3"), writes: ops("r3"), class: 2, attr: memAcc(0, false)},
			},
			want: map[int]int{0: 0, 2: 2, 4: 1},
		},
		{
			name: "IgnoreIndependentMemAccessOrder2/single",
			dual: false,
			oracle: true,
			classDeps: [][2]int{{1, 2}},
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), class: 1, attr: memAcc(1, false)},
				{reads: ops("r1"), writes: ops("r2"), class: 2, attr: memAcc(0, false)},
				{reads: ops("r3"), writes: ops("r3"), class: 3, attr: memAcc(0, true)},
			},
			want: map[int]int{0: 0, 1: 2, 2: 1},
		},
		{
			name: "IgnoreIndependentMemAccessOrder2/dual",
			dual: true,
			oracle: true,
			classDeps: [][2]int{{1, 2}},
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), class: 1, attr: memAcc(1, false)},
				{reads: ops("r1"), writes: ops("r2"), class: 2, attr: memAcc(0, false)},
				{reads: ops("r3"), writes: ops("r3"), class: 3, attr: memAcc(0, true)},
			},
			want: map[int]int{0: 0, 1: 2, 4: 1},
		},
		{
			name: "ConstantsCantPoison/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r0"), attr: poisoning(1)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "ConstantsCantPoison/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r0"), attr: poisoning(1)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "ConstantsDontDelay/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r0"), attr: simple(2)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "ConstantsDontDelay/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r0"), attr: simple(2)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "ConstantsDontMakeDependence/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(2)},
			},
			want: map[int]int{0: 1, 1: 0},
		},
		{
			name: "ConstantsDontMakeDependence/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(2)},
			},
			want: map[int]int{0: 1, 1: 0},
		},
		{
			name: "WeakDepInDelay/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r2"), attr: load()},
				{reads: ops("r2", "r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r4"), attr: load()},
			},
			want: map[int]int{0: 0, 1: 2, 2: 1},
		},
		{
			name: "WeakDepInDelay/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r2"), attr: load()},
				{reads: ops("r2", "r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r4"), attr: load()},
			},
			want: map[int]int{0: 0, 2: 2, 4: 1},
		},
		{
			name: "Branch/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(3)},
				{reads: ops("r1"), writes: nil, attr: branch(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(4)},
				{reads: ops("r4"), writes: ops("r4"), attr: simple(0)},
				{reads: ops("r3"), writes: nil, attr: branch(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r4"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 5: 2, 6: 4, 7: 3, 8: 5, 11: 6, 12: 7, 13: 8, 14: 9},
		},
		{
			name: "Branch/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(3)},
				{reads: ops("r1"), writes: nil, attr: branch(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(4)},
				{reads: ops("r4"), writes: ops("r4"), attr: simple(0)},
				{reads: ops("r3"), writes: nil, attr: branch(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r4"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 2: 1, 10: 2, 12: 4, 13: 3, 14: 5, 22: 6, 24: 7, 25: 8, 26: 9},
		},
		{
			name: "WritesToSameArentReordered/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: load()},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 2: 1, 3: 2},
		},
		{
			name: "WritesToSameArentReordered/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: load()},
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r2"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 4: 1, 6: 2},
		},
		{
			name: "IndependentWritesToSameReordered/single",
			dual: false,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), class: 1, attr: load()},
				{reads: ops("r1"), writes: ops("r2"), class: 1, attr: simple(0)},
				{reads: ops("r3"), writes: ops("r2"), class: 2, attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 2: 1},
		},
		{
			name: "IndependentWritesToSameReordered/dual",
			dual: true,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), class: 1, attr: load()},
				{reads: ops("r1"), writes: ops("r2"), class: 1, attr: simple(0)},
				{reads: ops("r3"), writes: ops("r2"), class: 2, attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 4: 1},
		},
		{
			name: "NoLongInSecondIssue/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(2)},
				{reads: ops("r2"), writes: ops("r2"), attr: long()},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 2: 0, 3: 2, 4: 3},
		},
		{
			name: "IneligibleSecondSlot/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: firstOnly()},
			},
			want: map[int]int{0: 1, 1: 0},
		},
		{
			name: "FinalBranch/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: branch(4)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2, 3: 3},
		},
		{
			name: "FinalBranch/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: branch(4)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 3, 3: 2},
		},
		{
			name: "MultipleReadersBeforeWrite/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), attr: simple(1)},
				{reads: ops("r4"), writes: ops("r3"), attr: simple(4)},
			},
			want: map[int]int{0: 3, 1: 0, 2: 1, 3: 2, 4: 4},
		},
		{
			name: "MultipleReadersBeforeWrite/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), attr: simple(1)},
				{reads: ops("r4"), writes: ops("r3"), attr: simple(4)},
			},
			want: map[int]int{0: 3, 1: 0, 2: 1, 3: 2, 4: 4},
		},
		{
			name: "WriteBeforeIndepedentReads/single",
			dual: false,
			oracle: true,
			instrs: []mock{
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), class: 1, attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), class: 1, attr: simple(0)},
				{reads: ops("r4"), writes: ops("r3"), class: 2, attr: simple(4)},
			},
			want: map[int]int{0: 0, 1: 3, 2: 1, 3: 2},
		},
		{
			name: "WriteBeforeIndepedentReads/dual",
			dual: true,
			oracle: true,
			instrs: []mock{
				{reads: ops("r3"), writes: ops("r0"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), class: 1, attr: simple(0)},
				{reads: ops("r3"), writes: ops("r0"), class: 1, attr: simple(0)},
				{reads: ops("r4"), writes: ops("r3"), class: 2, attr: simple(4)},
			},
			want: map[int]int{0: 0, 1: 3, 2: 1, 3: 2},
		},
		{
			name: "CanFlipBundle/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r2"), attr: simple(1)},
				{reads: ops("r3"), writes: ops("r4"), attr: firstOnly()},
			},
			want: map[int]int{0: 1, 1: 0},
		},
		{
			name: "CanFlipBundleAntiDep/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r1"), attr: firstOnly()},
			},
			want: map[int]int{0: 1, 1: 0},
		},
		{
			name: "BundleWriteWithRead/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r3"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "Call/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2},
		},
		{
			name: "Call/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 1: 0, 2: 2},
		},
		{
			name: "BundleCallWithSucc/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: nil, writes: ops("r1"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: nil, writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2, 3: 3},
		},
		{
			name: "BundleCallWithSucc/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: nil, writes: ops("r1"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: nil, writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2, 3: 3},
		},
		{
			name: "NotBundleCallWithReadSucc/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: nil, writes: ops("r1"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: nil, writes: ops("r3"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2, 4: 3},
		},
		{
			name: "CallInputLatency/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(1)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: nil, writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 2: 1},
		},
		{
			name: "CallInputLatency2/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(3)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: nil, writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 3: 1},
		},
		{
			name: "CallInputLatency2/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(3)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: nil, writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 6: 1},
		},
		{
			name: "NotBundleCallWithWriteSucc/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: nil, writes: ops("r1"), attr: simple(0)},
				{reads: ops("r3"), writes: ops("r1"), attr: call()},
				{reads: ops("r1"), writes: nil, attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 1, 2: 2, 4: 3},
		},
		{
			name: "CallPoison/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r3"), writes: ops("r3"), attr: poisoning(1)},
				{reads: ops("r3"), writes: ops("r3"), attr: call()},
			},
			want: map[int]int{0: 0, 1: 1},
		},
		{
			name: "CallPoison/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r3"), writes: ops("r3"), attr: poisoning(1)},
				{reads: ops("r3"), writes: ops("r3"), attr: call()},
			},
			want: map[int]int{0: 0, 2: 1},
		},
		{
			name: "DependentNonBundleable/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r2"), attr: nonBundleable()},
				{reads: ops("r1"), writes: ops("r3"), attr: nonBundleable()},
				{reads: ops("r2", "r3"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 2: 1, 4: 2, 6: 3},
		},
		{
			name: "IndependentNonBundleable/dual",
			dual: true,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r2"), class: 1, attr: nonBundleable()},
				{reads: ops("r1"), writes: ops("r3"), class: 2, attr: nonBundleable()},
				{reads: ops("r2", "r3"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 2: 1, 3: 2, 4: 3},
		},
		{
			name: "IndependentClassesIgnoreInputsOutputs/single",
			dual: false,
			oracle: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(1)},
				{reads: ops("r1"), writes: ops("r2"), class: 1, attr: simple(0)},
				{reads: ops("r2"), writes: ops("r3"), class: 2, attr: simple(0)},
				{reads: ops("r2", "r3"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 0, 1: 2, 2: 1, 3: 3},
		},
		{
			name: "PreferMoreSuccessors/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 1: 0, 2: 2, 3: 3, 4: 4},
		},
		{
			name: "PreferMoreSuccessors/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 1: 0, 2: 2, 3: 3, 4: 4},
		},
		{
			name: "PreferFirstOnlyOverMoreSuccessors/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r1"), attr: firstOnly()},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 1: 0, 2: 2, 3: 3, 4: 4},
		},
		{
			name: "PreferMoreSuccessorsOverLongInstr/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r1"), attr: long()},
				{reads: ops("r0"), writes: ops("r2"), attr: firstOnly()},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 2: 0, 4: 2, 5: 3, 6: 4},
		},
		{
			name: "PreferLongDelayOverMoreSuccessors/single",
			dual: false,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r1"), attr: simple(2)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 1: 0, 2: 3, 3: 2, 4: 4},
		},
		{
			name: "PreferLongDelayOverMoreSuccessors/dual",
			dual: true,
			instrs: []mock{
				{reads: ops("r0"), writes: ops("r2"), attr: simple(0)},
				{reads: ops("r0"), writes: ops("r1"), attr: simple(2)},
				{reads: ops("r1"), writes: ops("r1"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
				{reads: ops("r2"), writes: ops("r4"), attr: simple(0)},
			},
			want: map[int]int{0: 1, 1: 0, 2: 3, 3: 4, 6: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{}
			if tt.dual {
				opts.Dual = dualIssue(tt.instrs)
			}
			if tt.oracle {
				opts.Dependent = classOracle(tt.instrs, tt.classDeps)
			}
			s, err := ListSchedule(len(tt.instrs), introspect(tt.instrs), opts, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Positions)
			assert.NoError(t, s.Verify())
		})
	}
}

// TestPoisonInsertsTwoNoOps 两周期的占用写之后紧跟依赖它的指令
func TestPoisonInsertsTwoNoOps(t *testing.T) {
	instrs := []mock{
		{reads: ops("r1"), writes: ops("r2"), attr: poisoning(2)},
		{reads: ops("r2"), writes: ops("r3"), attr: simple(0)},
	}
	s, err := ListSchedule(len(instrs), introspect(instrs), Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, NoOp, NoOp, 1}, s.Order())
	assert.Equal(t, 2, s.NoOps())
	assert.Equal(t, 4, s.Cycles())
	assert.Equal(t, "0: 0\n1: nop\n2: nop\n3: 1\n", s.String())
}

func TestEmptyBlock(t *testing.T) {
	s, err := ListSchedule(0, Introspection{}, Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, s.Positions)
	assert.Equal(t, 0, s.Cycles())
	assert.NoError(t, s.Verify())
}

func TestBundles(t *testing.T) {
	instrs := []mock{
		{reads: ops("r1"), writes: ops("r2"), attr: simple(1)},
		{reads: ops("r3"), writes: ops("r4"), attr: firstOnly()},
		{reads: ops("r2"), writes: ops("r5"), attr: long()},
	}
	s, err := ListSchedule(len(instrs), introspect(instrs), Options{Dual: dualIssue(instrs)}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Bundle{{1, 0}, {NoOp, NoOp}, {2, NoOp}}, s.Bundles())
	assert.Equal(t, []int{1, 0, NoOp, 2}, s.Order())
	assert.Equal(t, 1, s.LongInstructions())
	assert.Equal(t, [][2]int{{0, 1}, {1, 0}, {4, 2}}, s.Pairs())
	assert.NoError(t, s.Verify())
}

func TestDelaySlots(t *testing.T) {
	instrs := []mock{
		{reads: ops("r1"), writes: ops("r2"), attr: simple(0)},
		{reads: ops("r3"), attr: call()},
		{reads: ops("r4"), writes: ops("r4"), attr: simple(0)},
	}
	s, err := ListSchedule(len(instrs), introspect(instrs), Options{}, nil)
	require.NoError(t, err)

	out := s.DelaySlots(func(i int) bool { return instrs[i].attr.call })
	require.Len(t, out, 3+DelaySlotCount)
	assert.Equal(t, Bundle{1, NoOp}, out[1])
	for _, b := range out[2 : 2+DelaySlotCount] {
		assert.Equal(t, Bundle{NoOp, NoOp}, b)
	}
}

func TestVerifyLongInstructions(t *testing.T) {
	s := newSchedule(3, &DualIssue{IsLong: func(i int) bool { return i == 0 }})
	s.Positions = map[int]int{1: 0, 2: 1, 4: 2}
	err := s.Verify()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0201))

	s.Positions = map[int]int{0: 0, 1: 1, 2: 2}
	err = s.Verify()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0202))
}

func TestVerifyMissingInstruction(t *testing.T) {
	s := newSchedule(2, nil)
	s.Positions = map[int]int{0: 0, 1: 0}
	err := s.Verify()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SP0208))
}

func TestGraph(t *testing.T) {
	instrs := []mock{
		{reads: ops("r1"), writes: ops("r2"), attr: load()},
		{reads: ops("r2"), writes: ops("r1"), attr: simple(0)},
		{reads: ops("r1"), attr: branch(0)},
	}
	g := BuildGraph(len(instrs), introspect(instrs), nil)

	assert.Equal(t, []int{0}, g.Roots())
	assert.Equal(t, Dep{Distance: 2, Strong: true}, g.Nodes[1].Preds[0])
	assert.Equal(t, Dep{Distance: 1, Strong: true}, g.Nodes[2].Preds[1])
	assert.Equal(t, Dep{}, g.Nodes[2].Preds[0])
	assert.Equal(t, "0: []\n1: [0/strong/2]\n2: [0/weak/0, 1/strong/1]\n", g.String())
}
