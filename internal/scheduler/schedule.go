package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/tangzhangming/singlepath/internal/errors"
)

// DelaySlotCount 延迟跳转、调用和返回之后保留的空发射包数
const DelaySlotCount = 3

// Bundle 一个发射包的两个槽，单发射时第二槽总是 NoOp
type Bundle [2]int

// Schedule 调度结果
type Schedule struct {
	// Positions 新位置 -> 原指令下标
	// 双发射时位置 2k 与 2k+1 是第 k 个发射包的第一、第二槽；没有映射的位置是空槽
	Positions map[int]int
	Dual      bool

	n    int
	long []bool
}

func newSchedule(n int, dual *DualIssue) *Schedule {
	s := &Schedule{Positions: make(map[int]int, n), Dual: dual != nil, n: n, long: make([]bool, n)}
	for i := range s.long {
		s.long[i] = dual.isLong(i)
	}
	return s
}

func (s *Schedule) place(cycle, slot, idx int) {
	if s.Dual {
		s.Positions[2*cycle+slot] = idx
	} else {
		s.Positions[cycle] = idx
	}
}

// Len 被调度的指令数
func (s *Schedule) Len() int {
	return s.n
}

// Cycles 发射包数
func (s *Schedule) Cycles() int {
	last := -1
	for pos := range s.Positions {
		last = max(last, pos)
	}
	if last < 0 {
		return 0
	}
	if s.Dual {
		return last/2 + 1
	}
	return last + 1
}

// Bundles 按周期列出发射包
func (s *Schedule) Bundles() []Bundle {
	bundles := make([]Bundle, s.Cycles())
	for i := range bundles {
		bundles[i] = Bundle{NoOp, NoOp}
	}
	for pos, idx := range s.Positions {
		if s.Dual {
			bundles[pos/2][pos%2] = idx
		} else {
			bundles[pos][0] = idx
		}
	}
	return bundles
}

// Order 新顺序下的指令序列，空发射包以 NoOp 表示
func (s *Schedule) Order() []int {
	var order []int
	for _, b := range s.Bundles() {
		order = append(order, b[0])
		if b[1] != NoOp {
			order = append(order, b[1])
		}
	}
	return order
}

// NoOps 需要填入空操作的发射包数
func (s *Schedule) NoOps() int {
	count := 0
	for _, b := range s.Bundles() {
		if b[0] == NoOp {
			count++
		}
	}
	return count
}

// LongInstructions 长指令数
func (s *Schedule) LongInstructions() int {
	count := 0
	for _, l := range s.long {
		if l {
			count++
		}
	}
	return count
}

// DelaySlots 在包含延迟指令的发射包之后插入 DelaySlotCount 个空发射包
func (s *Schedule) DelaySlots(delayed func(i int) bool) []Bundle {
	var out []Bundle
	for _, b := range s.Bundles() {
		out = append(out, b)
		if (b[0] != NoOp && delayed(b[0])) || (b[1] != NoOp && delayed(b[1])) {
			for i := 0; i < DelaySlotCount; i++ {
				out = append(out, Bundle{NoOp, NoOp})
			}
		}
	}
	return out
}

// Verify 每条指令恰好出现一次，长指令只在第一槽且独占发射包
func (s *Schedule) Verify() error {
	var errs error
	seen := make([]int, s.n)
	for pos, idx := range s.Positions {
		if idx < 0 || idx >= s.n {
			errs = multierr.Append(errs, errors.Internal(errors.SP0208, "position %d holds unknown instruction %d", pos, idx))
			continue
		}
		seen[idx]++
		if !s.Dual || !s.long[idx] {
			continue
		}
		if pos%2 != 0 {
			errs = multierr.Append(errs, errors.Internal(errors.SP0201, "long instruction %d at position %d", idx, pos))
		} else if other, ok := s.Positions[pos+1]; ok {
			errs = multierr.Append(errs, errors.Internal(errors.SP0202, "long instruction %d bundled with %d", idx, other))
		}
	}
	for idx, count := range seen {
		if count != 1 {
			errs = multierr.Append(errs, errors.Internal(errors.SP0208, "instruction %d scheduled %d times", idx, count))
		}
	}
	return errs
}

// String 每行一个发射包，空槽写作 nop
func (s *Schedule) String() string {
	var sb strings.Builder
	for cycle, b := range s.Bundles() {
		fmt.Fprintf(&sb, "%d: %s", cycle, slotName(b[0]))
		if s.Dual && b[1] != NoOp {
			fmt.Fprintf(&sb, " | %s", slotName(b[1]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Pairs 按新位置排序的 (位置, 原下标) 对
func (s *Schedule) Pairs() [][2]int {
	pairs := make([][2]int, 0, len(s.Positions))
	for pos, idx := range s.Positions {
		pairs = append(pairs, [2]int{pos, idx})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}

func slotName(idx int) string {
	if idx == NoOp {
		return "nop"
	}
	return fmt.Sprintf("%d", idx)
}
