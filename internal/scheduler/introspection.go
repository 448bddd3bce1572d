package scheduler

// Operand 寄存器操作数
type Operand string

// Introspection 调度器查询指令属性的函数集合，参数是指令在块中的下标
// 未提供的函数按 false / 空集合 / 0 处理
type Introspection struct {
	Reads  func(i int) []Operand
	Writes func(i int) []Operand
	// Poisons 指令执行期间写入的寄存器不可被其他指令访问
	Poisons      func(i int) bool
	MemoryAccess func(i int) bool
	// Latency 结果可用前额外需要的周期数，0 表示下一周期可用
	Latency           func(i int) int
	IsConstant        func(op Operand) bool
	ConditionalBranch func(i int) bool
	IsCall            func(i int) bool
}

// DualIssue 双发射时的槽位约束
type DualIssue struct {
	MaySecondSlot func(i int) bool
	// IsLong 长指令占用两个发射槽
	IsLong    func(i int) bool
	MayBundle func(a, b int) bool
}

func (in Introspection) reads(i int) []Operand {
	if in.Reads == nil {
		return nil
	}
	return in.Reads(i)
}

func (in Introspection) writes(i int) []Operand {
	if in.Writes == nil {
		return nil
	}
	return in.Writes(i)
}

func (in Introspection) readsOp(i int, op Operand) bool {
	for _, r := range in.reads(i) {
		if r == op {
			return true
		}
	}
	return false
}

func (in Introspection) writesOp(i int, op Operand) bool {
	for _, w := range in.writes(i) {
		if w == op {
			return true
		}
	}
	return false
}

func (in Introspection) poisons(i int) bool {
	return in.Poisons != nil && in.Poisons(i)
}

func (in Introspection) memoryAccess(i int) bool {
	return in.MemoryAccess != nil && in.MemoryAccess(i)
}

func (in Introspection) latency(i int) int {
	if in.Latency == nil {
		return 0
	}
	return in.Latency(i)
}

func (in Introspection) isConstant(op Operand) bool {
	return in.IsConstant != nil && in.IsConstant(op)
}

func (in Introspection) conditionalBranch(i int) bool {
	return in.ConditionalBranch != nil && in.ConditionalBranch(i)
}

func (in Introspection) isCall(i int) bool {
	return in.IsCall != nil && in.IsCall(i)
}

// effectiveLatency 只访问常量寄存器的指令不参与延迟排序
func (in Introspection) effectiveLatency(i int) int {
	for _, op := range in.reads(i) {
		if !in.isConstant(op) {
			return in.latency(i)
		}
	}
	for _, op := range in.writes(i) {
		if !in.isConstant(op) {
			return in.latency(i)
		}
	}
	return 0
}

// poisoned 指令执行期间不可访问的寄存器
func (in Introspection) poisoned(i int) []Operand {
	if !in.poisons(i) || in.latency(i) == 0 {
		return nil
	}
	var ops []Operand
	for _, w := range in.writes(i) {
		if !in.isConstant(w) {
			ops = append(ops, w)
		}
	}
	return ops
}

func (d *DualIssue) maySecondSlot(i int) bool {
	return d.MaySecondSlot == nil || d.MaySecondSlot(i)
}

func (d *DualIssue) isLong(i int) bool {
	return d != nil && d.IsLong != nil && d.IsLong(i)
}

func (d *DualIssue) mayBundle(a, b int) bool {
	return d.MayBundle == nil || d.MayBundle(a, b)
}
