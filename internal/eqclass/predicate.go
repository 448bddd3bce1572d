package eqclass

import "fmt"

// Predicate 指令的谓词：等价类编号加取反标志
// 零值表示无谓词（总是启用）
type Predicate struct {
	class   int
	negated bool
	set     bool
}

// Always 无谓词
func Always() Predicate {
	return Predicate{}
}

// On 由等价类 class 的谓词控制
func On(class int, negated bool) Predicate {
	return Predicate{class: class, negated: negated, set: true}
}

// Class 谓词对应的类
func (p Predicate) Class() (int, bool) {
	return p.class, p.set
}

// Negated 是否取反
func (p Predicate) Negated() bool {
	return p.set && p.negated
}

func (p Predicate) String() string {
	switch {
	case !p.set:
		return "always"
	case p.negated:
		return fmt.Sprintf("!p%d", p.class)
	default:
		return fmt.Sprintf("p%d", p.class)
	}
}

// Dependent 两个谓词控制的指令是否可能在同一次执行中都启用
//
// 无谓词的指令与所有指令相关。同一类的谓词只有取反标志相同时相关；
// 不同的类在类相关或任一方取反时相关。
func (t *Table) Dependent(a, b Predicate) bool {
	if !a.set || !b.set {
		return true
	}
	if a.class == b.class {
		return a.negated == b.negated
	}
	return t.Related(a.class, b.class) || a.negated || b.negated
}
