package pipeline

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/module"
	"github.com/tangzhangming/singlepath/internal/scheduler"
)

// ============================================================================
// 调度
// ============================================================================

// schedulePass 逐块列表调度
type schedulePass struct{}

func (p *schedulePass) Name() string { return "schedule" }

func (p *schedulePass) Run(u *Unit) error {
	u.Schedules = make([]*scheduler.Schedule, u.Fn.Len())
	var errs error
	for _, b := range u.Fn.Blocks {
		blk := u.Desc.Block(b.ID)
		s, err := ScheduleBlock(u, b.ID, blk.Instrs)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(errors.CodeOf(err), err, "scheduling failed").
				InFunction(u.Fn.Name).AtBlock(b.Name))
			continue
		}
		u.Schedules[b.ID] = s
	}
	if errs != nil {
		return errs
	}
	u.Log.Debug("blocks scheduled",
		zap.Int("blocks", len(u.Schedules)),
		zap.Bool("dual_issue", u.Config.DualIssue),
	)
	return nil
}

// ScheduleBlock 调度块 id 中的指令，谓词取自块所在的等价类
func ScheduleBlock(u *Unit, id cfg.BlockID, instrs []*module.Instr) (*scheduler.Schedule, error) {
	opts := scheduler.Options{
		Dependent: func(a, b int) bool {
			if u.Classes == nil {
				return true
			}
			return u.Classes.Dependent(u.Predicate(id, instrs[a]), u.Predicate(id, instrs[b]))
		},
	}
	if u.Config.DualIssue {
		opts.Dual = dualIssue(instrs, u.Config.PermissiveDualIssue)
	}
	s, err := scheduler.ListSchedule(len(instrs), introspect(instrs), opts, u.Config)
	if err != nil {
		return nil, err
	}
	if u.Config.Verify {
		if err := s.Verify(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// introspect 指令描述上的调度查询
func introspect(instrs []*module.Instr) scheduler.Introspection {
	operands := func(ops []string) []scheduler.Operand {
		out := make([]scheduler.Operand, len(ops))
		for i, op := range ops {
			out[i] = scheduler.Operand(op)
		}
		return out
	}
	return scheduler.Introspection{
		Reads:             func(i int) []scheduler.Operand { return operands(instrs[i].Reads) },
		Writes:            func(i int) []scheduler.Operand { return operands(instrs[i].Writes) },
		Poisons:           func(i int) bool { return instrs[i].Poisons() },
		MemoryAccess:      func(i int) bool { return instrs[i].MemoryAccess() },
		Latency:           func(i int) int { return instrs[i].Latency },
		IsConstant:        func(op scheduler.Operand) bool { return module.IsConstant(string(op)) },
		ConditionalBranch: func(i int) bool { return instrs[i].ConditionalBranch() },
		IsCall:            func(i int) bool { return instrs[i].Call },
	}
}

// dualIssue 双发射槽位规则
// 访存与控制转移指令只能进入第一槽，permissive 时取消该限制
func dualIssue(instrs []*module.Instr, permissive bool) *scheduler.DualIssue {
	return &scheduler.DualIssue{
		MaySecondSlot: func(i int) bool {
			in := instrs[i]
			if in.Long || in.FirstSlot {
				return false
			}
			return permissive || !(in.MemoryAccess() || in.ConditionalBranch())
		},
		IsLong: func(i int) bool { return instrs[i].Long },
		MayBundle: func(a, b int) bool {
			return !instrs[a].NonBundleable && !instrs[b].NonBundleable
		},
	}
}

// delayed 指令之后需要延迟槽
func delayed(instrs []*module.Instr) func(i int) bool {
	return func(i int) bool {
		in := instrs[i]
		return in.Delayed && (in.Branch || in.Call || in.Return)
	}
}

// Bundles 块的发射包，包含延迟槽
func (u *Unit) Bundles(id cfg.BlockID) []scheduler.Bundle {
	s := u.Schedules[id]
	if s == nil {
		return nil
	}
	return s.DelaySlots(delayed(u.Desc.Block(id).Instrs))
}
