// Package pipeline 按顺序运行单路径转换的各项分析
//
// 每个函数一个 Unit，各 Pass 读取前面 Pass 的结果并写入自己的结果。
// RunModule 在协程池上并发分析模块中的函数。
package pipeline

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/dominators"
	"github.com/tangzhangming/singlepath/internal/eqclass"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/memaccess"
	"github.com/tangzhangming/singlepath/internal/module"
	"github.com/tangzhangming/singlepath/internal/postdom"
	"github.com/tangzhangming/singlepath/internal/scheduler"
)

// Unit 一个函数的分析状态
type Unit struct {
	Desc   *module.Function
	Config *config.Config
	Log    *zap.Logger

	Fn     *cfg.Function
	Bounds map[cfg.BlockID]config.Bound

	// Dominators 入口出发的有界支配者；为空表示软失败
	Dominators   dominators.Map
	SoftFailure  bool
	CLDominators dominators.Map

	PostDom *postdom.Tree
	Deps    postdom.Dependencies
	Classes *eqclass.Table
	Roots   []cfg.BlockID

	Decision *memaccess.Decision

	// Schedules 按块编号
	Schedules []*scheduler.Schedule

	Warnings []*errors.Error
}

// NewUnit 创建函数的分析单元
func NewUnit(desc *module.Function, c *config.Config) *Unit {
	if c == nil {
		c = config.DefaultConfig()
	}
	return &Unit{
		Desc:   desc,
		Config: c,
		Log:    c.Logger().With(zap.String("function", desc.Name)),
	}
}

// constant 循环头的迭代次数是否固定
func (u *Unit) constant(header cfg.BlockID) bool {
	b, ok := u.Bounds[header]
	return ok && b.Constant()
}

// bound 循环头的迭代次数
func (u *Unit) bound(header cfg.BlockID) config.Bound {
	return u.Bounds[header]
}

// warn 记录一条警告
func (u *Unit) warn(e *errors.Error) {
	u.Warnings = append(u.Warnings, e)
	u.Log.Warn(e.Error())
}

// Predicate 块中指令的谓词
func (u *Unit) Predicate(id cfg.BlockID, in *module.Instr) eqclass.Predicate {
	if in.Unpredicated || u.Classes == nil {
		return eqclass.Always()
	}
	cl := u.Classes.ClassOf(id)
	if cl == nil {
		return eqclass.Always()
	}
	return eqclass.On(cl.ID, in.Negated)
}
