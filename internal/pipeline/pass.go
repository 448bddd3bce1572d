package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// 分析 Pass 接口
// ============================================================================

// Pass 作用于一个函数的分析步骤
// 返回错误时后续 Pass 不再运行
type Pass interface {
	Name() string
	Run(u *Unit) error
}

// ============================================================================
// Pass 管理器
// ============================================================================

// PassManager Pass 管理器
type PassManager struct {
	passes []Pass
	stats  PassStats
}

// PassStats Pass 统计信息
type PassStats struct {
	PassesRun   int
	PerPassTime map[string]time.Duration
}

// NewPassManager 创建 Pass 管理器
func NewPassManager() *PassManager {
	return &PassManager{
		passes: make([]Pass, 0),
		stats: PassStats{
			PerPassTime: make(map[string]time.Duration),
		},
	}
}

// AddPass 添加 Pass
func (pm *PassManager) AddPass(p Pass) {
	pm.passes = append(pm.passes, p)
}

// Passes 已注册的 Pass 名称，按运行顺序
func (pm *PassManager) Passes() []string {
	names := make([]string, len(pm.passes))
	for i, p := range pm.passes {
		names[i] = p.Name()
	}
	return names
}

// Run 依次运行所有 Pass
func (pm *PassManager) Run(u *Unit) error {
	for _, p := range pm.passes {
		start := time.Now()
		err := p.Run(u)
		pm.stats.PassesRun++
		pm.stats.PerPassTime[p.Name()] += time.Since(start)
		if err != nil {
			u.Log.Error("pass failed",
				zap.String("pass", p.Name()),
				zap.String("function", u.Desc.Name),
				zap.Error(err),
			)
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

// Stats 获取统计信息
func (pm *PassManager) Stats() PassStats {
	return pm.stats
}

// ============================================================================
// 预置 Pipeline
// ============================================================================

// CreateStandardPipeline 完整的单路径分析
func CreateStandardPipeline() *PassManager {
	pm := NewPassManager()

	// 控制流
	pm.AddPass(&loopPass{})
	pm.AddPass(&boundedPass{})
	pm.AddPass(&constantLoopPass{})

	// 谓词
	pm.AddPass(&controlDependencePass{})
	pm.AddPass(&classPass{})

	// 访存补偿
	pm.AddPass(&compensationPass{})

	pm.AddPass(&schedulePass{})
	return pm
}

// CreateSchedulePipeline 只为调度准备谓词信息
func CreateSchedulePipeline() *PassManager {
	pm := NewPassManager()
	pm.AddPass(&loopPass{})
	pm.AddPass(&controlDependencePass{})
	pm.AddPass(&classPass{})
	pm.AddPass(&schedulePass{})
	return pm
}
