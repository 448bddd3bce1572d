package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/memaccess"
	"github.com/tangzhangming/singlepath/internal/module"
)

// ============================================================================
// 统计
// ============================================================================

// Stats 模块分析统计，由并发的分析任务共同更新
type Stats struct {
	Functions    atomic.Int64
	Failed       atomic.Int64
	SoftFailures atomic.Int64

	NoCompensation atomic.Int64
	Counter        atomic.Int64
	Opposite       atomic.Int64

	Bundles          atomic.Int64
	NoOps            atomic.Int64
	LongInstructions atomic.Int64
}

// Summary 统计快照
type Summary struct {
	Functions    int64 `json:"functions"`
	Failed       int64 `json:"failed"`
	SoftFailures int64 `json:"soft_failures"`

	NoCompensation int64 `json:"no_compensation"`
	Counter        int64 `json:"counter"`
	Opposite       int64 `json:"opposite"`

	Bundles          int64 `json:"bundles"`
	NoOps            int64 `json:"noops"`
	LongInstructions int64 `json:"long_instructions"`
}

// Snapshot 读取当前统计
func (s *Stats) Snapshot() Summary {
	return Summary{
		Functions:        s.Functions.Load(),
		Failed:           s.Failed.Load(),
		SoftFailures:     s.SoftFailures.Load(),
		NoCompensation:   s.NoCompensation.Load(),
		Counter:          s.Counter.Load(),
		Opposite:         s.Opposite.Load(),
		Bundles:          s.Bundles.Load(),
		NoOps:            s.NoOps.Load(),
		LongInstructions: s.LongInstructions.Load(),
	}
}

// record 累加一个函数的结果
func (s *Stats) record(u *Unit) {
	s.Functions.Inc()
	if u.SoftFailure {
		s.SoftFailures.Inc()
	}
	if u.Decision != nil {
		switch u.Decision.Strategy {
		case memaccess.StrategyNone:
			s.NoCompensation.Inc()
		case memaccess.StrategyCounter:
			s.Counter.Inc()
		case memaccess.StrategyOpposite:
			s.Opposite.Inc()
		}
	}
	for _, sched := range u.Schedules {
		if sched == nil {
			continue
		}
		s.Bundles.Add(int64(sched.Cycles()))
		s.NoOps.Add(int64(sched.NoOps()))
		s.LongInstructions.Add(int64(sched.LongInstructions()))
	}
}

// ============================================================================
// 模块驱动
// ============================================================================

// Result 模块分析结果
// Units 与模块中的函数一一对应，失败的函数为 nil
type Result struct {
	Module *module.Module
	Units  []*Unit
	Stats  *Stats
}

// Warnings 所有函数的警告
func (r *Result) Warnings() []*errors.Error {
	var out []*errors.Error
	for _, u := range r.Units {
		if u != nil {
			out = append(out, u.Warnings...)
		}
	}
	return out
}

// RunFunction 用给定的 Pipeline 分析一个函数
func RunFunction(desc *module.Function, pm *PassManager, c *config.Config) (*Unit, error) {
	u := NewUnit(desc, c)
	if err := pm.Run(u); err != nil {
		return u, err
	}
	return u, nil
}

// RunModule 并发分析模块中的所有函数
//
// newPipeline 为每个函数创建独立的 PassManager，nil 时使用标准 Pipeline。
// 所有函数的错误合并返回，已成功的函数结果保留在 Result 中。
func RunModule(ctx context.Context, mod *module.Module, newPipeline func() *PassManager, c *config.Config) (*Result, error) {
	if c == nil {
		c = config.DefaultConfig()
	}
	if newPipeline == nil {
		newPipeline = CreateStandardPipeline
	}
	if err := mod.Validate(); err != nil {
		return nil, err
	}
	log := c.Logger()

	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	res := &Result{
		Module: mod,
		Units:  make([]*Unit, len(mod.Functions)),
		Stats:  &Stats{},
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	fail := func(err error) {
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}

	for i, f := range mod.Functions {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		i, f := i, f
		wg.Add(1)
		task := func() {
			defer wg.Done()
			// panic 只影响当前函数，按内部错误记录
			defer func() {
				if p := recover(); p != nil {
					log.Error("analysis panicked", zap.String("function", f.Name), zap.Any("panic", p))
					res.Stats.Failed.Inc()
					fail(errors.Internal(errors.SP0209, "%v", p).InFunction(f.Name))
				}
			}()
			if ctx.Err() != nil {
				return
			}
			u, err := RunFunction(f, newPipeline(), c)
			if err != nil {
				res.Stats.Failed.Inc()
				fail(err)
				return
			}
			res.Units[i] = u
			res.Stats.record(u)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			fail(fmt.Errorf("failed to submit %s: %w", f.Name, err))
		}
	}
	wg.Wait()

	s := res.Stats.Snapshot()
	log.Info("module analysed",
		zap.String("module", mod.Name),
		zap.Int64("functions", s.Functions),
		zap.Int64("failed", s.Failed),
		zap.Int64("soft_failures", s.SoftFailures),
	)
	return res, errs
}
