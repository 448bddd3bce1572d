// Package config 单路径转换的配置
//
// 所有分析入口显式接收 *Config，不使用全局开关。
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 常量定义
const (
	ConfigFileName = "singlepath.toml" // 默认配置文件名

	DefaultMaxIterations        = 10000
	DefaultImmediateWidth       = 4095
	DefaultCompensationFunction = "__patmos_main_mem_access_compensation"
)

// LoopBoundSource 循环边界来源
type LoopBoundSource string

const (
	BoundsFromAnnotation LoopBoundSource = "annotation" // 必须由函数描述提供
	BoundsFromDefault    LoopBoundSource = "default"    // 缺失时使用 DefaultLoopBound
)

// Compensation 访存补偿算法
type Compensation string

const (
	CompensationHybrid   Compensation = "hybrid"   // 选择代价更低的方案
	CompensationOpposite Compensation = "opposite" // 反谓词填充
	CompensationCounter  Compensation = "counter"  // 计数器补偿
)

// Bound 循环迭代次数边界
type Bound struct {
	Min int64 `toml:"min" yaml:"min" json:"min"`
	Max int64 `toml:"max" yaml:"max" json:"max"`
}

// Constant 迭代次数是否为编译期常量
func (b Bound) Constant() bool {
	return b.Min == b.Max
}

// Config 单路径转换配置
type Config struct {
	// LoopBounds 循环边界来源
	LoopBounds LoopBoundSource `toml:"loop_bounds"`

	// DefaultLoopBound 未标注循环使用的边界（仅 LoopBounds = default 时有效）
	DefaultLoopBound Bound `toml:"default_loop_bound"`

	// Compensation 补偿算法
	Compensation Compensation `toml:"compensation"`

	// DualIssue 启用双发射调度
	DualIssue bool `toml:"dual_issue"`

	// PermissiveDualIssue 允许任意指令进入第二发射槽
	PermissiveDualIssue bool `toml:"permissive_dual_issue"`

	// MaxIterations 不动点迭代上限
	MaxIterations int `toml:"max_iterations"`

	// Verify 运行结果校验
	Verify bool `toml:"verify"`

	// ImmediateWidth 补偿计数器立即数的最大值
	ImmediateWidth int64 `toml:"immediate_width"`

	// CompensationFunction 补偿函数名
	CompensationFunction string `toml:"compensation_function"`

	// Workers 并发分析的函数数
	Workers int `toml:"workers"`

	// LogLevel 日志级别 (debug, info, warn, error)
	LogLevel string `toml:"log_level"`

	logger *zap.Logger
}

// file 配置文件结构
type file struct {
	SinglePath Config `toml:"singlepath"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LoopBounds:           BoundsFromAnnotation,
		DefaultLoopBound:     Bound{Min: 1, Max: 1},
		Compensation:         CompensationHybrid,
		DualIssue:            false,
		MaxIterations:        DefaultMaxIterations,
		Verify:               true,
		ImmediateWidth:       DefaultImmediateWidth,
		CompensationFunction: DefaultCompensationFunction,
		Workers:              runtime.NumCPU(),
		LogLevel:             "info",
	}
}

// Load 从文件加载配置
// 文件中未出现的字段保留默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 TOML 配置
func Parse(data []byte) (*Config, error) {
	f := file{SinglePath: *DefaultConfig()}
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg := f.SinglePath
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.LoopBounds {
	case BoundsFromAnnotation, BoundsFromDefault:
	default:
		return fmt.Errorf("invalid loop_bounds %q (want annotation or default)", c.LoopBounds)
	}
	switch c.Compensation {
	case CompensationHybrid, CompensationOpposite, CompensationCounter:
	default:
		return fmt.Errorf("invalid compensation %q (want hybrid, opposite or counter)", c.Compensation)
	}
	if c.DefaultLoopBound.Min < 0 || c.DefaultLoopBound.Max < c.DefaultLoopBound.Min {
		return fmt.Errorf("invalid default_loop_bound [%d, %d]", c.DefaultLoopBound.Min, c.DefaultLoopBound.Max)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.ImmediateWidth <= 0 {
		return fmt.Errorf("immediate_width must be positive, got %d", c.ImmediateWidth)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Clone 复制配置（日志器共享）
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// WithLogger 设置日志器
func (c *Config) WithLogger(l *zap.Logger) *Config {
	c.logger = l
	return c
}

// Logger 返回日志器，未设置时静默
func (c *Config) Logger() *zap.Logger {
	if c == nil || c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// NewLogger 按配置的日志级别构建日志器
// development 为 true 时使用开发模式输出
func (c *Config) NewLogger(development bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}
	var zc zap.Config
	if development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	content := generateConfigWithComments(c)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateConfigWithComments 生成带注释的配置文件内容
func generateConfigWithComments(c *Config) string {
	var sb strings.Builder

	sb.WriteString("[singlepath]\n")
	sb.WriteString("# 循环边界来源: annotation | default\n")
	sb.WriteString(fmt.Sprintf("loop_bounds = %q\n\n", c.LoopBounds))
	sb.WriteString("# 补偿算法: hybrid | opposite | counter\n")
	sb.WriteString(fmt.Sprintf("compensation = %q\n\n", c.Compensation))
	sb.WriteString("# 双发射调度\n")
	sb.WriteString(fmt.Sprintf("dual_issue = %t\n", c.DualIssue))
	sb.WriteString(fmt.Sprintf("permissive_dual_issue = %t\n\n", c.PermissiveDualIssue))
	sb.WriteString(fmt.Sprintf("max_iterations = %d\n", c.MaxIterations))
	sb.WriteString(fmt.Sprintf("verify = %t\n", c.Verify))
	sb.WriteString(fmt.Sprintf("immediate_width = %d\n", c.ImmediateWidth))
	sb.WriteString(fmt.Sprintf("compensation_function = %q\n", c.CompensationFunction))
	sb.WriteString(fmt.Sprintf("workers = %d\n", c.Workers))
	sb.WriteString(fmt.Sprintf("log_level = %q\n\n", c.LogLevel))
	sb.WriteString("[singlepath.default_loop_bound]\n")
	sb.WriteString(fmt.Sprintf("min = %d\n", c.DefaultLoopBound.Min))
	sb.WriteString(fmt.Sprintf("max = %d\n", c.DefaultLoopBound.Max))

	return sb.String()
}
