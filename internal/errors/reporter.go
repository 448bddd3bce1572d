package errors

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/multierr"
)

// ============================================================================
// 诊断报告器
// ============================================================================

// Reporter 诊断报告器
// 可被多个并发分析任务共享
type Reporter struct {
	mu        sync.Mutex
	formatter *Formatter
	out       io.Writer
	errors    []*Error
	warnings  []*Error
}

// NewReporter 创建诊断报告器
func NewReporter() *Reporter {
	return &Reporter{
		formatter: NewFormatter(),
		out:       os.Stderr,
	}
}

// SetFormatter 设置格式化器
func (r *Reporter) SetFormatter(f *Formatter) {
	r.formatter = f
}

// SetOutput 设置输出
func (r *Reporter) SetOutput(w io.Writer) {
	r.out = w
}

// Report 记录一个错误
// 组合错误会被拆开逐个记录，非诊断错误按普通错误处理
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}
	for _, e := range multierr.Errors(err) {
		var diag *Error
		if !As(e, &diag) {
			diag = &Error{Level: LevelError, Message: e.Error()}
		}
		r.add(diag)
	}
}

// add 按级别归档
func (r *Reporter) add(e *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Level == LevelError {
		r.errors = append(r.errors, e)
	} else {
		r.warnings = append(r.warnings, e)
	}
}

// Flush 输出所有诊断
func (r *Reporter) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.warnings {
		fmt.Fprint(r.out, r.formatter.Format(w))
	}
	for _, e := range r.errors {
		fmt.Fprint(r.out, r.formatter.Format(e))
	}
}

// HasErrors 是否有错误
func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

// ErrorCount 错误数量
func (r *Reporter) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// WarningCount 警告数量
func (r *Reporter) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

// Errors 获取所有错误
func (r *Reporter) Errors() []*Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Error(nil), r.errors...)
}

// Warnings 获取所有警告
func (r *Reporter) Warnings() []*Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Error(nil), r.warnings...)
}

// Err 把所有错误合并为一个 error
func (r *Reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	for _, e := range r.errors {
		err = multierr.Append(err, e)
	}
	return err
}

// Clear 清空
func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = nil
	r.warnings = nil
}
