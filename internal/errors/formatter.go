package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/tangzhangming/singlepath/internal/i18n"
)

// ============================================================================
// 诊断错误
// ============================================================================

// Error 单路径转换中的诊断错误
// 定位信息以函数、基本块和循环名称表示
type Error struct {
	Code     string   // 错误码 (SP0101)
	Level    Level    // 错误级别
	Message  string   // 主消息
	Function string   // 函数名
	Block    string   // 基本块名（可选）
	Loop     string   // 循环头名（可选）
	Notes    []string // 附加说明
	cause    error
}

// Fatal 创建致命错误
// format 为空时使用错误码的默认描述
func Fatal(code string, format string, args ...interface{}) *Error {
	msg := DefaultMessage(code)
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Level: LevelError, Message: msg}
}

// Internal 创建内部不变量违例
func Internal(code string, format string, args ...interface{}) *Error {
	e := Fatal(code, format, args...)
	e.Notes = append(e.Notes, i18n.T("note.internal"))
	return e
}

// Warning 创建警告（用于软失败）
func Warning(code string, format string, args ...interface{}) *Error {
	e := Fatal(code, format, args...)
	e.Level = LevelWarning
	return e
}

// Wrap 包装底层错误
func Wrap(code string, cause error, format string, args ...interface{}) *Error {
	e := Fatal(code, format, args...)
	e.cause = cause
	return e
}

// InFunction 设置函数名
func (e *Error) InFunction(name string) *Error {
	e.Function = name
	return e
}

// AtBlock 设置基本块名
func (e *Error) AtBlock(name string) *Error {
	e.Block = name
	return e
}

// AtLoop 设置循环头名
func (e *Error) AtLoop(name string) *Error {
	e.Loop = name
	return e
}

// WithNote 添加附加说明
func (e *Error) WithNote(format string, args ...interface{}) *Error {
	e.Notes = append(e.Notes, fmt.Sprintf(format, args...))
	return e
}

// Error 实现 error 接口
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s[%s]: %s", e.Level, e.Code, e.Message))
	if loc := e.location(); loc != "" {
		sb.WriteString(" (")
		sb.WriteString(loc)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.cause
}

// location 格式化定位信息
func (e *Error) location() string {
	var parts []string
	if e.Function != "" {
		parts = append(parts, "function "+e.Function)
	}
	if e.Loop != "" {
		parts = append(parts, "loop "+e.Loop)
	}
	if e.Block != "" {
		parts = append(parts, "block "+e.Block)
	}
	return strings.Join(parts, ", ")
}

// ============================================================================
// 辅助函数
// ============================================================================

// CodeOf 提取错误链中第一个诊断错误的错误码
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode 检查错误链中是否包含指定错误码，聚合错误逐个检查
func HasCode(err error, code string) bool {
	for _, e := range multierr.Errors(err) {
		if CodeOf(e) == code {
			return true
		}
	}
	return false
}

// Is 转发标准库 errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As 转发标准库 errors.As
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// ============================================================================
// 格式化器
// ============================================================================

// Formatter 诊断格式化器
type Formatter struct {
	Colors    bool // 是否使用颜色
	ShowNotes bool // 是否显示附加说明
	ShowHints bool // 是否显示修复建议
}

// NewFormatter 创建默认格式化器
func NewFormatter() *Formatter {
	return &Formatter{
		Colors:    true,
		ShowNotes: true,
		ShowHints: true,
	}
}

// Format 格式化诊断错误
func (f *Formatter) Format(err *Error) string {
	var sb strings.Builder

	// 错误头: error[SP0101]: loop bound missing
	levelStr := f.paint(err.Level.String(), levelStyle(err.Level))
	codeStr := f.paint(fmt.Sprintf("[%s]", err.Code), levelStyle(err.Level))
	sb.WriteString(fmt.Sprintf("%s%s: %s\n", levelStr, codeStr, err.Message))

	// 位置: --> function f, block bb3
	if loc := err.location(); loc != "" {
		arrow := f.paint("-->", styleLocation)
		sb.WriteString(fmt.Sprintf(" %s %s\n", arrow, f.paint(loc, styleLocation)))
	}

	if err.cause != nil {
		sb.WriteString(fmt.Sprintf(" %s %s\n", f.paint("= cause:", styleLocation), err.cause.Error()))
	}

	if f.ShowNotes {
		for _, note := range err.Notes {
			sb.WriteString(fmt.Sprintf(" %s %s\n", f.paint("= "+i18n.T("label.note")+":", styleLocation), note))
		}
	}

	if f.ShowHints {
		for _, hint := range Suggestions(err.Code) {
			sb.WriteString(fmt.Sprintf(" %s %s\n", f.paint("= "+i18n.T("label.help")+":", styleLocation), hint))
		}
	}

	return sb.String()
}

func (f *Formatter) paint(s string, st style) string {
	if !f.Colors {
		return s
	}
	return st.Sprint(s)
}
