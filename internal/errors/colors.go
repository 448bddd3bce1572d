package errors

import (
	"github.com/fatih/color"
)

// style 终端样式
type style = *color.Color

// 诊断输出使用的样式
var (
	styleError    = color.New(color.FgRed, color.Bold)
	styleWarning  = color.New(color.FgYellow, color.Bold)
	styleNote     = color.New(color.FgCyan, color.Bold)
	styleLocation = color.New(color.FgCyan)
)

// levelStyle 根据错误级别选择样式
func levelStyle(l Level) style {
	switch l {
	case LevelError:
		return styleError
	case LevelWarning:
		return styleWarning
	default:
		return styleNote
	}
}

// EnableColors 启用颜色
func EnableColors() {
	color.NoColor = false
}

// DisableColors 禁用颜色
func DisableColors() {
	color.NoColor = true
}

// ColorsEnabled 检查是否启用颜色
// fatih/color 在非终端输出时自动禁用
func ColorsEnabled() bool {
	return !color.NoColor
}
