// Package errors 提供单路径转换引擎的错误处理系统
package errors

import "github.com/tangzhangming/singlepath/internal/i18n"

// ============================================================================
// 错误级别
// ============================================================================

// Level 错误级别
type Level int

const (
	LevelError   Level = iota // 错误
	LevelWarning              // 警告
	LevelNote                 // 提示
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	default:
		return "unknown"
	}
}

// ============================================================================
// 不支持的输入 (致命，终止当前函数的编译)
// ============================================================================

const (
	// SP0100-SP0199: 输入错误
	SP0100 = "SP0100" // 不可归约的控制流
	SP0101 = "SP0101" // 循环头缺少循环边界
	SP0102 = "SP0102" // 函数有多个出口块
	SP0103 = "SP0103" // 补偿值超出立即数宽度
	SP0104 = "SP0104" // 空函数
	SP0105 = "SP0105" // 不可达的基本块
	SP0106 = "SP0106" // 未知的基本块引用
	SP0107 = "SP0107" // 入口块有前驱
	SP0108 = "SP0108" // 非法的函数描述
)

// ============================================================================
// 内部不变量违例 (致命，防御性断言)
// ============================================================================

const (
	// SP0200-SP0299: 内部错误
	SP0200 = "SP0200" // 等价类没有唯一的根
	SP0201 = "SP0201" // 长指令被调度到第二发射槽
	SP0202 = "SP0202" // 长指令与其他指令共享发射包
	SP0203 = "SP0203" // 调度器依赖图无法满足
	SP0204 = "SP0204" // 控制依赖边非法
	SP0205 = "SP0205" // 不动点迭代失控
	SP0206 = "SP0206" // 支配关系不可靠
	SP0207 = "SP0207" // 补偿后路径访存总数不一致
	SP0208 = "SP0208" // 指令未被调度或被重复调度
	SP0209 = "SP0209" // 分析过程中发生 panic
)

// ============================================================================
// 软失败 (分析返回空结果，由调用方决定)
// ============================================================================

const (
	// SP0300-SP0399: 软失败
	SP0300 = "SP0300" // 无法建立有界支配者
)

// DefaultMessage 返回错误码在当前语言下的默认描述
func DefaultMessage(code string) string {
	if i18n.Has(code) {
		return i18n.T(code)
	}
	return i18n.T("error.unknown")
}

// IsInternal 检查错误码是否属于内部不变量违例
func IsInternal(code string) bool {
	return len(code) == 6 && code[:3] == "SP0" && code[3] == '2'
}

// IsSoft 检查错误码是否属于软失败
func IsSoft(code string) bool {
	return len(code) == 6 && code[:3] == "SP0" && code[3] == '3'
}
