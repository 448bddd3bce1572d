package errors

import (
	"fmt"

	"github.com/tangzhangming/singlepath/internal/i18n"
)

// ============================================================================
// 修复建议
// ============================================================================

// Suggestions 根据错误码获取修复建议，按当前语言翻译
// 建议的消息 ID 为 suggestion.<错误码>.<序号>，序号从 0 连续编号
func Suggestions(code string) []string {
	var out []string
	for i := 0; ; i++ {
		id := fmt.Sprintf("suggestion.%s.%d", code, i)
		if !i18n.Has(id) {
			return out
		}
		out = append(out, i18n.T(id))
	}
}
