// Package i18n 诊断信息的多语言支持
//
// 消息 ID 是错误码（如 SP0101）或修复建议 ID（如 suggestion.SP0101.0）。
package i18n

import (
	"fmt"
	"strings"

	"go.uber.org/atomic"
)

// Language 语言类型
type Language string

const (
	LangEnglish Language = "en"
	LangChinese Language = "zh"
)

// catalogs 各语言的消息目录，英文为回退目录
var catalogs = map[Language]map[string]string{
	LangEnglish: messagesEN,
	LangChinese: messagesZH,
}

var current = atomic.NewString(string(LangEnglish))

// SetLanguage 设置诊断语言
func SetLanguage(lang Language) {
	current.Store(string(lang))
}

// SetLanguageFromString 按 --lang 的取值设置语言，无法识别时返回错误并保持英文
func SetLanguageFromString(lang string) error {
	switch strings.ToLower(lang) {
	case "zh", "zh-cn", "zh-tw", "zh-hk", "chinese":
		SetLanguage(LangChinese)
	case "", "en", "en-us", "en-gb", "english":
		SetLanguage(LangEnglish)
	default:
		SetLanguage(LangEnglish)
		return fmt.Errorf("unsupported language %q (want en or zh)", lang)
	}
	return nil
}

// Has 消息 ID 是否在英文目录中
func Has(msgID string) bool {
	_, ok := messagesEN[msgID]
	return ok
}

// T 当前语言下的消息
// 缺少翻译时回退到英文，仍找不到则返回消息 ID
func T(msgID string) string {
	if msg, ok := catalogs[Language(current.Load())][msgID]; ok {
		return msg
	}
	if msg, ok := messagesEN[msgID]; ok {
		return msg
	}
	return msgID
}
