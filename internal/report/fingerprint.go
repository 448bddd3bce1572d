package report

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint 报告内容的 BLAKE2b-256 摘要
// 同一输入与配置重复分析得到的摘要必须相同
func Fingerprint(rep *Module) (string, error) {
	data, err := Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
