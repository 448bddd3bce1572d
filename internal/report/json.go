package report

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
)

// JSON 写出模块报告
func JSON(w io.Writer, rep *Module, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Marshal 报告的紧凑 JSON 编码
func Marshal(rep *Module) ([]byte, error) {
	return json.Marshal(rep)
}

// Unmarshal 读取 JSON 报告
func Unmarshal(data []byte) (*Module, error) {
	rep := &Module{}
	if err := json.Unmarshal(data, rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return rep, nil
}
