// Package loader 读取模块描述文件
//
// 支持 YAML (.yaml/.yml) 与 TOML (.toml)，未知字段视为错误。
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/module"
)

// Format 描述文件格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf 按扩展名判断格式
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported module file %q (want .yaml, .yml or .toml)", path)
	}
}

// Load 读取并校验模块描述
// 描述中没有模块名时使用文件名
func Load(path string) (*module.Module, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module file: %w", err)
	}
	mod, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mod.Name == "" {
		base := filepath.Base(path)
		mod.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return mod, nil
}

// Decode 解析模块描述
func Decode(data []byte, format Format) (*module.Module, error) {
	mod := &module.Module{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(mod); err != nil {
			return nil, errors.Wrap(errors.SP0108, err, "invalid YAML module description")
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(mod); err != nil {
			return nil, errors.Wrap(errors.SP0108, err, "invalid TOML module description")
		}
	default:
		return nil, fmt.Errorf("unknown module format %q", format)
	}
	if err := mod.Validate(); err != nil {
		return nil, err
	}
	return mod, nil
}

// FindConfig 从模块文件所在目录向上查找配置文件
func FindConfig(startPath string) (string, error) {
	dir := filepath.Dir(startPath)
	for {
		configFile := filepath.Join(dir, config.ConfigFileName)
		if _, err := os.Stat(configFile); err == nil {
			return configFile, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", config.ConfigFileName)
		}
		dir = parent
	}
}

// LoadConfig 读取模块对应的配置
// 显式路径优先；否则向上查找配置文件，找不到时使用默认配置
func LoadConfig(explicit, modulePath string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	path, err := FindConfig(modulePath)
	if err != nil {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}
