// Package config 读取 pwait 的运行配置
//
// 优先级从高到低：命令行参数、PWAIT_ 前缀的环境变量、配置文件（yaml）、默认值。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 配置键
const (
	KeyWaitStrategy = "wait_strategy"
	KeyLogFormat    = "log_format"
	KeyVerbose      = "verbose"
	KeyOutput       = "output"
)

// 输出格式
const (
	OutputText = "text"
	OutputJSON = "json"
)

// EnvPrefix 是环境变量前缀，例如 PWAIT_WAIT_STRATEGY
const EnvPrefix = "PWAIT"

// Config 是一次运行的配置
type Config struct {
	WaitStrategy string `mapstructure:"wait_strategy"`
	LogFormat    string `mapstructure:"log_format"`
	Verbose      bool   `mapstructure:"verbose"`
	Output       string `mapstructure:"output"`
}

// New 返回设置了默认值和环境变量绑定的 viper 实例
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyWaitStrategy, "auto")
	v.SetDefault(KeyLogFormat, "auto")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyOutput, OutputText)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile 读取配置文件，path 为空时不做任何事
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// Load 从 v 中解析并校验配置
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		WaitStrategy: strings.ToLower(v.GetString(KeyWaitStrategy)),
		LogFormat:    strings.ToLower(v.GetString(KeyLogFormat)),
		Verbose:      v.GetBool(KeyVerbose),
		Output:       strings.ToLower(v.GetString(KeyOutput)),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查枚举类字段
func (c Config) Validate() error {
	switch c.WaitStrategy {
	case "auto", "waitpid", "waitid":
	default:
		return fmt.Errorf("invalid wait strategy %q (want auto, waitpid or waitid)", c.WaitStrategy)
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want auto, text or json)", c.LogFormat)
	}
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("invalid output %q (want text or json)", c.Output)
	}
	return nil
}
