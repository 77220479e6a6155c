// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	configpkg "github.com/wyfcoding/pkg/config"

	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// Config 定价引擎配置
type Config struct {
	// 服务名称，用作指标子系统名
	ServiceName string `mapstructure:"service_name" validate:"required"`
	// 版本
	Version string `mapstructure:"version"`
	// 环境：dev, test, staging, prod
	Environment string `mapstructure:"environment" validate:"omitempty,oneof=dev test staging prod"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 定价结果 ID 生成器
	Snowflake configpkg.SnowflakeConfig `mapstructure:"snowflake"`
	// 树方法配置
	Lattice LatticeConfig `mapstructure:"lattice"`
	// 蒙特卡洛配置
	MonteCarlo MonteCarloConfig `mapstructure:"montecarlo"`
	// 敏感度配置
	Sensitivity SensitivityConfig `mapstructure:"sensitivity"`
	// 输出配置
	Report ReportConfig `mapstructure:"report"`
}

// MetricsConfig 指标配置
// Port 非空时在运行期间经 HTTP 暴露 /metrics。
type MetricsConfig struct {
	configpkg.MetricsConfig `mapstructure:",squash"`
	// 指标命名空间
	Namespace string `mapstructure:"namespace"`
	// node-exporter textfile 输出路径，空串表示不导出
	TextfilePath string `mapstructure:"textfile_path"`
}

// LatticeConfig 树方法配置
type LatticeConfig struct {
	// 格式名称：boyle, jarrow-rudd, tian, kamrad-ritchken
	Scheme string `mapstructure:"scheme"`
	// 初始步数
	Steps int `mapstructure:"steps" validate:"min=1"`
	// 自适应加倍上限
	MaxSteps int `mapstructure:"max_steps"`
	// 收敛容差
	Tolerance float64 `mapstructure:"tolerance"`
	// 是否自适应，false 为严格模式
	Adaptive bool `mapstructure:"adaptive"`
	// 回退格式，空串表示不回退
	FallbackScheme string `mapstructure:"fallback_scheme"`
}

// MonteCarloConfig 路径模拟配置
type MonteCarloConfig struct {
	Paths int    `mapstructure:"paths" validate:"min=1"`
	Steps int    `mapstructure:"steps" validate:"min=1"`
	Seed  uint64 `mapstructure:"seed"`
}

// SensitivityConfig 敏感度配置
type SensitivityConfig struct {
	// 有限差分步长
	Step float64 `mapstructure:"step" validate:"gt=0"`
	// 是否并行计算五个希腊字母
	Parallel bool `mapstructure:"parallel"`
}

// ReportConfig 输出配置
type ReportConfig struct {
	// 价格与希腊字母保留的小数位
	Precision int32 `mapstructure:"precision" validate:"min=0"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖，文件必须存在
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时只使用默认值与环境变量
func LoadWithDefaults(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	return decode(v)
}

// LoadDotEnv 将 .env 文件中的变量写入进程环境，已存在的变量不覆盖，文件不存在时忽略
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	// 环境变量前缀 APP，使用 _ 替代 .
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.Lattice.Steps < 1 {
		return fmt.Errorf("lattice.steps must be at least 1, got %d", c.Lattice.Steps)
	}
	if c.Lattice.MaxSteps < c.Lattice.Steps {
		return fmt.Errorf("lattice.max_steps %d below lattice.steps %d", c.Lattice.MaxSteps, c.Lattice.Steps)
	}
	if c.Lattice.Adaptive && c.Lattice.Tolerance <= 0 {
		return fmt.Errorf("lattice.tolerance must be positive in adaptive mode")
	}
	if c.MonteCarlo.Paths < 1 || c.MonteCarlo.Steps < 1 {
		return fmt.Errorf("montecarlo.paths and montecarlo.steps must be positive")
	}
	if c.Sensitivity.Step <= 0 {
		return fmt.Errorf("sensitivity.step must be positive, got %v", c.Sensitivity.Step)
	}
	if c.Report.Precision < 0 {
		return fmt.Errorf("report.precision must be non-negative, got %d", c.Report.Precision)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "pricing")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("logger.service", "pricing")
	v.SetDefault("logger.module", "pricing")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.file_path", "logs/pricing.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "optionpricing")
	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("metrics.port", "")

	v.SetDefault("snowflake.type", "snowflake")
	v.SetDefault("snowflake.start_time", "")
	v.SetDefault("snowflake.machine_id", 1)

	v.SetDefault("lattice.scheme", "kamrad-ritchken")
	v.SetDefault("lattice.steps", 200)
	v.SetDefault("lattice.max_steps", 3200)
	v.SetDefault("lattice.tolerance", 1e-3)
	v.SetDefault("lattice.adaptive", true)
	v.SetDefault("lattice.fallback_scheme", "kamrad-ritchken")

	v.SetDefault("montecarlo.paths", 20000)
	v.SetDefault("montecarlo.steps", 100)
	v.SetDefault("montecarlo.seed", 42)

	v.SetDefault("sensitivity.step", 1e-4)
	v.SetDefault("sensitivity.parallel", true)

	v.SetDefault("report.precision", 6)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
