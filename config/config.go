// Package config 加载进程配置（默认值 -> YAML 文件 -> 环境变量），并提供预测器构建注册表。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/carefolio/logging"
	"github.com/rushteam/carefolio/store"
)

// EnvPrefix 环境变量前缀，CAREFOLIO_SERVER__ADDR 对应 server.addr
const EnvPrefix = "CAREFOLIO_"

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "CAREFOLIO_CONFIG"

// DefaultConfigPaths 未指定配置文件时依次查找的路径
var DefaultConfigPaths = []string{
	"carefolio.yaml",
	"carefolio.yml",
	"/etc/carefolio/config.yaml",
}

// Config 进程配置
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  logging.Config `koanf:"logging"`
	Store    StoreConfig    `koanf:"store"`
	Workout  WorkoutConfig  `koanf:"workout"`
	MealPlan MealPlanConfig `koanf:"mealplan"`
	Coach    CoachConfig    `koanf:"coach"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"` // 每个 IP 每个窗口的请求数，0 表示不限流
	RateWindow      time.Duration `koanf:"rate_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// StoreConfig 训练产物存储配置，用于 store:// 数据源
type StoreConfig struct {
	Backend   string            `koanf:"backend" validate:"oneof=none memory redis"`
	KeyPrefix string            `koanf:"key_prefix"`
	Redis     store.RedisConfig `koanf:"redis"`
}

// ModelConfig 描述一个预测器，Type 对应 Register 注册的构建器
type ModelConfig struct {
	Type      string         `koanf:"type" validate:"required"`
	Exclusive bool           `koanf:"exclusive"` // 预测器不是并发安全时置为 true
	Params    map[string]any `koanf:"params"`
}

// WorkoutConfig 健身推荐服务配置
type WorkoutConfig struct {
	Enabled   bool        `koanf:"enabled"`
	Artifacts string      `koanf:"artifacts" validate:"required_if=Enabled true"`
	Model     ModelConfig `koanf:"model"`
	// Fallback 每个类别字段的未知值回退策略（first / class:<name> / code:<n>）
	Fallback map[string]string `koanf:"fallback"`
}

// MealPlanConfig 饮食计划服务配置
type MealPlanConfig struct {
	Enabled    bool        `koanf:"enabled"`
	Regressor  ModelConfig `koanf:"regressor"`
	Classifier ModelConfig `koanf:"classifier"`
	// Columns 模型特征列，为空时使用内置列表或模型导出的 feature_names
	Columns []string `koanf:"columns"`
	// BMR / TDEE 缺失时的派生表达式（CEL），为空时使用内置公式
	BMRExpr  string `koanf:"bmr_expr"`
	TDEEExpr string `koanf:"tdee_expr"`
}

// CoachConfig 健身问答配置
type CoachConfig struct {
	Enabled    bool          `koanf:"enabled"`
	BaseURL    string        `koanf:"base_url" validate:"required_if=Enabled true"`
	APIKey     string        `koanf:"api_key" validate:"required_if=Enabled true"`
	Model      string        `koanf:"model" validate:"required_if=Enabled true"`
	MaxTokens  int           `koanf:"max_tokens" validate:"gte=0"`
	MaxHistory int           `koanf:"max_history" validate:"gte=0"`
	Timeout    time.Duration `koanf:"timeout"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: logging.Config{Level: "info", Format: "json"},
		Store: StoreConfig{
			Backend:   "none",
			KeyPrefix: "carefolio:artifacts:",
		},
		Workout: WorkoutConfig{
			Enabled:   true,
			Artifacts: "artifacts/workout/artifacts.json",
			Model: ModelConfig{
				Type:   "forest",
				Params: map[string]any{"path": "artifacts/workout/model.json"},
			},
		},
		MealPlan: MealPlanConfig{
			Enabled: true,
			Regressor: ModelConfig{
				Type:   "forest",
				Params: map[string]any{"path": "artifacts/mealplan/regressor.json"},
			},
			Classifier: ModelConfig{
				Type:   "forest",
				Params: map[string]any{"path": "artifacts/mealplan/classifier.json"},
			},
		},
		Coach: CoachConfig{
			Enabled:    false,
			BaseURL:    "https://api.groq.com/openai/v1",
			Model:      "llama-3.1-8b-instant",
			MaxTokens:  1024,
			MaxHistory: 10,
			Timeout:    60 * time.Second,
		},
	}
}

// Load 按 默认值 -> 配置文件 -> 环境变量 的顺序加载配置。
// path 为空时查找 CAREFOLIO_CONFIG 与 DefaultConfigPaths，找不到则只用默认值与环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc CAREFOLIO_COACH__API_KEY -> coach.api_key
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		return errors.New("store.redis.addr is required when store.backend is redis")
	}
	if c.Workout.Enabled {
		if err := validateModel("workout.model", c.Workout.Model); err != nil {
			return err
		}
	}
	if c.MealPlan.Enabled {
		if err := validateModel("mealplan.regressor", c.MealPlan.Regressor); err != nil {
			return err
		}
		if err := validateModel("mealplan.classifier", c.MealPlan.Classifier); err != nil {
			return err
		}
	}
	return nil
}
