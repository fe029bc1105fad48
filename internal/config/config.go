package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type ProviderConfig struct {
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	TimeoutMS int    `json:"timeout_ms"`
	MaxSteps  int    `json:"max_steps"`
}

type RuntimeConfig struct {
	// ContextWindow 会话 token 预算，用于用量显示
	// ContextWindow is the session token budget used for usage display
	ContextWindow int    `json:"context_window"`
	BaseDir       string `json:"base_dir"`
}

type BridgeConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	CommandTimeoutMS int    `json:"command_timeout_ms"`
}

type MemoryConfig struct {
	DBPath          string `json:"db_path"`
	AutoDistill     bool   `json:"auto_distill"`
	Recall          bool   `json:"recall"`
	RecallMaxTokens int    `json:"recall_max_tokens"`
	FactTTLDays     int    `json:"fact_ttl_days"`    // 0 = keep indefinitely
	EventTTLDays    int    `json:"event_ttl_days"`   // 0 = default retention
	EpisodeTTLDays  int    `json:"episode_ttl_days"` // 0 = default retention
}

type SafetyConfig struct {
	CommandTimeoutMS int `json:"command_timeout_ms"`
	OutputLimitBytes int `json:"output_limit_bytes"`
}

type Config struct {
	Provider ProviderConfig `json:"provider"`
	Runtime  RuntimeConfig  `json:"runtime"`
	Bridge   BridgeConfig   `json:"bridge"`
	Memory   MemoryConfig   `json:"memory"`
	Safety   SafetyConfig   `json:"safety"`
}

// DefaultBaseDir 返回默认数据目录 ~/.valet
// DefaultBaseDir returns the default data directory ~/.valet
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".valet"
	}
	return filepath.Join(home, ".valet")
}

// Load 读取配置文件并套用默认值与环境变量覆盖。路径为空时使用 ~/.valet/config.json，
// 文件不存在时直接使用默认配置。
// Load reads the config file, applies defaults and env overrides. An empty path
// means ~/.valet/config.json; a missing file falls back to pure defaults.
func Load(path string) (Config, error) {
	var cfg Config
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join(DefaultBaseDir(), "config.json")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Runtime.BaseDir) == "" {
		cfg.Runtime.BaseDir = DefaultBaseDir()
	}
	if cfg.Runtime.ContextWindow <= 0 {
		cfg.Runtime.ContextWindow = 128000
	}
	if strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		cfg.Provider.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(cfg.Provider.Model) == "" {
		cfg.Provider.Model = "gpt-4o-mini"
	}
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = 120000
	}
	if cfg.Provider.MaxSteps <= 0 {
		cfg.Provider.MaxSteps = 20
	}
	if strings.TrimSpace(cfg.Bridge.Host) == "" {
		cfg.Bridge.Host = "127.0.0.1"
	}
	if cfg.Bridge.Port <= 0 {
		cfg.Bridge.Port = 7777
	}
	if cfg.Bridge.CommandTimeoutMS <= 0 {
		cfg.Bridge.CommandTimeoutMS = 30000
	}
	if strings.TrimSpace(cfg.Memory.DBPath) == "" {
		cfg.Memory.DBPath = filepath.Join(cfg.Runtime.BaseDir, "memory", "valet_memory.db")
	}
	if cfg.Memory.RecallMaxTokens <= 0 {
		cfg.Memory.RecallMaxTokens = 1200
	}
	if cfg.Memory.EventTTLDays <= 0 {
		cfg.Memory.EventTTLDays = 90
	}
	if cfg.Memory.EpisodeTTLDays <= 0 {
		cfg.Memory.EpisodeTTLDays = 180
	}
	if cfg.Safety.CommandTimeoutMS <= 0 {
		cfg.Safety.CommandTimeoutMS = 60000
	}
	if cfg.Safety.OutputLimitBytes <= 0 {
		cfg.Safety.OutputLimitBytes = 64 * 1024
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("VALET_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("VALET_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("VALET_MODEL")); v != "" {
		cfg.Provider.Model = v
	}
	if n, ok := envInt("VALET_CONTEXT_WINDOW"); ok && n > 0 {
		cfg.Runtime.ContextWindow = n
	}
	if n, ok := envInt("VALET_BRIDGE_PORT"); ok && n > 0 {
		cfg.Bridge.Port = n
	}
	if v := strings.TrimSpace(os.Getenv("VALET_BRIDGE_HOST")); v != "" {
		cfg.Bridge.Host = v
	}
	if b, ok := envBool("VALET_MEMORY_AUTO_DISTILL"); ok {
		cfg.Memory.AutoDistill = b
	}
	if b, ok := envBool("VALET_MEMORY_RECALL"); ok {
		cfg.Memory.Recall = b
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
