package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config описывает параметры backend.
type Config struct {
	App struct {
		Version  string `yaml:"version"`
		LogLevel string `yaml:"log_level"`
		DataDir  string `yaml:"data_dir"`
	} `yaml:"app"`
	SelfTest struct {
		AsyncDelayMS      int    `yaml:"async_delay_ms"`
		NetworkMinDelayMS int    `yaml:"network_min_delay_ms"`
		NetworkMaxDelayMS int    `yaml:"network_max_delay_ms"`
		MemoryBytes       int    `yaml:"memory_bytes"`
		TempDir           string `yaml:"temp_dir"`
	} `yaml:"selftest"`
	Files struct {
		Perm uint32 `yaml:"perm"`
	} `yaml:"files"`
	Web struct {
		Enabled          bool     `yaml:"enabled"`
		ListenAddr       string   `yaml:"listen_addr"`
		ReadTimeoutMS    int      `yaml:"read_timeout_ms"`
		WriteTimeoutMS   int      `yaml:"write_timeout_ms"`
		RequestTimeoutMS int      `yaml:"request_timeout_ms"`
		ShutdownTimeoutS int      `yaml:"shutdown_timeout_s"`
		MaxBodyBytes     int64    `yaml:"max_body_bytes"`
		AllowedOrigins   []string `yaml:"allowed_origins"`
		RateLimit        int      `yaml:"rate_limit"`
		RateWindowMS     int      `yaml:"rate_window_ms"`
	} `yaml:"web"`
	Stdio struct {
		Enabled      bool `yaml:"enabled"`
		MaxLineBytes int  `yaml:"max_line_bytes"`
	} `yaml:"stdio"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	var cfg Config
	cfg.App.Version = "1.0"
	cfg.App.LogLevel = "info"
	cfg.App.DataDir = defaultDataDir()
	cfg.SelfTest.AsyncDelayMS = 1000
	cfg.SelfTest.NetworkMinDelayMS = 500
	cfg.SelfTest.NetworkMaxDelayMS = 2500
	cfg.SelfTest.MemoryBytes = 1 << 20
	cfg.Files.Perm = 0o644
	cfg.Web.Enabled = true
	cfg.Web.ListenAddr = "127.0.0.1:1420"
	cfg.Web.ReadTimeoutMS = 2000
	cfg.Web.WriteTimeoutMS = 10000
	cfg.Web.RequestTimeoutMS = 8000
	cfg.Web.ShutdownTimeoutS = 5
	cfg.Web.MaxBodyBytes = 8 << 20
	cfg.Web.AllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	cfg.Web.RateWindowMS = 1000
	cfg.Stdio.MaxLineBytes = 8 << 20
	return cfg
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "deskshell")
	}
	return filepath.Join(os.TempDir(), "deskshell")
}

// Load читает конфиг из файла YAML, поверх значений по умолчанию.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- путь к конфигу задается оператором.
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("config file is empty")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений.
func (c Config) Validate() error {
	if c.App.DataDir == "" {
		return errors.New("app.data_dir is required")
	}
	if c.SelfTest.AsyncDelayMS < 0 {
		return errors.New("selftest.async_delay_ms must be >= 0")
	}
	if c.SelfTest.NetworkMinDelayMS < 0 || c.SelfTest.NetworkMaxDelayMS < c.SelfTest.NetworkMinDelayMS {
		return fmt.Errorf("selftest network delay range [%d, %d] is invalid",
			c.SelfTest.NetworkMinDelayMS, c.SelfTest.NetworkMaxDelayMS)
	}
	if c.SelfTest.MemoryBytes <= 0 {
		return errors.New("selftest.memory_bytes must be > 0")
	}
	if c.Web.RateLimit < 0 {
		return errors.New("web.rate_limit must be >= 0")
	}
	if c.Web.Enabled && c.Web.ListenAddr == "" {
		return errors.New("web.listen_addr is required when web is enabled")
	}
	return nil
}
