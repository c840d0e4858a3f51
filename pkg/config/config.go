package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds host-process settings. The matching core itself is not
// configurable; everything here concerns the server around it.
type Config struct {
	Server struct {
		Addr                string `yaml:"addr"`
		Pprof               bool   `yaml:"pprof"`
		PprofAddr           string `yaml:"pprof_addr"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
	} `yaml:"server"`
	Engine struct {
		Shards     int `yaml:"shards"`      // 0 = NumCPU
		BufferSize int `yaml:"buffer_size"` // shard command channel depth
	} `yaml:"engine"`
	Store struct {
		TradeHistory int `yaml:"trade_history"` // per-symbol cap
	} `yaml:"store"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

func defaultConfig() Config {
	var c Config
	c.Server.Addr = ":8080"
	c.Server.Pprof = false
	c.Server.PprofAddr = ":6060"
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Engine.Shards = 0
	c.Engine.BufferSize = 1024
	c.Store.TradeHistory = 1000
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	return c
}

// Load builds the config from defaults, an optional YAML file named by
// MATCHER_CONFIG, and env overrides. A named file that cannot be read
// or parsed is an error; the returned config still carries the merged
// defaults so the caller can log through it before bailing.
func Load() (Config, error) {
	c := defaultConfig()
	if path := os.Getenv("MATCHER_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv("MATCHER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MATCHER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MATCHER_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.Shards = n
		}
	}
	return c, nil
}
