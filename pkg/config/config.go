/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads ledger configuration from config.yaml with
// environment variable overrides.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/LF-Decentralized-Trust-labs/chess-ledger/pkg/logging"
)

// DBConfig selects and configures the durable store. With Enabled false the
// node runs on the in-memory store.
type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// ServerConfig configures the HTTP query/submission server.
type ServerConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

// MempoolConfig bounds the transaction pool.
type MempoolConfig struct {
	Capacity int `yaml:"capacity"`
}

// ChainConfig controls block building policy.
type ChainConfig struct {
	MaxBlockTxs      int  `yaml:"max_block_txs"`
	AllowEmptyBlocks bool `yaml:"allow_empty_blocks"`
}

// Config is the root configuration.
type Config struct {
	Logging logging.Config `yaml:"logging"`
	DB      DBConfig       `yaml:"database"`
	Server  ServerConfig   `yaml:"server"`
	Mempool MempoolConfig  `yaml:"mempool"`
	Chain   ChainConfig    `yaml:"chain"`
}

// Load reads configuration from config.yaml if it exists, otherwise starts
// from defaults. Environment variables override either.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		loaded, err := LoadFromYAML("config.yaml")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := getBool("DB_ENABLED"); v != nil {
		cfg.DB.Enabled = *v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		cfg.DB.Host = v
	} else if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if v := getInt("DB_PORT", -1); v != -1 {
		cfg.DB.Port = v
	} else if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if v := getEnv("DB_USER", ""); v != "" {
		cfg.DB.User = v
	} else if cfg.DB.User == "" {
		cfg.DB.User = "postgres"
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		cfg.DB.Password = v
	} else if cfg.DB.Password == "" {
		cfg.DB.Password = "postgres"
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		cfg.DB.DBName = v
	} else if cfg.DB.DBName == "" {
		cfg.DB.DBName = "chessledger"
	}
	if v := getEnv("DB_SSLMODE", ""); v != "" {
		cfg.DB.SSLMode = v
	} else if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}

	if v := getEnv("HTTP_ADDR", ""); v != "" {
		cfg.Server.HTTPAddr = v
	} else if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8080"
	}
	if v := getInt("HTTP_SHUTDOWN_TIMEOUT_SEC", -1); v != -1 {
		cfg.Server.ShutdownTimeoutSec = v
	} else if cfg.Server.ShutdownTimeoutSec <= 0 {
		cfg.Server.ShutdownTimeoutSec = 10
	}

	if v := getInt("MEMPOOL_CAPACITY", -1); v != -1 {
		cfg.Mempool.Capacity = v
	} else if cfg.Mempool.Capacity <= 0 {
		cfg.Mempool.Capacity = 4096
	}

	if v := getInt("MAX_BLOCK_TXS", -1); v != -1 {
		cfg.Chain.MaxBlockTxs = v
	} else if cfg.Chain.MaxBlockTxs <= 0 {
		cfg.Chain.MaxBlockTxs = 256
	}
	if v := getBool("ALLOW_EMPTY_BLOCKS"); v != nil {
		cfg.Chain.AllowEmptyBlocks = *v
	}

	if cfg.Logging.Level == "" {
		cfg.Logging = logging.DefaultConfig
	}

	return cfg, nil
}

// LoadFromYAML loads configuration from a YAML file.
func LoadFromYAML(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string) *bool {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
