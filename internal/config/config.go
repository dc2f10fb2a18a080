package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMM"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	PGDSN            string
	StateFile        string
	Journal          string
	LogLevel         string
	SlippageBps      uint32
	BreakerCooldown  time.Duration
	BreakerCacheSize int
	MEVWindow        time.Duration
	MEVLookback      int
	RouteConcurrency int
	RPCURL           string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-file", "./data/ledger.json")
	v.SetDefault("log-level", "info")
	v.SetDefault("slippage-bps", 50)
	v.SetDefault("breaker-cooldown", 30)
	v.SetDefault("breaker-cache-size", 1024)
	v.SetDefault("mev-window", 5*time.Second)
	v.SetDefault("mev-lookback", 10)
	v.SetDefault("route-concurrency", 8)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("amm")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		PGDSN:            v.GetString("pg-dsn"),
		StateFile:        v.GetString("state-file"),
		Journal:          v.GetString("journal"),
		LogLevel:         v.GetString("log-level"),
		SlippageBps:      v.GetUint32("slippage-bps"),
		BreakerCooldown:  time.Duration(v.GetInt("breaker-cooldown")) * time.Minute,
		BreakerCacheSize: v.GetInt("breaker-cache-size"),
		MEVWindow:        v.GetDuration("mev-window"),
		MEVLookback:      v.GetInt("mev-lookback"),
		RouteConcurrency: v.GetInt("route-concurrency"),
		RPCURL:           v.GetString("rpc"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PGDSN == "" && c.StateFile == "" {
		return fmt.Errorf("either pg-dsn or state-file is required")
	}
	if c.SlippageBps > 10000 {
		return fmt.Errorf("slippage-bps must be <= 10000, got %d", c.SlippageBps)
	}
	if c.BreakerCooldown <= 0 {
		return fmt.Errorf("breaker-cooldown must be positive")
	}
	if c.RouteConcurrency <= 0 {
		return fmt.Errorf("route-concurrency must be positive")
	}
	return nil
}
