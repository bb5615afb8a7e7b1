package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Ops        string
	Out        string
	State      string
	StateName  string
	PgDSN      string
	EngineAddr string
	LogLevel   string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("state", "./data/state.json")
	v.SetDefault("state-name", "replay")
	v.SetDefault("engine-addr", "engine")
	v.SetDefault("log-level", "info")

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
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Ops:        v.GetString("ops"),
		Out:        v.GetString("out"),
		State:      v.GetString("state"),
		StateName:  v.GetString("state-name"),
		PgDSN:      v.GetString("pg-dsn"),
		EngineAddr: v.GetString("engine-addr"),
		LogLevel:   v.GetString("log-level"),
	}

	return cfg, nil
}
