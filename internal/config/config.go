package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	DataFile         string        `mapstructure:"data_file"`
	BcryptCost       int           `mapstructure:"bcrypt_cost"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	RegistryMaxBytes int           `mapstructure:"registry_max_bytes"`
	JoinRateLimit    int           `mapstructure:"join_rate_limit"`
	JoinRateWindow   time.Duration `mapstructure:"join_rate_window"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("data_file", "data.json")
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("read_limit", 512*1024)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("registry_max_bytes", 256*1024)
	v.SetDefault("join_rate_limit", 10)
	v.SetDefault("join_rate_window", "1m")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
