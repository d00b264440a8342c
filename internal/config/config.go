package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`

	DBPath string `mapstructure:"db_path"`

	HallWidth  float64 `mapstructure:"hall_width"`
	HallHeight float64 `mapstructure:"hall_height"`

	PresenceTTL time.Duration `mapstructure:"presence_ttl"`

	FlushInterval  time.Duration `mapstructure:"flush_interval"`
	BatchThreshold int           `mapstructure:"batch_threshold"`
	AnalyticsURL   string        `mapstructure:"analytics_url"`
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
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("db_path", "./seatplan.db")
	v.SetDefault("hall_width", 1800)
	v.SetDefault("hall_height", 1200)
	v.SetDefault("presence_ttl", "30s")
	v.SetDefault("flush_interval", "30s")
	v.SetDefault("batch_threshold", 10)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | DB: %s\n", cfg.Mode, cfg.Port, cfg.DBPath)
	return &cfg, nil
}
