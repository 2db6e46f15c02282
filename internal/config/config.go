package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the reporter configuration.
type Config struct {
	HelperDir      string        `mapstructure:"helper_dir"`
	AdapterTimeout time.Duration `mapstructure:"adapter_timeout"`
	DatabasePath   string        `mapstructure:"database"`
	RetentionDays  int           `mapstructure:"retention_days"`
	Sections       []string      `mapstructure:"sections"`
}

// Load reads configuration from file and environment.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sysreport")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/sysreport")
	}

	viper.SetDefault("helper_dir", "")
	viper.SetDefault("adapter_timeout", "5s")
	viper.SetDefault("database", "sysreport.db")
	viper.SetDefault("retention_days", 0)
	viper.SetDefault("sections", []string{})

	viper.SetEnvPrefix("SYSREPORT")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
