package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerAddress   string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn    string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL    string        `mapstructure:"MIGRATION_URL"`
	NatsURL         string        `mapstructure:"NATS_URL"`
	HandlerTimeout  time.Duration `mapstructure:"HANDLER_TIMEOUT"`
	BidLockTimeout  time.Duration `mapstructure:"BID_LOCK_TIMEOUT"`
	SoftCloseWindow time.Duration `mapstructure:"SOFT_CLOSE_WINDOW"`
	AllowSelfOutbid bool          `mapstructure:"ALLOW_SELF_OUTBID"`
}

// LoadConfig loads the configuration from an app.env file, with environment overrides.
func LoadConfig(path string) (cfg Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_ADDRESS", ":8080")
	viper.SetDefault("HANDLER_TIMEOUT", 5*time.Second)
	viper.SetDefault("BID_LOCK_TIMEOUT", 3*time.Second)
	viper.SetDefault("SOFT_CLOSE_WINDOW", 5*time.Minute)
	viper.SetDefault("ALLOW_SELF_OUTBID", false)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}
	err = viper.Unmarshal(&cfg)
	return
}
