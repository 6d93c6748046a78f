package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Host      string
		Port      int64
		JwtSecret string
	}

	Upstream struct {
		URL     string
		AppID   string
		Ver     string
		ApiKey  string
		Timeout int64 // seconds
	}

	Redis struct {
		Host     string
		Port     string
		User     string
		Password string
		DB       int
	}

	Database struct {
		DSN string
	}

	Chain struct {
		PrivateKey    string           // hex encoded, payer hot wallet
		RPC           map[string]string // chain id -> rpc endpoint
		Confirmations int64
	}

	BlockStorage struct {
		Host      string
		Region    string
		AccessKey string
		SecretKey string
		Bucket    string
	}

	Datadog struct {
		Host string
		Port string
	}
}

func ReadConfig(configName string) (Config, error) {
	var cfg Config
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("fail to read config file, err: %w", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("fail to unmarshal config, err: %w", err)
	}
	return cfg, nil
}
