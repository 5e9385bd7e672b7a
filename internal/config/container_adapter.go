package config

import (
	"github.com/garyjia/partner-review/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		Lark: container.LarkConfig{
			Enabled:   c.Lark.Enabled,
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			BaseURL:   c.Lark.BaseURL,
		},
		Kafka: container.KafkaConfig{
			Enabled:      c.Kafka.Enabled,
			Brokers:      append([]string(nil), c.Kafka.Brokers...),
			Topic:        c.Kafka.Topic,
			Username:     c.Kafka.Username,
			Password:     c.Kafka.Password,
			TLS:          c.Kafka.TLS,
			WriteTimeout: c.Kafka.WriteTimeout,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: append([]string(nil), c.Server.AllowedOrigins...),
			MetricsPath:    c.Metrics.Path,
		},
		MetricsEnabled: c.Metrics.Enabled,
	}
}
