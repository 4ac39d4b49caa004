package pubsub

import (
	"fmt"
	"time"
)

// Supported drivers.
const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// Config selects and configures the lifecycle event bus.
type Config struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Partitions int    `mapstructure:"partitions"`
	// FlushTimeout bounds how long Close waits for queued messages.
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// NewPubSub builds the configured driver. With no driver it returns nil, nil
// and callers publish nowhere.
func NewPubSub(cfg Config) (PubSub, error) {
	switch cfg.Driver {
	case DriverNone, "":
		return nil, nil
	case DriverRedis:
		if cfg.Redis.Address == "" {
			return nil, fmt.Errorf("pubsub redis address is empty")
		}
		return NewRedisPubSub(cfg.Redis)
	case DriverKafka:
		if cfg.Kafka.Brokers == "" {
			return nil, fmt.Errorf("pubsub kafka brokers are empty")
		}
		return NewKafkaPubSub(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported pubsub driver %q", cfg.Driver)
	}
}
