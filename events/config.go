package events

import (
	"fmt"

	"github.com/caarlos0/env"
)

type Config struct {
	Type      string `env:"MEDIA_EVENTS_TYPE" envDefault:"none"`
	Enabled   bool   `env:"MEDIA_EVENTS_ENABLED" envDefault:"false"`
	Namespace string `env:"MEDIA_EVENTS_NAMESPACE"`
	Channel   string `env:"MEDIA_EVENTS_CHANNEL" envDefault:"media.assets"`

	// Kafka transport. Channel doubles as the topic name.
	KafkaBrokers  []string `env:"MEDIA_EVENTS_KAFKA_BROKERS"`
	KafkaClientID string   `env:"MEDIA_EVENTS_KAFKA_CLIENT_ID" envDefault:"mediastore"`
	KafkaGroupID  string   `env:"MEDIA_EVENTS_KAFKA_GROUP_ID" envDefault:"mediastore-watch"`
	KafkaUsername string   `env:"MEDIA_EVENTS_KAFKA_USERNAME"`
	KafkaPassword string   `env:"MEDIA_EVENTS_KAFKA_PASSWORD"`
	KafkaTLS      bool     `env:"MEDIA_EVENTS_KAFKA_TLS" envDefault:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse events config: %w", err)
	}
	return cfg, nil
}
