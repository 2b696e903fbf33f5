package config

import (
	"github.com/caarlos0/env/v11"
)

type DB struct {
	URL            string `env:"DATABASE_URL,required"`
	MaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns   int    `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	MigrationsPath string `env:"DB_MIGRATIONS_PATH" envDefault:"file://db/migrations"`
}

type API struct {
	Host        string   `env:"API_HOST" envDefault:"0.0.0.0"`
	Port        string   `env:"API_PORT" envDefault:"8000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

type Telegram struct {
	BotToken string `env:"BOT_TOKEN"`
}

type Kafka struct {
	Brokers string `env:"KAFKA_BROKERS"`
	Topic   string `env:"KAFKA_AUDIT_TOPIC" envDefault:"relay.events"`
}

type Summary struct {
	Enabled bool `env:"SUMMARY_ENABLED" envDefault:"true"`
	Hour    int  `env:"SUMMARY_HOUR" envDefault:"21"`
	Minute  int  `env:"SUMMARY_MINUTE" envDefault:"0"`
}

type Config struct {
	DB       DB
	API      API
	Telegram Telegram
	Kafka    Kafka
	Summary  Summary
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
