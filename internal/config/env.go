package config

import (
	"os"

	"github.com/shaiso/Cyclone/internal/mq"
	"github.com/shaiso/Cyclone/internal/repo"
)

// Env — настройки процесса из переменных окружения.
type Env struct {
	DatabaseURL string // DB_URL
	RabbitMQURL string // RABBITMQ_URL
	LogLevel    string // LOG_LEVEL
	LogFormat   string // LOG_FORMAT
	WorkerPort  string // WORKER_PORT
}

// FromEnv читает окружение, подставляя значения для локальной разработки.
func FromEnv() Env {
	return Env{
		DatabaseURL: getenv("DB_URL", repo.DefaultURL),
		RabbitMQURL: getenv("RABBITMQ_URL", mq.DefaultURL()),
		LogLevel:    getenv("LOG_LEVEL", "INFO"),
		LogFormat:   getenv("LOG_FORMAT", "json"),
		WorkerPort:  getenv("WORKER_PORT", "8082"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
