package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`

	// Núcleo de chat: umbral de inactividad, intervalo de barrido,
	// presupuesto de verificación de credenciales y largo máximo de mensaje.
	IdleTimeoutMinutes  int `env:"CHAT_IDLE_TIMEOUT_MINUTES" envDefault:"30"`
	SweepIntervalSecond int `env:"CHAT_SWEEP_INTERVAL_SECONDS" envDefault:"60"`
	AuthTimeoutSeconds  int `env:"CHAT_AUTH_TIMEOUT_SECONDS" envDefault:"5"`
	MaxMessageLength    int `env:"CHAT_MAX_MESSAGE_LENGTH" envDefault:"2000"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSecond) * time.Second
}

func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutSeconds) * time.Second
}
