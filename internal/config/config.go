package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/garrettladley/imisrelay/internal/client/fhir"
	"github.com/garrettladley/imisrelay/internal/db"
	xenv "github.com/garrettladley/imisrelay/internal/env"
	"github.com/garrettladley/imisrelay/internal/redis"
)

type Config struct {
	Port     string           `env:"PORT" envDefault:"80"`
	Env      xenv.Environment `env:"ENV" envDefault:"development"`
	OpenIMIS OpenIMIS         `envPrefix:"OPENIMIS_"`
	Database db.Config        `envPrefix:"DATABASE_"`
	Redis    redis.Config     `envPrefix:"REDIS_"`
}

type OpenIMIS struct {
	Username string        `env:"USERNAME,required,notEmpty"`
	Password string        `env:"PASSWORD,required,notEmpty"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

func (o OpenIMIS) Credentials() fhir.Credentials {
	return fhir.Credentials{Username: o.Username, Password: o.Password}
}

func Read() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Database.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
