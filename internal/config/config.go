// Package config reads the table constants from the environment. A
// .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/baucua-game/baucua/internal/session"
)

type Config struct {
	MinBalanceToJoin int           `env:"BAUCUA_MIN_BALANCE_JOIN" envDefault:"1000"`
	MinBalanceToStay int           `env:"BAUCUA_MIN_BALANCE_STAY" envDefault:"500"`
	WagerStep        int           `env:"BAUCUA_WAGER_STEP" envDefault:"1000"`
	StartingBalance  int           `env:"BAUCUA_STARTING_BALANCE" envDefault:"50000"`
	ShakeDelay       time.Duration `env:"BAUCUA_SHAKE_DELAY" envDefault:"2s"`
	KickGrace        time.Duration `env:"BAUCUA_KICK_GRACE" envDefault:"250ms"`
	ListenAddr       string        `env:"BAUCUA_LISTEN_ADDR" envDefault:":9190"`
	BrokerAddr       string        `env:"BAUCUA_BROKER_ADDR" envDefault:"localhost:9190"`
}

func Load() (Config, error) {
	_ = godotenv.Load() // optional

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	// the protocol assumes you can be admitted and then go broke
	if cfg.MinBalanceToStay >= cfg.MinBalanceToJoin {
		return Config{}, fmt.Errorf("stay threshold %d must be below join minimum %d",
			cfg.MinBalanceToStay, cfg.MinBalanceToJoin)
	}
	return cfg, nil
}

func (c Config) Session() session.Config {
	return session.Config{
		MinBalanceToJoin: c.MinBalanceToJoin,
		MinBalanceToStay: c.MinBalanceToStay,
		WagerStep:        c.WagerStep,
		ShakeDelay:       c.ShakeDelay,
		KickGrace:        c.KickGrace,
	}
}
