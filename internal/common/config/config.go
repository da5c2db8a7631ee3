package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// AllowedPrices is the set of purchasable spin prices in Telegram Stars.
// Invoices and payment payloads outside this set are rejected.
var AllowedPrices = map[int64]struct{}{
	25:  {},
	50:  {},
	100: {},
}

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
		// Список разрешенных origins через запятую; пусто = "*"
		CORSAllowedOrigins []string `env:"CORS_ALLOW_ORIGIN" envSeparator:","`
	}

	SQLite struct {
		Path string `env:"DB_PATH" envDefault:"data/app.db"`
	}

	Redis struct {
		Enabled        bool   `env:"REDIS_ENABLED" envDefault:"false"`
		Addr           string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password       string `env:"REDIS_PASSWORD" envDefault:""`
		DB             int    `env:"REDIS_DB" envDefault:"0"`
		LeaderboardTTL int    `env:"LEADERBOARD_CACHE_TTL_SEC" envDefault:"15"`
	}

	Telegram struct {
		BotToken      string `env:"BOT_TOKEN,required"`
		MiniAppURL    string `env:"MINI_APP_URL"`
		MiniAppButton string `env:"MINI_APP_BUTTON" envDefault:"Открыть мини-приложение"`
	}

	// TTL окна свежести init data в секундах
	InitDataMaxAgeSec int `env:"INIT_DATA_MAX_AGE_SECONDS" envDefault:"86400"`
}

func Load() (*Config, error) {
	// Игнорируем ошибку, если .env файл не найден:
	// в production переменные могут быть установлены напрямую.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
