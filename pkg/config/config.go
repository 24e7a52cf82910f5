package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Viewer    Viewer    `envPrefix:"VIEWER_"`
		Tiles     Tiles     `envPrefix:"TILES_"`
		Settings  Settings  `envPrefix:"SETTINGS_"`
		Search    Search    `envPrefix:"SEARCH_"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT,required"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level  string `env:"LEVEL" envDefault:"info"`
		Format string `env:"FORMAT" envDefault:"console"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-viewer"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Viewer struct {
		Width         int    `env:"WIDTH" envDefault:"1024"`
		Height        int    `env:"HEIGHT" envDefault:"768"`
		FPS           int    `env:"FPS" envDefault:"30"`
		At            string `env:"AT"`
		PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	}

	Tiles struct {
		BackgroundURL string        `env:"BACKGROUND_URL" envDefault:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
		ForegroundURL string        `env:"FOREGROUND_URL" envDefault:"https://backend.wplace.live/files/s0/tiles/{x}/{y}.png"`
		UserAgent     string        `env:"USER_AGENT" envDefault:"GuideHelperViewer/1.0 (https://github.com/jaennil/guide_helper)"`
		FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	}

	Settings struct {
		Backend       string        `env:"BACKEND" envDefault:"memory"`
		Dir           string        `env:"DIR" envDefault:"settings"`
		SQLitePath    string        `env:"SQLITE_PATH" envDefault:"settings.db"`
		RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
		RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
		RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"720h"`
	}

	Search struct {
		URL       string        `env:"URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent string        `env:"USER_AGENT" envDefault:"GuideHelperViewer/1.0 (https://github.com/jaennil/guide_helper)"`
		Timeout   time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
