package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/tracing"
)

type Config struct {
	AppConfig               *AppConfig
	Logger                  *logger.Config
	Tracing                 *tracing.JaegerConfig
	MailstackDatabaseConfig *MailstackDatabaseConfig
	SyncEngineConfig        *SyncEngineConfig
	WebhookConfig           *WebhookConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:               &AppConfig{},
		Logger:                  &logger.Config{},
		Tracing:                 &tracing.JaegerConfig{},
		MailstackDatabaseConfig: &MailstackDatabaseConfig{},
		SyncEngineConfig:        &SyncEngineConfig{},
		WebhookConfig:           &WebhookConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailstack config: %v", err)
	}

	return config, nil
}
