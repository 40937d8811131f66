package main

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	LLMModel        string  `yaml:"llm_model"`
	LLMTemperature  float64 `yaml:"llm_temperature"`

	DBPath string `yaml:"db_path"`

	CacheSweepSchedule string `yaml:"cache_sweep_schedule"`

	SlackBotToken    string `yaml:"slack_bot_token"`
	SummaryChannelID string `yaml:"summary_channel_id"`

	MetricsAddr string `yaml:"metrics_addr"`
	WorkerCount int    `yaml:"worker_count"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.CacheSweepSchedule, "CACHE_SWEEP_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SummaryChannelID, "SUMMARY_CHANNEL_ID")
	envOverride(&cfg.MetricsAddr, "METRICS_ADDR")
	envOverrideInt(&cfg.WorkerCount, "WORKER_COUNT")

	// Defaults
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultAnthropicModel
	}
	if cfg.LLMTemperature == 0 {
		cfg.LLMTemperature = 0.2
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./triagebot.db"
	}
	if cfg.CacheSweepSchedule == "" {
		cfg.CacheSweepSchedule = "0 3 * * *"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}

	// Validate required fields
	if cfg.AnthropicAPIKey == "" {
		log.Fatalf("Required config 'anthropic_api_key' is not set (via config.yaml or env var)")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 1 {
		log.Fatalf("invalid llm_temperature '%f': must be between 0 and 1", cfg.LLMTemperature)
	}
	if cfg.WorkerCount < 1 {
		log.Fatalf("invalid worker_count '%d': must be >= 1", cfg.WorkerCount)
	}
	if cfg.SlackBotToken != "" && cfg.SummaryChannelID == "" {
		log.Fatalf("summary_channel_id is required when slack_bot_token is set")
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
