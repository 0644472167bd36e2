package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	AccidentSource string // file path or http(s) URL of the accident workbook JSON
	MediaSource    string // file path or http(s) URL of the media workbook JSON
	SheetName      string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	LoadTimeout     time.Duration
	RefreshInterval time.Duration // 0 builds the snapshot once
	RecentLimit     int

	// Kafka snapshot export configuration.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	loadTimeout, err := parseDuration("LOAD_TIMEOUT", "10s")
	if err != nil || loadTimeout <= 0 {
		return nil, errors.New("invalid LOAD_TIMEOUT")
	}

	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "0s")
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	recentLimit, err := strconv.Atoi(sharedcfg.EnvOrDefault("RECENT_LIMIT", "10"))
	if err != nil || recentLimit <= 0 {
		return nil, errors.New("invalid RECENT_LIMIT")
	}

	brokers := parseList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		AccidentSource:  sharedcfg.EnvOrDefault("ACCIDENT_SOURCE", "public/data/accident-data.json"),
		MediaSource:     sharedcfg.EnvOrDefault("MEDIA_SOURCE", "public/data/zsl-data.json"),
		SheetName:       sharedcfg.EnvOrDefault("SHEET_NAME", "Sheet1"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		LoadTimeout:     loadTimeout,
		RefreshInterval: refreshInterval,
		RecentLimit:     recentLimit,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "story-snapshots"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.AccidentSource == "" {
		return nil, errors.New("ACCIDENT_SOURCE is required")
	}
	if cfg.MediaSource == "" {
		return nil, errors.New("MEDIA_SOURCE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when Kafka export is enabled")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
