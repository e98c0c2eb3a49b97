package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	FleetPulse FleetPulseConfig `yaml:"fleetpulse"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	StatusChangedTopicName string `yaml:"status_changed_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type FleetPulseConfig struct {
	HTTPAddr     string `yaml:"http_addr"`
	WebhookToken string `yaml:"webhook_token"`

	OfflineTimeoutMinutes int `yaml:"offline_timeout_minutes"`
	SweepIntervalSeconds  int `yaml:"sweep_interval_seconds"`
	KeepAliveSeconds      int `yaml:"keepalive_seconds"`
	SaveDebounceMillis    int `yaml:"save_debounce_ms"`

	// Snapshot backend: "file" (default) or "postgres".
	Storage      string `yaml:"storage"`
	SnapshotPath string `yaml:"snapshot_path"`

	WebhookRateLimitPerMinute int `yaml:"webhook_rate_limit_per_minute"`

	DispatchBaseURL string `yaml:"dispatch_base_url"`
	DispatchAPIKey  string `yaml:"dispatch_api_key"`

	StaticDir string `yaml:"static_dir"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
