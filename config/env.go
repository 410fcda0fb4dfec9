package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is read from an optional YAML file named by CONFIG_FILE and then
// from the environment, which wins. An empty PostgresDSN, RabbitMQURL or
// MQTTBroker disables that collaborator.
type Config struct {
	HTTPPort     string `yaml:"http_port" validate:"required,numeric"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	RabbitMQURL  string `yaml:"rabbitmq_url" validate:"omitempty,url"`
	MQTTBroker   string `yaml:"mqtt_broker" validate:"omitempty,url"`
	MQTTClientID string `yaml:"mqtt_client_id" validate:"required"`
	MQTTTopic    string `yaml:"mqtt_topic" validate:"required"`

	DeviceEndpoint string        `yaml:"device_default_endpoint" validate:"required,url"`
	DeviceTimeout  time.Duration `yaml:"device_timeout" validate:"gt=0"`
	ReapInterval   time.Duration `yaml:"reaper_interval" validate:"gt=0"`
	BikeMaxAge     time.Duration `yaml:"bike_max_age" validate:"gt=0"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:       "8080",
		MQTTClientID:   "bike-geofence-server",
		MQTTTopic:      "/smartcycle/bike/+/telemetry",
		DeviceEndpoint: "http://192.168.1.100:8080/alert",
		DeviceTimeout:  5 * time.Second,
		ReapInterval:   5 * time.Minute,
		BikeMaxAge:     30 * time.Minute,
		LogLevel:       "info",
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.MQTTBroker = getEnv("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.MQTTTopic = getEnv("MQTT_TOPIC", cfg.MQTTTopic)
	cfg.DeviceEndpoint = getEnv("DEVICE_DEFAULT_ENDPOINT", cfg.DeviceEndpoint)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.DeviceTimeout, err = getMillis("ESP32_TIMEOUT", cfg.DeviceTimeout); err != nil {
		return nil, err
	}
	if cfg.DeviceTimeout, err = getDuration("DEVICE_TIMEOUT", cfg.DeviceTimeout); err != nil {
		return nil, err
	}
	if cfg.ReapInterval, err = getDuration("REAPER_INTERVAL", cfg.ReapInterval); err != nil {
		return nil, err
	}
	if cfg.BikeMaxAge, err = getDuration("BIKE_MAX_AGE", cfg.BikeMaxAge); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// getMillis reads a plain integer of milliseconds, the unit the bike firmware uses.
func getMillis(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
