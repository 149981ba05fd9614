package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Measurement MeasurementConfig
	Simulator   SimulatorConfig
	NATS        NATSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	LogLevel       string
}

// MeasurementConfig holds the timing of a measurement session
type MeasurementConfig struct {
	Duration       time.Duration
	SampleRate     int
	SampleInterval time.Duration
	ResultHistory  int
}

// SimulatorConfig tunes the synthetic sensor
type SimulatorConfig struct {
	NoiseAmplitude float64
	HoldHeartRate  bool
	Seed           int64
}

// NATSConfig holds optional event fan-out configuration
type NATSConfig struct {
	URL     string
	Subject string
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "5001")
	v.SetDefault("ENVIRONMENT", "dev")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MEASUREMENT_DURATION", "30s")
	v.SetDefault("SAMPLE_RATE", 100)
	v.SetDefault("SAMPLE_INTERVAL", "10ms")
	v.SetDefault("RESULT_HISTORY", 32)
	v.SetDefault("NOISE_AMPLITUDE", 1000.0)
	v.SetDefault("HOLD_HEART_RATE", false)
	v.SetDefault("SIMULATOR_SEED", 0)
	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT", "oximeter.events")

	// Environment variables override .env file values
	v.AutomaticEnv()

	env := v.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	// Try to read .env file for the current environment
	v.SetConfigName(".env." + env)
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read .env.%s: %w", env, err)
		}
	}

	var config Config
	config.Server.Port = v.GetString("PORT")
	config.Server.Env = env
	config.Server.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	config.Server.LogLevel = v.GetString("LOG_LEVEL")
	config.Measurement.Duration = v.GetDuration("MEASUREMENT_DURATION")
	config.Measurement.SampleRate = v.GetInt("SAMPLE_RATE")
	config.Measurement.SampleInterval = v.GetDuration("SAMPLE_INTERVAL")
	config.Measurement.ResultHistory = v.GetInt("RESULT_HISTORY")
	config.Simulator.NoiseAmplitude = v.GetFloat64("NOISE_AMPLITUDE")
	config.Simulator.HoldHeartRate = v.GetBool("HOLD_HEART_RATE")
	config.Simulator.Seed = v.GetInt64("SIMULATOR_SEED")
	config.NATS.URL = v.GetString("NATS_URL")
	config.NATS.Subject = v.GetString("NATS_SUBJECT")

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("env", config.Server.Env).
		Str("port", config.Server.Port).
		Strs("allowed_origins", config.Server.AllowedOrigins).
		Dur("duration", config.Measurement.Duration).
		Int("sample_rate", config.Measurement.SampleRate).
		Bool("nats", config.NATS.URL != "").
		Msg("Configuration loaded")

	return &config, nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Measurement.Duration <= 0 {
		return fmt.Errorf("MEASUREMENT_DURATION must be positive, got %s", c.Measurement.Duration)
	}
	if c.Measurement.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.Measurement.SampleRate)
	}
	if c.Measurement.SampleInterval < 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must not be negative, got %s", c.Measurement.SampleInterval)
	}
	if c.Simulator.NoiseAmplitude < 0 {
		return fmt.Errorf("NOISE_AMPLITUDE must not be negative, got %g", c.Simulator.NoiseAmplitude)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
