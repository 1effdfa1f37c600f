// Package config loads the storefront server configuration.
//
// Values start from Default, are merged with an optional YAML file named by
// the --config flag or the BUS_STOREFRONT_CONFIG environment variable, and
// finally overridden by any command-line flag that was set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when --config is absent.
const EnvConfigPath = "BUS_STOREFRONT_CONFIG"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	TransportSimple   = "simple"
	TransportChannels = "channels"
	TransportRedis    = "redis"
	TransportKafka    = "kafka"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Booking    BookingConfig    `yaml:"booking"`
	Repository RepositoryConfig `yaml:"repository"`
	Events     EventsConfig     `yaml:"events"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level"`
	App   string `yaml:"app"`
}

type BookingConfig struct {
	SearchLatency     time.Duration `yaml:"search_latency"`
	CreateLatency     time.Duration `yaml:"create_latency"`
	ConfirmLatency    time.Duration `yaml:"confirm_latency"`
	Hold              time.Duration `yaml:"hold"`
	BookedProbability float64       `yaml:"booked_probability"`
	CodeAttempts      int           `yaml:"code_attempts"`
	// RandomSeed of 0 seeds from the wall clock.
	RandomSeed    uint64        `yaml:"random_seed"`
	SessionIdle   time.Duration `yaml:"session_idle"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type RepositoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type EventsConfig struct {
	Transport     string   `yaml:"transport"`
	RedisAddr     string   `yaml:"redis_addr"`
	KafkaBrokers  []string `yaml:"kafka_brokers"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			App:   "bus-storefront",
		},
		Booking: BookingConfig{
			SearchLatency:     800 * time.Millisecond,
			CreateLatency:     500 * time.Millisecond,
			ConfirmLatency:    1500 * time.Millisecond,
			Hold:              15 * time.Minute,
			BookedProbability: 0.3,
			CodeAttempts:      5,
			SessionIdle:       30 * time.Minute,
			SweepInterval:     time.Minute,
		},
		Repository: RepositoryConfig{
			Driver: DriverMemory,
		},
		Events: EventsConfig{
			Transport:     TransportSimple,
			RedisAddr:     "localhost:6379",
			KafkaBrokers:  []string{"localhost:9092"},
			ConsumerGroup: "bus-storefront",
		},
	}
}

// LoadFile merges the YAML file at path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Load parses args, resolves the config file and applies flag overrides.
// It returns pflag.ErrHelp when --help was requested.
func Load(name string, args []string) (*Config, error) {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file (env "+EnvConfigPath+")")
	addr := flagSet.String("addr", "", "HTTP listen address")
	logLevel := flagSet.String("log-level", "", "log level: debug, info, warn, error")
	driver := flagSet.String("repository", "", "booking repository: memory or postgres")
	dsn := flagSet.String("dsn", "", "postgres DSN")
	transport := flagSet.String("transport", "", "event transport: simple, channels, redis or kafka")
	seed := flagSet.Uint64("seed", 0, "random seed, 0 seeds from the clock")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flagSet.Changed("addr") {
		cfg.HTTP.Addr = *addr
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flagSet.Changed("repository") {
		cfg.Repository.Driver = *driver
	}
	if flagSet.Changed("dsn") {
		cfg.Repository.DSN = *dsn
	}
	if flagSet.Changed("transport") {
		cfg.Events.Transport = *transport
	}
	if flagSet.Changed("seed") {
		cfg.Booking.RandomSeed = *seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"http.request_timeout":    c.HTTP.RequestTimeout,
		"booking.search_latency":  c.Booking.SearchLatency,
		"booking.create_latency":  c.Booking.CreateLatency,
		"booking.confirm_latency": c.Booking.ConfirmLatency,
		"booking.hold":            c.Booking.Hold,
		"booking.session_idle":    c.Booking.SessionIdle,
		"booking.sweep_interval":  c.Booking.SweepInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Booking.BookedProbability < 0 || c.Booking.BookedProbability > 1 {
		errs = append(errs, fmt.Errorf("booking.booked_probability %v is outside [0,1]", c.Booking.BookedProbability))
	}
	if c.Booking.CodeAttempts < 1 {
		errs = append(errs, errors.New("booking.code_attempts must be at least 1"))
	}

	switch c.Repository.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Repository.DSN == "" {
			errs = append(errs, errors.New("repository.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown repository.driver %q", c.Repository.Driver))
	}

	switch c.Events.Transport {
	case TransportSimple, TransportChannels:
	case TransportRedis:
		if c.Events.RedisAddr == "" {
			errs = append(errs, errors.New("events.redis_addr is required for redis"))
		}
	case TransportKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("events.kafka_brokers is required for kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events.transport %q", c.Events.Transport))
	}

	return errors.Join(errs...)
}
