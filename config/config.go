package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantfeed/matchbook/pkg/db/queue"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		HTTPAddr          string `yaml:"http_addr"`
		LogLevel          string `yaml:"log_level"`
		LogFormat         string `yaml:"log_format"`
		SnapshotDepth     int    `yaml:"snapshot_depth"`
		BroadcastMillis   int    `yaml:"broadcast_millis"`
		TradeLogCapacity  int    `yaml:"trade_log_capacity"`
		SimulatorEnabled  bool   `yaml:"simulator_enabled"`
		CollectorEnabled  bool   `yaml:"collector_enabled"`
		CollectorEndpoint string `yaml:"collector_endpoint"`
	} `yaml:"server"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Enabled    bool   `yaml:"enabled"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`
}

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	httpPort   = flag.Int("http_port", 8080, "The HTTP/websocket server port")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
	simEnabled = flag.Bool("simulate", true, "Run the market simulator")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	flag.Parse()
	return load(*configFile)
}

// load builds the config from defaults plus an optional YAML file.
func load(path string) (*Config, error) {
	config := &Config{}
	config.Server.HTTPAddr = fmt.Sprintf(":%d", *httpPort)
	config.Server.LogLevel = *logLevel
	config.Server.LogFormat = *logFormat
	config.Server.SnapshotDepth = 20
	config.Server.BroadcastMillis = 500
	config.Server.TradeLogCapacity = 100
	config.Server.SimulatorEnabled = *simEnabled
	config.Server.CollectorEndpoint = "localhost:4317"
	config.Redis.Addr = "localhost:6379"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "matchbook-trades"

	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Push Kafka settings into the queue package variables.
	queue.SetBrokerList(config.Kafka.BrokerAddr)
	queue.SetTopic(config.Kafka.Topic)
	if !config.Kafka.Enabled {
		queue.Disable()
	}

	return config, nil
}
