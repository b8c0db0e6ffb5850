package config

import (
	"fmt"
	"os"

	"github.com/joripage/matching-engine/pkg/sequencer"
	"github.com/joripage/matching-engine/pkg/sink"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName string           `yaml:"service_name"`
	LogLevel    string           `yaml:"log_level"`
	Sequencer   sequencer.Config `yaml:"sequencer"`
	Sink        SinkConfig       `yaml:"sink"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}

type SinkConfig struct {
	// Format of the stdout stream: text or json.
	Format string            `yaml:"format"`
	Kafka  *sink.KafkaConfig `yaml:"kafka"`
	Nats   *sink.NatsConfig  `yaml:"nats"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Namespace  string `yaml:"namespace"`
}

// Default is used when no config file is given.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.setDefaults()
	return cfg
}

func (c *AppConfig) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "matching-engine"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Sink.Format == "" {
		c.Sink.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "matching"
	}
}

func (c *AppConfig) Validate() error {
	switch c.Sink.Format {
	case "text", "json":
	default:
		return fmt.Errorf("sink.format: unsupported %q", c.Sink.Format)
	}
	if k := c.Sink.Kafka; k != nil && (len(k.Brokers) == 0 || k.Topic == "") {
		return fmt.Errorf("sink.kafka: brokers and topic are required")
	}
	return nil
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}
	if len(filePath) == 0 {
		return Default(), nil
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sugar.Debugf("config: %+v", cfg)
	return cfg, nil
}
