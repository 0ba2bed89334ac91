// Copyright 2025 Certen Protocol
//
// Configuration loader: YAML file with ${VAR_NAME} / ${VAR_NAME:-default}
// environment-variable substitution, grounded on the teacher's
// pkg/config/anchor_config.go (same substitution regex, same Duration
// wrapper implementing yaml.Marshaler/Unmarshaler).

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files spell durations as "15s"
// rather than raw nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the rollup operator's full configuration surface.
type Config struct {
	Environment string `yaml:"environment"`

	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Prover  ProverConfig  `yaml:"prover"`
	Batcher BatcherConfig `yaml:"batcher"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the RPC/admin HTTP listener.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// StorageConfig controls where state snapshots and batch artifacts land.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// BridgeConfig controls L1 event ingestion.
type BridgeConfig struct {
	EthereumURL     string   `yaml:"ethereum_url"`
	ContractAddress string   `yaml:"contract_address"`
	PollInterval    Duration `yaml:"poll_interval"`
	MaxBlockRange   uint64   `yaml:"max_block_range"`
	BlockLookback   uint64   `yaml:"block_lookback"`
	RetryAttempts   int      `yaml:"retry_attempts"`
	RetryDelay      Duration `yaml:"retry_delay"`
}

// ProverConfig controls the external prover subprocess.
type ProverConfig struct {
	BinaryPath string   `yaml:"binary_path"`
	ProgramELF string   `yaml:"program_elf"`
	WorkDir    string   `yaml:"work_dir"`
	Timeout    Duration `yaml:"timeout"`
}

// BatcherConfig controls withdrawal-batch closing policy.
type BatcherConfig struct {
	MaxBatchSize int      `yaml:"max_batch_size"`
	MaxBatchAge  Duration `yaml:"max_batch_age"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads and parses the YAML config at path, substituting environment
// variables and applying defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "0.0.0.0:8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = "0.0.0.0:9090"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "./data"
	}
	if c.Bridge.PollInterval == 0 {
		c.Bridge.PollInterval = Duration(15 * time.Second)
	}
	if c.Bridge.MaxBlockRange == 0 {
		c.Bridge.MaxBlockRange = 9
	}
	if c.Bridge.BlockLookback == 0 {
		c.Bridge.BlockLookback = 100
	}
	if c.Bridge.RetryAttempts == 0 {
		c.Bridge.RetryAttempts = 3
	}
	if c.Bridge.RetryDelay == 0 {
		c.Bridge.RetryDelay = Duration(2 * time.Second)
	}
	if c.Prover.Timeout == 0 {
		c.Prover.Timeout = Duration(5 * time.Minute)
	}
	if c.Prover.WorkDir == "" {
		c.Prover.WorkDir = os.TempDir()
	}
	if c.Batcher.MaxBatchSize == 0 {
		c.Batcher.MaxBatchSize = 100
	}
	if c.Batcher.MaxBatchAge == 0 {
		c.Batcher.MaxBatchAge = Duration(10 * time.Minute)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks that the fields required to actually run the rollup are
// present; Load alone only applies defaults, it does not enforce
// required fields (so tests can load partial fixtures).
func (c *Config) Validate() error {
	var missing []string
	if c.Bridge.EthereumURL == "" {
		missing = append(missing, "bridge.ethereum_url")
	}
	if c.Bridge.ContractAddress == "" {
		missing = append(missing, "bridge.contract_address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required fields: %v", missing)
	}
	return nil
}
