package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pjavanrood/csrbench/internal/util"
	"gopkg.in/yaml.v3"
)

// Backend kinds accepted in the backends section.
const (
	KindSequential   = "sequential"
	KindSharedMemory = "shared_memory"
	KindDistributed  = "distributed"
	KindAccelerator  = "accelerator"
)

// Comparison modes accepted in runner.compare.
const (
	CompareAuto             = "auto"
	CompareOrderSensitive   = "order_sensitive"
	CompareOrderInsensitive = "order_insensitive"
)

// Config represents the complete configuration of a benchmark run
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Traversal TraversalConfig `yaml:"traversal"`
	Runner    RunnerConfig    `yaml:"runner"`
	Datasets  []DatasetConfig `yaml:"datasets"`
	Backends  []BackendConfig `yaml:"backends"`
}

// TraversalConfig fixes the representation of traversal results
type TraversalConfig struct {
	Output string `yaml:"output"` // "order" or "distance"
}

// RunnerConfig controls repetitions, pacing and reporting
type RunnerConfig struct {
	Trials          int     `yaml:"trials"`
	Warmup          int     `yaml:"warmup"`
	TrialsPerSecond float64 `yaml:"trials_per_second"` // 0 = unlimited
	GraphCacheSize  int     `yaml:"graph_cache_size"`
	ReportPath      string  `yaml:"report_path"`
	Compare         string  `yaml:"compare"` // "auto", "order_sensitive", "order_insensitive"
}

// DatasetConfig describes one edge list and its golden result
type DatasetConfig struct {
	Name            string `yaml:"name"`
	Edges           string `yaml:"edges"`
	Symmetrize      bool   `yaml:"symmetrize"`
	Source          *int   `yaml:"source"` // defaults to 1
	Reference       string `yaml:"reference"`
	PageRankSources int    `yaml:"pagerank_sources"`
}

// BackendConfig selects and tunes one traversal strategy
type BackendConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// shared_memory
	Workers int `yaml:"workers"`
	Grain   int `yaml:"grain"`

	// distributed
	Partitions   int          `yaml:"partitions"`
	Partitioning string       `yaml:"partitioning"` // "hash" or "range"
	Transport    string       `yaml:"transport"`    // "inprocess" or "tcp"
	Peers        []PeerConfig `yaml:"peers"`

	// accelerator
	Blocks          int `yaml:"blocks"`
	ThreadsPerBlock int `yaml:"threads_per_block"`
}

// PeerConfig is the address of one partition process
type PeerConfig struct {
	ID   int    `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig defines the logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // Options: "OFF", "FATAL", "ERROR", "WARN", "INFO", "DEBUG"
}

// DefaultSource is the BFS start vertex used when a dataset does not set one.
const DefaultSource = 1

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Traversal
	switch c.Traversal.Output {
	case "":
		c.Traversal.Output = "order"
	case "order", "distance":
	default:
		return fmt.Errorf("invalid traversal output: %s (valid options: order, distance)", c.Traversal.Output)
	}

	// Runner
	if c.Runner.Trials < 0 {
		return fmt.Errorf("trials cannot be negative: %d", c.Runner.Trials)
	}
	if c.Runner.Trials == 0 {
		c.Runner.Trials = 1
	}
	if c.Runner.Warmup < 0 {
		return fmt.Errorf("warmup cannot be negative: %d", c.Runner.Warmup)
	}
	if c.Runner.TrialsPerSecond < 0 {
		return fmt.Errorf("trials_per_second cannot be negative: %f", c.Runner.TrialsPerSecond)
	}
	if c.Runner.GraphCacheSize < 0 {
		return fmt.Errorf("graph_cache_size cannot be negative: %d", c.Runner.GraphCacheSize)
	}
	if c.Runner.GraphCacheSize == 0 {
		c.Runner.GraphCacheSize = 4
	}
	switch c.Runner.Compare {
	case "":
		c.Runner.Compare = CompareAuto
	case CompareAuto, CompareOrderSensitive, CompareOrderInsensitive:
	default:
		return fmt.Errorf("invalid compare mode: %s (valid options: auto, order_sensitive, order_insensitive)", c.Runner.Compare)
	}

	// Datasets
	if len(c.Datasets) == 0 {
		return fmt.Errorf("at least one dataset must be configured")
	}
	datasetNames := make(map[string]bool)
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if ds.Edges == "" {
			return fmt.Errorf("dataset %d: edges path cannot be empty", i)
		}
		if ds.Name == "" {
			ds.Name = ds.Edges
		}
		if datasetNames[ds.Name] {
			return fmt.Errorf("duplicate dataset name: %s", ds.Name)
		}
		datasetNames[ds.Name] = true
		if ds.Source == nil {
			src := DefaultSource
			ds.Source = &src
		}
		if ds.PageRankSources < 0 {
			return fmt.Errorf("dataset %s: pagerank_sources cannot be negative: %d", ds.Name, ds.PageRankSources)
		}
	}

	// Backends
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}
	backendNames := make(map[string]bool)
	for i := range c.Backends {
		b := &c.Backends[i]
		if b.Kind == "" {
			b.Kind = b.Name
		}
		if b.Name == "" {
			b.Name = b.Kind
		}
		if backendNames[b.Name] {
			return fmt.Errorf("duplicate backend name: %s", b.Name)
		}
		backendNames[b.Name] = true
		if err := b.validate(); err != nil {
			return fmt.Errorf("backend %s: %w", b.Name, err)
		}
	}

	// Logging
	validLogLevels := map[string]bool{
		"OFF":     true,
		"FATAL":   true,
		"ERROR":   true,
		"WARN":    true,
		"WARNING": true,
		"INFO":    true,
		"DEBUG":   true,
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO" // Default to INFO if not specified
	} else if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (valid options: OFF, FATAL, ERROR, WARN, INFO, DEBUG)", c.Logging.Level)
	}

	return nil
}

func (b *BackendConfig) validate() error {
	switch b.Kind {
	case KindSequential:
	case KindSharedMemory:
		if b.Workers < 0 {
			return fmt.Errorf("workers cannot be negative: %d", b.Workers)
		}
		if b.Workers == 0 {
			b.Workers = runtime.NumCPU()
		}
		if b.Grain < 0 {
			return fmt.Errorf("grain cannot be negative: %d", b.Grain)
		}
	case KindDistributed:
		switch b.Transport {
		case "":
			b.Transport = "inprocess"
		case "inprocess", "tcp":
		default:
			return fmt.Errorf("invalid transport: %s (valid options: inprocess, tcp)", b.Transport)
		}
		if b.Transport == "tcp" {
			if len(b.Peers) == 0 {
				return fmt.Errorf("tcp transport requires at least one peer")
			}
			if b.Partitions != 0 && b.Partitions != len(b.Peers) {
				return fmt.Errorf("partitions is %d but %d peers are configured", b.Partitions, len(b.Peers))
			}
			b.Partitions = len(b.Peers)
			peerIDs := make(map[int]bool)
			for _, p := range b.Peers {
				if p.ID < 0 || p.ID >= len(b.Peers) {
					return fmt.Errorf("peer id %d out of range [0, %d)", p.ID, len(b.Peers))
				}
				if peerIDs[p.ID] {
					return fmt.Errorf("duplicate peer id: %d", p.ID)
				}
				peerIDs[p.ID] = true
				if p.Port <= 0 || p.Port > 65535 {
					return fmt.Errorf("invalid port for peer %d: %d", p.ID, p.Port)
				}
				if p.Host == "" {
					return fmt.Errorf("host cannot be empty for peer %d", p.ID)
				}
			}
		}
		if b.Partitions < 0 {
			return fmt.Errorf("partitions cannot be negative: %d", b.Partitions)
		}
		if b.Partitions == 0 {
			b.Partitions = 4
		}
		validAlgorithms := map[string]bool{
			"hash":  true,
			"range": true,
		}
		if b.Partitioning == "" {
			b.Partitioning = "hash"
		} else if !validAlgorithms[b.Partitioning] {
			return fmt.Errorf("invalid partitioning algorithm: %s (valid options: hash, range)", b.Partitioning)
		}
	case KindAccelerator:
		if b.Blocks < 0 || b.ThreadsPerBlock < 0 {
			return fmt.Errorf("blocks and threads_per_block cannot be negative")
		}
		if b.Blocks == 0 {
			b.Blocks = runtime.NumCPU()
		}
		if b.ThreadsPerBlock == 0 {
			b.ThreadsPerBlock = 128
		}
	default:
		return fmt.Errorf("invalid backend kind: %q (valid options: sequential, shared_memory, distributed, accelerator)", b.Kind)
	}
	return nil
}

// GetBackendByName returns a backend configuration by its name
func (c *Config) GetBackendByName(name string) (*BackendConfig, error) {
	for i := range c.Backends {
		if c.Backends[i].Name == name {
			return &c.Backends[i], nil
		}
	}
	return nil, fmt.Errorf("backend %q not found", name)
}

// GetDatasetByName returns a dataset configuration by its name
func (c *Config) GetDatasetByName(name string) (*DatasetConfig, error) {
	for i := range c.Datasets {
		if c.Datasets[i].Name == name {
			return &c.Datasets[i], nil
		}
	}
	return nil, fmt.Errorf("dataset %q not found", name)
}

// GetAddress returns the full RPC address (host:port) for a peer
func (p *PeerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// GetLogLevel returns the configured log level, defaulting to INFO if not set
func (c *Config) GetLogLevel() util.LogLevel {
	if c.Logging.Level == "" {
		return util.LogLevelInfo
	}
	return util.ParseLogLevel(c.Logging.Level)
}
