// Package cfg loads and validates the session configuration shared by
// cmd/adasend and cmd/adarecv: a single JSON document, optionally
// pointed to by an environment variable, validated and defaulted on
// load — the same shape as the teacher pack's moto config/setting.go.
package cfg

import (
	"encoding/json"
	"fmt"
	"os"
)

// EnvConfigPath names the environment variable that overrides the config
// file path, mirroring MOTO_CONFIG in the teacher pack.
const EnvConfigPath = "ADASTREAM_CONFIG"

// PredictorMode selects the bandwidth predictor implementation.
type PredictorMode string

const (
	PredictorSpectral PredictorMode = "spectral"
	PredictorOracle   PredictorMode = "oracle_file"
	PredictorDisabled PredictorMode = "disabled"
)

// ArchiveBackend selects the optional cloud archiver for completed steps.
type ArchiveBackend string

const (
	ArchiveNone  ArchiveBackend = "none"
	ArchiveS3    ArchiveBackend = "s3"
	ArchiveAzure ArchiveBackend = "azure"
	ArchiveGCS   ArchiveBackend = "gcs"
)

// Config is the full session configuration, as described in SPEC_FULL.md §6/§4.10.
type Config struct {
	BasePort          int    `json:"base_port"`
	ReducedAddr       string `json:"reduced_addr"`
	AugmentationAddr  string `json:"augmentation_addr"`
	NumSteps          int    `json:"num_steps"`
	ChunkSize         int    `json:"chunk_size"`
	LinkBandwidthMbps float64 `json:"link_bandwidth_mbps"`
	PredictionCadence int    `json:"prediction_cadence"`
	LookaheadSteps    int    `json:"lookahead_steps"`
	TelemetryCapacity int    `json:"telemetry_capacity"`

	ReducedFiles      []string `json:"reduced_files"`
	AugmentationFiles []string `json:"augmentation_files"`
	SourceRoot        string   `json:"source_root"`

	OutputRoot    string        `json:"output_root"`
	PredictorMode PredictorMode `json:"predictor_mode"`
	OracleFilePath string       `json:"oracle_file_path"`

	MaxSendRateMbps          float64 `json:"max_send_rate_mbps"`
	PredictorCadenceInterval string  `json:"predictor_cadence_interval"` // e.g. "3s"

	ArchiveBackend ArchiveBackend `json:"archive_backend"`
	ArchiveBucket  string         `json:"archive_bucket"`
	ArchivePrefix  string         `json:"archive_prefix"`

	MetricsAddr string `json:"metrics_addr"`

	LogPath  string `json:"log_path"`
	LogLevel string `json:"log_level"`

	LedgerPath string `json:"ledger_path"`
}

// Default returns a Config with every field at its documented default.
func Default() *Config {
	return &Config{
		BasePort:          4444,
		NumSteps:          1,
		ChunkSize:         1 << 20, // 1 MiB
		LinkBandwidthMbps: 200,
		PredictionCadence: 3,
		LookaheadSteps:    5,
		TelemetryCapacity: 10000,
		OutputRoot:        "./output",
		PredictorMode:     PredictorDisabled,
		PredictorCadenceInterval: "3s",
		ArchiveBackend:    ArchiveNone,
		MetricsAddr:       "",
		LogLevel:          "info",
	}
}

// Load reads a JSON config file, falling back to EnvConfigPath when path
// is empty, then defaults and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return nil, fmt.Errorf("cfg: no config path given and %s is unset", EnvConfigPath)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cfg: read %s: %w", path, err)
	}
	c := Default()
	if err := json.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("cfg: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate fills in remaining defaults and rejects configs that cannot
// describe a runnable session.
func (c *Config) Validate() error {
	if c.BasePort <= 0 {
		return fmt.Errorf("cfg: base_port must be positive")
	}
	if c.NumSteps <= 0 {
		return fmt.Errorf("cfg: num_steps must be positive")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("cfg: chunk_size must be positive")
	}
	if c.TelemetryCapacity <= 0 {
		c.TelemetryCapacity = 10000
	}
	if c.LookaheadSteps <= 0 {
		c.LookaheadSteps = 5
	}
	if c.PredictionCadence <= 0 {
		c.PredictionCadence = 3
	}
	if c.PredictorMode == "" {
		c.PredictorMode = PredictorDisabled
	}
	if c.ArchiveBackend == "" {
		c.ArchiveBackend = ArchiveNone
	}
	if c.OutputRoot == "" {
		c.OutputRoot = "./output"
	}
	if c.PredictorCadenceInterval == "" {
		c.PredictorCadenceInterval = "3s"
	}
	if c.ReducedAddr == "" {
		c.ReducedAddr = fmt.Sprintf("0.0.0.0:%d", c.BasePort)
	}
	if c.AugmentationAddr == "" {
		c.AugmentationAddr = fmt.Sprintf("0.0.0.0:%d", c.BasePort+1)
	}
	return nil
}

// LedgerDBPath returns the effective buntdb ledger path.
func (c *Config) LedgerDBPath() string {
	if c.LedgerPath != "" {
		return c.LedgerPath
	}
	return c.OutputRoot + "/.ledger.db"
}
