package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/andresmejia3/emotiscan/internal/detector"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. EMOTISCAN_MIN_CONFIDENCE.
const EnvPrefix = "EMOTISCAN"

// Config is the full run configuration handed to the pipeline.
type Config struct {
	InputDir        string        `mapstructure:"input_dir"`
	OutputDir       string        `mapstructure:"output_dir"`
	CSVName         string        `mapstructure:"csv_name"`
	MinConfidence   float64       `mapstructure:"min_confidence"` // 0.0 - 1.0, inclusive
	Provider        string        `mapstructure:"provider"`
	MaxResults      int           `mapstructure:"max_results"`
	Credentials     string        `mapstructure:"credentials"`
	Region          string        `mapstructure:"region"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
	DBURL           string        `mapstructure:"db_url"`
	MQTT            MQTTConfig    `mapstructure:"mqtt"`
	Log             LogConfig     `mapstructure:"log"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// SetDefaults registers every key so env overrides resolve even without a flag or file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("csv_name", "output.csv")
	v.SetDefault("min_confidence", 0.35)
	v.SetDefault("provider", detector.ProviderVision)
	v.SetDefault("max_results", 0)
	v.SetDefault("credentials", "")
	v.SetDefault("region", "")
	v.SetDefault("request_timeout", time.Duration(0))
	v.SetDefault("continue_on_error", false)
	v.SetDefault("db_url", "")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "emotiscan/results")
	v.SetDefault("mqtt.client_id", "emotiscan")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load layers defaults, the optional config file and the environment onto v
// (which may already carry bound flags) and decodes the result.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Debugf("Config loaded from %s", configPath)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges and paths once before a run. The output directory is
// created when missing and probed for writability.
func (c *Config) Validate() error {
	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0.0 and 1.0, got %v", c.MinConfidence)
	}
	if c.InputDir == "" {
		return fmt.Errorf("input directory is required")
	}
	info, err := os.Stat(c.InputDir)
	if err != nil {
		return fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", c.InputDir)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if same, err := SameDir(c.InputDir, c.OutputDir); err != nil {
		return fmt.Errorf("output directory: %w", err)
	} else if same {
		return fmt.Errorf("output directory must differ from the input directory, annotated copies would overwrite the sources")
	}
	probe, err := os.CreateTemp(c.OutputDir, ".emotiscan-probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", c.OutputDir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	if c.CSVName == "" || strings.ContainsAny(c.CSVName, `/\`) {
		return fmt.Errorf("csv name must be a plain file name, got %q", c.CSVName)
	}

	switch c.Provider {
	case detector.ProviderVision, detector.ProviderRekognition:
	default:
		return fmt.Errorf("unknown provider %q (expected %s or %s)", c.Provider, detector.ProviderVision, detector.ProviderRekognition)
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("max results cannot be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt topic is required when a broker is set")
	}
	return nil
}

// SameDir reports whether a and b resolve to the same directory, following
// symlinks and trailing separators.
func SameDir(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// ProviderConfig extracts the detection client settings.
func (c *Config) ProviderConfig() detector.ProviderConfig {
	return detector.ProviderConfig{
		Provider:        c.Provider,
		MaxResults:      c.MaxResults,
		CredentialsFile: c.Credentials,
		Region:          c.Region,
		RequestTimeout:  c.RequestTimeout,
	}
}
