package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/example/trashvision/internal/pipeline"
	"github.com/example/trashvision/internal/taxonomy"
)

// CustomVision holds the settings for the Azure Custom Vision provider.
type CustomVision struct {
	Endpoint      string
	PredictionKey string
	TrainingKey   string
	ProjectID     string
	PublishedName string
}

// Config is the process-wide configuration, loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	ListenAddr  string
	DatabaseDSN string
	RedisAddr   string

	JWTSecret   string
	JWTAudience string

	CustomVision  CustomVision
	LocalModelURL string

	ConfidenceThreshold float64
	WeakSignalFloor     float64

	Taxonomy        map[string]taxonomy.Label
	Recommendations pipeline.RecommendationTable
}

// Load assembles configuration from the environment plus an optional YAML
// tables file named by TABLES_CONFIG. Missing values fall back to defaults;
// Validate decides whether the result is serviceable.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=trashvision port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "redis:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),
		CustomVision: CustomVision{
			Endpoint:      os.Getenv("PREDICTION_ENDPOINT"),
			PredictionKey: os.Getenv("PREDICTION_KEY"),
			TrainingKey:   os.Getenv("TRAINING_KEY"),
			ProjectID:     os.Getenv("PROJECT_ID"),
			PublishedName: getEnv("PUBLISHED_NAME", "trashvision-v1"),
		},
		LocalModelURL:   os.Getenv("LOCAL_MODEL_URL"),
		Taxonomy:        defaultTaxonomy(),
		Recommendations: defaultRecommendations(),
	}

	var err error
	if cfg.ConfidenceThreshold, err = getEnvFloat("CONFIDENCE_THRESHOLD", DefaultConfidenceThreshold); err != nil {
		return nil, err
	}
	if cfg.WeakSignalFloor, err = getEnvFloat("WEAK_SIGNAL_FLOOR", DefaultWeakSignalFloor); err != nil {
		return nil, err
	}

	if path := os.Getenv("TABLES_CONFIG"); path != "" {
		if err := cfg.loadTables(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Confidence policy defaults. The original product asserted only "highest
// confidence selection"; 0.5 matches its strict cut and 0.2 is the chosen
// floor below which a best-effort pick is noise rather than signal.
const (
	DefaultConfidenceThreshold = 0.5
	DefaultWeakSignalFloor     = 0.2
)

// Validate reports the first configuration error. A non-nil return must stop
// the process before it serves requests.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD %v outside [0,1]", c.ConfidenceThreshold)
	}
	if c.WeakSignalFloor < 0 || c.WeakSignalFloor > 1 {
		return fmt.Errorf("WEAK_SIGNAL_FLOOR %v outside [0,1]", c.WeakSignalFloor)
	}
	if c.WeakSignalFloor > c.ConfidenceThreshold {
		return fmt.Errorf("WEAK_SIGNAL_FLOOR %v exceeds CONFIDENCE_THRESHOLD %v", c.WeakSignalFloor, c.ConfidenceThreshold)
	}
	if len(c.Taxonomy) == 0 {
		return fmt.Errorf("taxonomy table is empty")
	}
	for tag, label := range c.Taxonomy {
		if _, err := taxonomy.ParseLabel(string(label)); err != nil {
			return fmt.Errorf("taxonomy tag %q: %w", tag, err)
		}
	}
	return nil
}

// tablesFile is the YAML shape of the externally supplied lookup tables.
type tablesFile struct {
	Taxonomy        map[string]string `yaml:"taxonomy"`
	OrganicTypes    []string          `yaml:"organic_types"`
	Recommendations struct {
		Recyclable    string `yaml:"recyclable"`
		NonRecyclable string `yaml:"non_recyclable"`
		Organic       string `yaml:"organic"`
		Unknown       string `yaml:"unknown"`
		Generic       string `yaml:"generic"`
		Fallback      string `yaml:"fallback"`
	} `yaml:"recommendations"`
}

func (c *Config) loadTables(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tables config: %w", err)
	}
	var file tablesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse tables config %s: %w", path, err)
	}

	if len(file.Taxonomy) > 0 {
		table := make(map[string]taxonomy.Label, len(file.Taxonomy))
		for tag, value := range file.Taxonomy {
			label, err := taxonomy.ParseLabel(value)
			if err != nil {
				return fmt.Errorf("tables config %s: tag %q: %w", path, tag, err)
			}
			table[tag] = label
		}
		c.Taxonomy = table
	}
	if len(file.OrganicTypes) > 0 {
		organic := make(map[string]struct{}, len(file.OrganicTypes))
		for _, item := range file.OrganicTypes {
			organic[taxonomy.CanonicalTag(item)] = struct{}{}
		}
		c.Recommendations.OrganicTypes = organic
	}

	overrides := map[*string]string{
		&c.Recommendations.Recyclable:    file.Recommendations.Recyclable,
		&c.Recommendations.NonRecyclable: file.Recommendations.NonRecyclable,
		&c.Recommendations.Organic:       file.Recommendations.Organic,
		&c.Recommendations.Unknown:       file.Recommendations.Unknown,
		&c.Recommendations.Generic:       file.Recommendations.Generic,
		&c.Recommendations.Fallback:      file.Recommendations.Fallback,
	}
	for target, value := range overrides {
		if value != "" {
			*target = value
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return value, nil
}
