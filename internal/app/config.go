package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/riskwarning-backend/internal/data/db"
	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/platform/neo4jdb"
	"github.com/yungbote/riskwarning-backend/internal/platform/weaviate"
	"github.com/yungbote/riskwarning-backend/internal/realtime/bus"
	"github.com/yungbote/riskwarning-backend/internal/services/assessment"
	"github.com/yungbote/riskwarning-backend/internal/temporalx"
)

const (
	SearchProviderWeaviate = "weaviate"
	SearchProviderQdrant   = "qdrant"

	defaultPort        = "8080"
	defaultServiceName = "riskwarning"
)

type Config struct {
	Port            string              `yaml:"port"`
	ServiceName     string              `yaml:"service_name"`
	ShutdownTimeout time.Duration       `yaml:"shutdown_timeout"`
	SearchProvider  string              `yaml:"search_provider"`
	Engine          assessment.Settings `yaml:"engine"`

	// Connection settings come from the environment only.
	Postgres db.PostgresConfig `yaml:"-"`
	Weaviate weaviate.Config   `yaml:"-"`
	Bus      bus.Config        `yaml:"-"`
	Neo4j    neo4jdb.Config    `yaml:"-"`
	Temporal temporalx.Config  `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		Port:            defaultPort,
		ServiceName:     defaultServiceName,
		ShutdownTimeout: 15 * time.Second,
		SearchProvider:  SearchProviderWeaviate,
		Engine:          assessment.DefaultSettings(),
	}
}

// LoadConfig layers defaults, the optional YAML file named by RISK_CONFIG_FILE,
// and environment variables, in that order.
func LoadConfig(log *logger.Logger) (Config, error) {
	if log == nil {
		log = logger.NewNop()
	}
	cfg := defaultConfig()

	if path, ok := envutil.Lookup("RISK_CONFIG_FILE"); ok {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.ShutdownTimeout = envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeout)
	cfg.SearchProvider = strings.ToLower(envutil.String("SEARCH_PROVIDER", cfg.SearchProvider))
	cfg.Engine = cfg.Engine.ApplyEnv()

	cfg.Postgres = db.PostgresConfigFromEnv()
	cfg.Weaviate = weaviate.ConfigFromEnv()
	cfg.Bus = bus.ConfigFromEnv()
	cfg.Neo4j = neo4jdb.ConfigFromEnv()
	cfg.Temporal = temporalx.LoadConfig()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	switch c.SearchProvider {
	case SearchProviderWeaviate, SearchProviderQdrant:
	default:
		return &SearchProviderBootstrapError{
			Code:     SearchProviderBootstrapErrorInvalidProvider,
			Provider: c.SearchProvider,
			Cause:    fmt.Errorf("unsupported search provider %q", c.SearchProvider),
		}
	}
	e := c.Engine
	if e.ApplicabilityThreshold < 0 || e.ApplicabilityThreshold > 1 {
		return fmt.Errorf("applicability threshold %v outside [0,1]", e.ApplicabilityThreshold)
	}
	if e.InfluenceThreshold < 0 || e.InfluenceThreshold > 1 {
		return fmt.Errorf("influence threshold %v outside [0,1]", e.InfluenceThreshold)
	}
	if e.WorkerPoolSize < 0 || e.IndicatorCandidates < 0 || e.RegulationCandidates < 0 {
		return fmt.Errorf("engine sizes must not be negative")
	}
	return nil
}
