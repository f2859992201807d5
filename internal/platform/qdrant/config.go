package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
)

const (
	defaultIndicatorCollection  = "indicators"
	defaultRegulationCollection = "regulations"
	defaultTimeout              = 10 * time.Second
)

type Config struct {
	URL                  string
	IndicatorCollection  string
	RegulationCollection string
	VectorDim            int
	Timeout              time.Duration
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL        ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL        ConfigErrorCode = "invalid_url"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorMissingVectorDim  ConfigErrorCode = "missing_vector_dim"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	switch e.Code {
	case ConfigErrorMissingURL:
		return "QDRANT_URL is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf(
			"invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333",
			e.Value,
		)
	case ConfigErrorMissingCollection:
		return fmt.Sprintf("%s is required", e.Value)
	case ConfigErrorMissingVectorDim:
		return "QDRANT_VECTOR_DIM is required and must be a positive integer"
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf(
			"invalid QDRANT_VECTOR_DIM=%q; expected positive integer",
			e.Value,
		)
	default:
		return "invalid qdrant config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveConfigFromEnv reads the QDRANT_* variables. Collections default to
// "indicators" and "regulations"; the vector dimension has no default.
func ResolveConfigFromEnv() (Config, error) {
	rawDim := envutil.String("QDRANT_VECTOR_DIM", "")
	dim := 0
	if rawDim != "" {
		parsed, err := strconv.Atoi(rawDim)
		if err != nil {
			return Config{}, &ConfigError{
				Code:  ConfigErrorInvalidVectorDim,
				Value: rawDim,
				Cause: err,
			}
		}
		dim = parsed
	}

	cfg := Config{
		URL:                  envutil.String("QDRANT_URL", ""),
		IndicatorCollection:  envutil.String("QDRANT_INDICATOR_COLLECTION", defaultIndicatorCollection),
		RegulationCollection: envutil.String("QDRANT_REGULATION_COLLECTION", defaultRegulationCollection),
		VectorDim:            dim,
		Timeout:              envutil.Seconds("QDRANT_TIMEOUT_SECONDS", defaultTimeout),
	}

	if err := ValidateConfig(cfg, rawDim != ""); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig reports the first problem with cfg. hasRawVectorDim separates
// an unset QDRANT_VECTOR_DIM from an invalid one.
func ValidateConfig(cfg Config, hasRawVectorDim bool) error {
	if cfg.URL == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return &ConfigError{
			Code:  ConfigErrorInvalidURL,
			Value: cfg.URL,
			Cause: err,
		}
	}
	if strings.TrimSpace(cfg.IndicatorCollection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection, Value: "QDRANT_INDICATOR_COLLECTION"}
	}
	if strings.TrimSpace(cfg.RegulationCollection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection, Value: "QDRANT_REGULATION_COLLECTION"}
	}
	if !hasRawVectorDim && cfg.VectorDim == 0 {
		return &ConfigError{Code: ConfigErrorMissingVectorDim}
	}
	if cfg.VectorDim <= 0 {
		return &ConfigError{
			Code:  ConfigErrorInvalidVectorDim,
			Value: strconv.Itoa(cfg.VectorDim),
		}
	}
	return nil
}
