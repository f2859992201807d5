package qdrant

import (
	"testing"
	"time"
)

func TestResolveConfigFromEnvValid(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_INDICATOR_COLLECTION", "")
	t.Setenv("QDRANT_REGULATION_COLLECTION", "regs_v2")
	t.Setenv("QDRANT_VECTOR_DIM", "768")
	t.Setenv("QDRANT_TIMEOUT_SECONDS", "3")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.URL != "http://qdrant:6333" {
		t.Fatalf("URL: want=%q got=%q", "http://qdrant:6333", cfg.URL)
	}
	if cfg.IndicatorCollection != "indicators" {
		t.Fatalf("IndicatorCollection: want=%q got=%q", "indicators", cfg.IndicatorCollection)
	}
	if cfg.RegulationCollection != "regs_v2" {
		t.Fatalf("RegulationCollection: want=%q got=%q", "regs_v2", cfg.RegulationCollection)
	}
	if cfg.VectorDim != 768 {
		t.Fatalf("VectorDim: want=%d got=%d", 768, cfg.VectorDim)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("Timeout: want=%v got=%v", 3*time.Second, cfg.Timeout)
	}
}

func TestResolveConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dim  string
		want ConfigErrorCode
	}{
		{name: "missing url", url: "", dim: "768", want: ConfigErrorMissingURL},
		{name: "relative url", url: "qdrant:6333", dim: "768", want: ConfigErrorInvalidURL},
		{name: "missing dim", url: "http://qdrant:6333", dim: "", want: ConfigErrorMissingVectorDim},
		{name: "zero dim", url: "http://qdrant:6333", dim: "0", want: ConfigErrorInvalidVectorDim},
		{name: "non numeric dim", url: "http://qdrant:6333", dim: "abc", want: ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_VECTOR_DIM", tc.dim)

			_, err := ResolveConfigFromEnv()
			if err == nil {
				t.Fatalf("ResolveConfigFromEnv: expected error, got nil")
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got=%T", err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}

func TestValidateConfigMissingCollection(t *testing.T) {
	err := ValidateConfig(Config{URL: "http://qdrant:6333", IndicatorCollection: "indicators", VectorDim: 3}, true)
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got=%T", err)
	}
	if cfgErr.Code != ConfigErrorMissingCollection {
		t.Fatalf("code: want=%q got=%q", ConfigErrorMissingCollection, cfgErr.Code)
	}
	if cfgErr.Error() != "QDRANT_REGULATION_COLLECTION is required" {
		t.Fatalf("message: got=%q", cfgErr.Error())
	}
}
