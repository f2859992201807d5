package weaviate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
)

type Config struct {
	URL             string
	APIKey          string
	IndicatorClass  string
	RegulationClass string
}

func ConfigFromEnv() Config {
	return Config{
		URL:             strings.TrimSpace(envutil.String("WEAVIATE_URL", "")),
		APIKey:          strings.TrimSpace(envutil.String("WEAVIATE_API_KEY", "")),
		IndicatorClass:  envutil.String("WEAVIATE_INDICATOR_CLASS", "RiskIndicator"),
		RegulationClass: envutil.String("WEAVIATE_REGULATION_CLASS", "Regulation"),
	}
}

// hostScheme splits URL into the host and scheme the client expects.
func (c Config) hostScheme() (string, string, error) {
	if strings.TrimSpace(c.URL) == "" {
		return "", "", fmt.Errorf("WEAVIATE_URL is required")
	}
	raw := c.URL
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid WEAVIATE_URL=%q", c.URL)
	}
	return parsed.Host, parsed.Scheme, nil
}
