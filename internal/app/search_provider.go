package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/platform/qdrant"
	"github.com/yungbote/riskwarning-backend/internal/platform/weaviate"
)

var (
	newWeaviateSearcher = func(ctx context.Context, log *logger.Logger, cfg weaviate.Config) (retrieval.Searcher, error) {
		s, err := weaviate.NewSearcher(log, cfg)
		if err != nil {
			return nil, err
		}
		if err := s.Ready(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	newQdrantSearcher = func(ctx context.Context, log *logger.Logger, cfg qdrant.Config) (retrieval.Searcher, error) {
		return qdrant.NewSearcher(ctx, log, cfg)
	}
	resolveQdrantConfig = qdrant.ResolveConfigFromEnv
)

type SearchProviderBootstrapErrorCode string

const (
	SearchProviderBootstrapErrorInvalidProvider    SearchProviderBootstrapErrorCode = "invalid_provider"
	SearchProviderBootstrapErrorMissingURL         SearchProviderBootstrapErrorCode = "missing_url"
	SearchProviderBootstrapErrorInvalidURL         SearchProviderBootstrapErrorCode = "invalid_url"
	SearchProviderBootstrapErrorMissingCollection  SearchProviderBootstrapErrorCode = "missing_collection"
	SearchProviderBootstrapErrorMissingVectorDim   SearchProviderBootstrapErrorCode = "missing_vector_dim"
	SearchProviderBootstrapErrorInvalidVectorDim   SearchProviderBootstrapErrorCode = "invalid_vector_dim"
	SearchProviderBootstrapErrorConnectFailed      SearchProviderBootstrapErrorCode = "connect_failed"
	SearchProviderBootstrapErrorProviderInitFailed SearchProviderBootstrapErrorCode = "provider_init_failed"
)

type SearchProviderBootstrapError struct {
	Code     SearchProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *SearchProviderBootstrapError) Error() string {
	if e == nil {
		return "search provider bootstrap failed"
	}
	return fmt.Sprintf("search provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *SearchProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveSearcher builds the knowledge-base search collaborator named by
// cfg.SearchProvider.
func resolveSearcher(ctx context.Context, log *logger.Logger, cfg Config) (retrieval.Searcher, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.SearchProvider))
	log.Info("Selecting search provider", "provider", provider)

	var (
		s   retrieval.Searcher
		err error
	)
	switch provider {
	case SearchProviderWeaviate:
		s, err = newWeaviateSearcher(ctx, log, cfg.Weaviate)
	case SearchProviderQdrant:
		var qcfg qdrant.Config
		qcfg, err = resolveQdrantConfig()
		if err == nil {
			s, err = newQdrantSearcher(ctx, log, qcfg)
		}
	default:
		err = &SearchProviderBootstrapError{
			Code:     SearchProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported search provider %q", provider),
		}
	}
	if err != nil {
		classified := classifySearchProviderError(provider, err)
		log.Error("Search provider bootstrap failed",
			"provider", provider,
			"error_code", searchProviderErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return s, nil
}

func classifySearchProviderError(provider string, err error) error {
	var already *SearchProviderBootstrapError
	if errors.As(err, &already) {
		return err
	}
	wrap := func(code SearchProviderBootstrapErrorCode) error {
		return &SearchProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(SearchProviderBootstrapErrorMissingURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(SearchProviderBootstrapErrorInvalidURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(SearchProviderBootstrapErrorMissingCollection)
		case qdrant.ConfigErrorMissingVectorDim:
			return wrap(SearchProviderBootstrapErrorMissingVectorDim)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(SearchProviderBootstrapErrorInvalidVectorDim)
		}
	}

	var urlErr *neturl.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return wrap(SearchProviderBootstrapErrorConnectFailed)
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "weaviate_url is required"):
		return wrap(SearchProviderBootstrapErrorMissingURL)
	case strings.Contains(lower, "invalid weaviate_url"):
		return wrap(SearchProviderBootstrapErrorInvalidURL)
	case strings.Contains(lower, "not ready"), strings.Contains(lower, "ready check"), strings.Contains(lower, "connection refused"):
		return wrap(SearchProviderBootstrapErrorConnectFailed)
	}
	return wrap(SearchProviderBootstrapErrorProviderInitFailed)
}

func searchProviderErrorCode(err error) SearchProviderBootstrapErrorCode {
	var bootstrapErr *SearchProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return SearchProviderBootstrapErrorProviderInitFailed
}
