package assessment

import (
	"time"

	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
)

const (
	DefaultWorkerPoolSize   = 10
	DefaultQueueDepth       = 20
	DefaultBatchTimeout     = 120 * time.Second
	DefaultRetrievalTimeout = retrieval.DefaultTimeout
)

// Settings are the engine knobs. Zero sizes and durations fall back to defaults;
// thresholds are taken as given.
type Settings struct {
	IndicatorCandidates    int           `yaml:"indicator_candidates" json:"indicator_candidates"`
	RegulationCandidates   int           `yaml:"regulation_candidates" json:"regulation_candidates"`
	ApplicabilityThreshold float64       `yaml:"applicability_threshold" json:"applicability_threshold"`
	InfluenceThreshold     float64       `yaml:"influence_threshold" json:"influence_threshold"`
	WorkerPoolSize         int           `yaml:"worker_pool_size" json:"worker_pool_size"`
	QueueDepth             int           `yaml:"queue_depth" json:"queue_depth"`
	BatchTimeout           time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	RetrievalTimeout       time.Duration `yaml:"retrieval_timeout" json:"retrieval_timeout"`
}

func DefaultSettings() Settings {
	return Settings{
		IndicatorCandidates:    retrieval.DefaultIndicatorLimit,
		RegulationCandidates:   retrieval.DefaultRegulationLimit,
		ApplicabilityThreshold: mapping.DefaultApplicabilityThreshold,
		InfluenceThreshold:     mapping.DefaultInfluenceThreshold,
		WorkerPoolSize:         DefaultWorkerPoolSize,
		QueueDepth:             DefaultQueueDepth,
		BatchTimeout:           DefaultBatchTimeout,
		RetrievalTimeout:       DefaultRetrievalTimeout,
	}
}

// ApplyEnv overrides s with any RISK_* variables that are set.
func (s Settings) ApplyEnv() Settings {
	s.IndicatorCandidates = envutil.Int("RISK_INDICATOR_CANDIDATES", s.IndicatorCandidates)
	s.RegulationCandidates = envutil.Int("RISK_REGULATION_CANDIDATES", s.RegulationCandidates)
	s.ApplicabilityThreshold = envutil.Float("RISK_APPLICABILITY_THRESHOLD", s.ApplicabilityThreshold)
	s.InfluenceThreshold = envutil.Float("RISK_INFLUENCE_THRESHOLD", s.InfluenceThreshold)
	s.WorkerPoolSize = envutil.Int("RISK_WORKER_POOL_SIZE", s.WorkerPoolSize)
	s.QueueDepth = envutil.Int("RISK_WORKER_QUEUE_DEPTH", s.QueueDepth)
	s.BatchTimeout = envutil.Seconds("RISK_BATCH_TIMEOUT_SECONDS", s.BatchTimeout)
	s.RetrievalTimeout = envutil.Seconds("RISK_RETRIEVAL_TIMEOUT_SECONDS", s.RetrievalTimeout)
	return s
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.IndicatorCandidates <= 0 {
		s.IndicatorCandidates = d.IndicatorCandidates
	}
	if s.RegulationCandidates <= 0 {
		s.RegulationCandidates = d.RegulationCandidates
	}
	if s.WorkerPoolSize <= 0 {
		s.WorkerPoolSize = d.WorkerPoolSize
	}
	if s.QueueDepth < 0 {
		s.QueueDepth = 0
	}
	if s.BatchTimeout <= 0 {
		s.BatchTimeout = d.BatchTimeout
	}
	if s.RetrievalTimeout <= 0 {
		s.RetrievalTimeout = d.RetrievalTimeout
	}
	return s
}

func (s Settings) Thresholds() mapping.Thresholds {
	return mapping.Thresholds{
		Applicability: s.ApplicabilityThreshold,
		Influence:     s.InfluenceThreshold,
	}
}

func (s Settings) retrievalOptions(obs retrieval.FailureObserver) retrieval.Options {
	return retrieval.Options{
		IndicatorLimit:  s.IndicatorCandidates,
		RegulationLimit: s.RegulationCandidates,
		Timeout:         s.RetrievalTimeout,
		Observer:        obs,
	}
}
