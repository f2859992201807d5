package persist

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/riskwarning-backend/internal/data/repos"
	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

// ErrConcurrentResultWrite means another batch inserted the same
// (assessment, indicator) row first.
var ErrConcurrentResultWrite = errors.New("concurrent indicator result write")

// Stats counts what one Apply did.
type Stats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

type Writer struct {
	db   *gorm.DB
	repo repos.IndicatorResultRepo
	log  *logger.Logger
	now  func() time.Time
}

func NewWriter(db *gorm.DB, repo repos.IndicatorResultRepo, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Writer{
		db:   db,
		repo: repo,
		log:  log.With("service", "ResultWriter"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type pendingRow struct {
	row   *types.IndicatorResult
	isNew bool
	dirty bool
}

// Apply merges every result into the assessment's indicator rows inside one
// transaction. Any failure rolls the whole batch back.
func (w *Writer) Apply(dbc dbctx.Context, a *types.AssessmentResult, results []mapping.Result) (Stats, error) {
	var stats Stats
	if a == nil {
		return stats, fmt.Errorf("persist: nil assessment")
	}
	if len(results) == 0 {
		return stats, nil
	}

	ordered := append([]mapping.Result(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].BehaviorID < ordered[j].BehaviorID })

	transaction := dbc.Tx
	if transaction == nil {
		transaction = w.db
	}
	at := w.now()

	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbc.WithTx(txx)
		pending := map[string]*pendingRow{}

		for _, res := range ordered {
			ids := make([]string, 0, len(res.IndicatorScores))
			for id := range res.IndicatorScores {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, indicatorID := range ids {
				normalized := res.IndicatorScores[indicatorID]
				influencing := res.InfluencingRegulations[indicatorID]
				ind := indicatorFor(res, indicatorID)

				p, ok := pending[indicatorID]
				if !ok {
					existing, err := w.repo.GetForUpdate(inner, a.ID, indicatorID)
					if err != nil {
						return fmt.Errorf("load indicator result %s: %w", indicatorID, err)
					}
					if existing == nil {
						pending[indicatorID] = &pendingRow{
							row:   NewRow(a, indicatorID, ind, res.BehaviorID, normalized, influencing, at),
							isNew: true,
						}
						stats.Inserted++
						continue
					}
					p = &pendingRow{row: existing}
					pending[indicatorID] = p
				}

				absolute := normalized * p.row.MaxPossibleScore
				if Merge(p.row, res.BehaviorID, absolute, influencing, at) {
					p.dirty = true
					if !p.isNew {
						stats.Updated++
					}
				} else {
					stats.Skipped++
				}
			}
		}

		keys := make([]string, 0, len(pending))
		for k := range pending {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var inserts []*types.IndicatorResult
		for _, k := range keys {
			if pending[k].isNew {
				inserts = append(inserts, pending[k].row)
			}
		}
		if err := w.repo.Create(inner, inserts); err != nil {
			if repos.IsUniqueViolation(err) {
				return fmt.Errorf("insert indicator results: %w", ErrConcurrentResultWrite)
			}
			return fmt.Errorf("insert indicator results: %w", err)
		}
		for _, k := range keys {
			p := pending[k]
			if p.isNew || !p.dirty {
				continue
			}
			if err := w.repo.Update(inner, p.row); err != nil {
				return fmt.Errorf("update indicator result %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		w.log.Error("Indicator result flush failed", "assessment_id", a.ID, "error", err)
		return Stats{}, err
	}

	w.log.Debug("Indicator results flushed",
		"assessment_id", a.ID,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
	)
	return stats, nil
}
