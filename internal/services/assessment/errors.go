package assessment

import (
	"errors"
	"fmt"

	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/persist"
	apperrors "github.com/yungbote/riskwarning-backend/internal/pkg/errors"
)

var (
	ErrMissingProject       = fmt.Errorf("missing project id: %w", apperrors.ErrInvalidArgument)
	ErrMissingBehavior      = fmt.Errorf("missing behavior: %w", apperrors.ErrInvalidArgument)
	ErrNoBehaviors          = fmt.Errorf("no behaviors found for project: %w", apperrors.ErrInvalidArgument)
	ErrNoBehaviorsProcessed = fmt.Errorf("no behaviors processed: %w", apperrors.ErrInvalidArgument)
	ErrAssessmentNotFound   = fmt.Errorf("assessment %w", apperrors.ErrNotFound)

	// ErrPersistFailed wraps every fatal write failure; the assessment is marked failed.
	ErrPersistFailed        = errors.New("assessment persistence failed")
	ErrAssessmentTransition = errors.New("assessment status transition rejected")

	ErrConcurrentResultWrite = persist.ErrConcurrentResultWrite
)
