package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/riskwarning-backend/internal/http/response"
	apperrors "github.com/yungbote/riskwarning-backend/internal/pkg/errors"
	"github.com/yungbote/riskwarning-backend/internal/platform/ctxutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/services/assessment"
	"github.com/yungbote/riskwarning-backend/internal/temporalx/assessrun"
)

var errAsyncUnavailable = fmt.Errorf("background execution is not configured: %w", apperrors.ErrUnavailable)

const (
	headerActorID    = "X-Actor-Id"
	defaultListLimit = 20
	maxListLimit     = 200
)

// AssessmentStarter launches an assessment in the background and returns the
// workflow and run ids.
type AssessmentStarter interface {
	Start(ctx context.Context, in assessrun.Input) (string, string, error)
}

type AssessmentHandler struct {
	log     *logger.Logger
	svc     assessment.Service
	starter AssessmentStarter
}

// NewAssessmentHandler accepts a nil starter; async requests then answer 503.
func NewAssessmentHandler(log *logger.Logger, svc assessment.Service, starter AssessmentStarter) *AssessmentHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AssessmentHandler{log: log.With("handler", "AssessmentHandler"), svc: svc, starter: starter}
}

type runAssessmentRequest struct {
	ActorID string `json:"actor_id"`
}

// POST /api/projects/:projectId/assessments
func (h *AssessmentHandler) RunProjectAssessment(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil || projectID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", errors.New("invalid project id"))
		return
	}
	var req runAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	actor := actorID(c, req.ActorID)

	if async, _ := strconv.ParseBool(c.DefaultQuery("async", "false")); async {
		if h.starter == nil {
			h.respondServiceError(c, "async_unavailable", errAsyncUnavailable, nil)
			return
		}
		workflowID, runID, err := h.starter.Start(c.Request.Context(), assessrun.Input{ProjectID: projectID.String(), ActorID: actor})
		if err != nil {
			h.log.Error("Start assessment workflow failed", "project_id", projectID, "error", err)
			response.RespondError(c, http.StatusBadGateway, "start_assessment_failed", err)
			return
		}
		response.RespondAccepted(c, gin.H{"workflow_id": workflowID, "run_id": runID, "project_id": projectID})
		return
	}

	out, err := h.svc.ProcessBehaviors(c.Request.Context(), assessment.ProcessInput{ProjectID: projectID, ActorID: actor})
	if err != nil {
		h.respondServiceError(c, "assessment_failed", err, out)
		return
	}
	response.RespondOK(c, gin.H{"result": out})
}

// GET /api/projects/:projectId/assessments
func (h *AssessmentHandler) ListProjectAssessments(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil || projectID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", errors.New("invalid project id"))
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	rows, err := h.svc.ListAssessments(c.Request.Context(), projectID, limit)
	if err != nil {
		h.respondServiceError(c, "list_assessments_failed", err, nil)
		return
	}
	response.RespondOK(c, gin.H{"assessments": rows})
}

// POST /api/behaviors/process
func (h *AssessmentHandler) ProcessBehavior(c *gin.Context) {
	var in assessment.ProcessBehaviorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in.ActorID = actorID(c, in.ActorID)
	out, err := h.svc.ProcessBehavior(c.Request.Context(), in)
	if err != nil {
		h.respondServiceError(c, "process_behavior_failed", err, out)
		return
	}
	response.RespondOK(c, gin.H{"result": out})
}

// GET /api/assessments/:assessmentId/results
func (h *AssessmentHandler) GetResults(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessmentId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_assessment_id", errors.New("invalid assessment id"))
		return
	}
	view, err := h.svc.Results(c.Request.Context(), assessmentID)
	if err != nil {
		h.respondServiceError(c, "results_failed", err, nil)
		return
	}
	response.RespondOK(c, view)
}

func (h *AssessmentHandler) respondServiceError(c *gin.Context, code string, err error, out *assessment.AggregatedResult) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Assessment request failed", "code", code, "error", err)
	}
	if out != nil && out.AssessmentID != uuid.Nil {
		c.Header("X-Assessment-Id", out.AssessmentID.String())
	}
	response.RespondError(c, status, errorCode(err, code), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, assessment.ErrNoBehaviorsProcessed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	case assessment.IsInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error, def string) string {
	switch {
	case errors.Is(err, assessment.ErrMissingProject):
		return "missing_project"
	case errors.Is(err, assessment.ErrMissingBehavior):
		return "missing_behavior"
	case errors.Is(err, assessment.ErrNoBehaviors):
		return "no_behaviors"
	case errors.Is(err, assessment.ErrNoBehaviorsProcessed):
		return "no_behaviors_processed"
	case errors.Is(err, assessment.ErrAssessmentNotFound):
		return "assessment_not_found"
	default:
		return def
	}
}

func actorID(c *gin.Context, fromBody string) string {
	if v := strings.TrimSpace(fromBody); v != "" {
		return v
	}
	if v := ctxutil.ActorID(c.Request.Context()); v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader(headerActorID))
}
