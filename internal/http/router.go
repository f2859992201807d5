package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/riskwarning-backend/internal/http/handlers"
	httpMW "github.com/yungbote/riskwarning-backend/internal/http/middleware"
	"github.com/yungbote/riskwarning-backend/internal/observability"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

const metricsPath = "/metrics"

type RouterConfig struct {
	Log               *logger.Logger
	Metrics           *observability.Metrics
	ServiceName       string
	HealthHandler     *httpH.HealthHandler
	AssessmentHandler *httpH.AssessmentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, metricsPath))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	r.GET(metricsPath, gin.WrapH(cfg.Metrics.Handler()))

	api := r.Group("/api")
	{
		if cfg.AssessmentHandler != nil {
			api.POST("/projects/:projectId/assessments", cfg.AssessmentHandler.RunProjectAssessment)
			api.GET("/projects/:projectId/assessments", cfg.AssessmentHandler.ListProjectAssessments)
			api.POST("/behaviors/process", cfg.AssessmentHandler.ProcessBehavior)
			api.GET("/assessments/:assessmentId/results", cfg.AssessmentHandler.GetResults)
		}
	}

	return r
}
