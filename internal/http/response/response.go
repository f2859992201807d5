package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/riskwarning-backend/internal/platform/ctxutil"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. The request id lets callers quote a
// failed call back to operators.
func RespondError(c *gin.Context, status int, code string, err error) {
	apiErr := APIError{Message: "unknown error", Code: code}
	if err != nil {
		apiErr.Message = err.Error()
	}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		apiErr.RequestID = td.RequestID
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(status, ErrorEnvelope{Error: apiErr})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
