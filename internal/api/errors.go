package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

type errorBody struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

type errorDetail struct {
	Category   string                 `json:"category"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// StatusFor maps an error category to an HTTP status
func StatusFor(err error) int {
	rerr, ok := errors.AsReconcilerError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch rerr.Category {
	case errors.CategoryValidation, errors.CategoryParse:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryIO:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	body := errorBody{RequestID: c.GetString(requestIDKey)}

	if rerr, ok := errors.AsReconcilerError(err); ok {
		body.Error = errorDetail{
			Category:   string(rerr.Category),
			Code:       string(rerr.Code),
			Message:    rerr.Message,
			Suggestion: rerr.Suggestion,
		}
		if status < 500 {
			body.Error.Context = rerr.Context
		}
	} else {
		body.Error = errorDetail{
			Category: string(errors.CategoryInternal),
			Code:     string(errors.CodeUnexpectedError),
			Message:  err.Error(),
		}
	}

	log := s.logger.WithError(err).WithFields(logger.Fields{
		"request_id": body.RequestID,
		"status":     status,
		"category":   body.Error.Category,
	})
	if status >= 500 {
		log.Error("Request error")
	} else {
		log.Debug("Request error")
	}

	c.AbortWithStatusJSON(status, body)
}
