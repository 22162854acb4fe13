package restapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"portfolio_bridge/internal/domain/entity"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxRequestBody = 1 << 20

// APIResponse is the envelope of every successful response.
type APIResponse struct {
	Data          any                     `json:"data"`
	ServiceErrors []entity.PortfolioError `json:"service_errors,omitempty"`
	StatusMessage string                  `json:"status_message,omitempty"`
}

// APIError is the body of every failed response.
type APIError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, APIResponse{Data: data, StatusMessage: message})
}

// respondError maps core errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	body := APIError{Error: err.Error(), Kind: entity.ErrorKind(err)}

	var valErr *entity.ValidationError
	if errors.As(err, &valErr) {
		body.Field = valErr.Field
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrWalletNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrExecutionInFlight), errors.Is(err, entity.ErrQuoteAlreadyExecuted):
		status = http.StatusConflict
	case errors.Is(err, entity.ErrOrchestratorClosed):
		status = http.StatusServiceUnavailable
	case valErr != nil:
		status = http.StatusBadRequest
	case entity.IsRecoverable(err):
		status = http.StatusBadGateway
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the request body into dst.
func bindJSON(c *gin.Context, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		return &entity.ValidationError{Field: "body", Reason: "unreadable request body", Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &entity.ValidationError{Field: "body", Reason: fmt.Sprintf("invalid JSON: %v", err), Err: err}
	}
	return nil
}
