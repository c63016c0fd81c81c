// Package apierr writes the JSON error envelope used by every endpoint.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

// FieldError names a request field and the validation rule it violated.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Abort stops the handler chain and responds with the error envelope.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.ErrorEnvelope{Error: model.ErrorBody{Message: message}})
}

// AbortWithDetails is like Abort but attaches details to the envelope.
func AbortWithDetails(c *gin.Context, status int, message string, details interface{}) {
	c.AbortWithStatusJSON(status, model.ErrorEnvelope{
		Error: model.ErrorBody{Message: message, Details: details},
	})
}

// AbortInvalidBody responds with 400 after a failed bind. Validation failures are listed per
// field; anything else (malformed JSON, wrong types) gets a generic message.
func AbortInvalidBody(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		AbortWithDetails(c, http.StatusBadRequest, "validation failed", fields)
		return
	}
	Abort(c, http.StatusBadRequest, "invalid JSON")
}
