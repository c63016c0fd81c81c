package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/apierr"
	"gitlab.com/dirk.krummacker/relationship-service/internal/llm"
	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

// chat hands the user's message to the assistant, which may act on the user's data with tools.
// The response carries the assistant's reply and the tool calls it executed.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/ai/chat --request "POST" --header "Content-Type: application/json" --data '{"message": "Remind me to call Erika next Friday", "history": []}'
func (s *service) chat(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	var request model.ChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		apierr.AbortInvalidBody(c, err)
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		apierr.AbortWithDetails(c, http.StatusBadRequest, "validation failed",
			[]apierr.FieldError{{Field: "message", Rule: "required"}})
		return
	}

	response, err := s.assistant.Reply(c.Request.Context(), user, request.Message, request.History)
	if errors.Is(err, llm.ErrNotConfigured) {
		apierr.Abort(c, http.StatusInternalServerError, "AI assistant is not configured")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", user).Msg("assistant failed")
		apierr.AbortWithDetails(c, http.StatusInternalServerError, "failed to process chat message", err.Error())
		return
	}
	c.IndentedJSON(http.StatusOK, response)
}

// generateInsights responds with 3 to 5 prioritized suggestions about the user's relationships.
// Users without contacts get an empty list.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/ai/insights
func (s *service) generateInsights(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	response, err := s.insights.Generate(c.Request.Context(), user)
	if errors.Is(err, llm.ErrNotConfigured) {
		apierr.Abort(c, http.StatusInternalServerError, "AI insights are not configured")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", user).Msg("insight generation failed")
		apierr.AbortWithDetails(c, http.StatusInternalServerError, "failed to generate insights", err.Error())
		return
	}
	c.IndentedJSON(http.StatusOK, response)
}
