package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/relationship-service/internal/apierr"
	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

var interactionTypes = []string{"call", "meeting", "email", "text", "other"}

// findInteractions responds with the user's interactions, newest first. The URL parameters
// 'contact_id' and 'type' narrow the list, 'limit' and 'offset' page through it.
//
// REST API calls:
//
//	> curl "http://localhost:8080/api/interactions?contact_id=0d1c55a1-7e1e-4b8e-9a59-4c1d7d2b6f01"
//	> curl "http://localhost:8080/api/interactions?type=meeting&limit=10"
func (s *service) findInteractions(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}
	interactionType, ok := parseEnum(c, "type", interactionTypes...)
	if !ok {
		return
	}
	limit, offset, ok := parseLimitAndOffset(c)
	if !ok {
		return
	}

	interactions, err := s.store.ListInteractions(c.Request.Context(), user, store.InteractionFilter{
		ContactID: contactID,
		Type:      interactionType,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		abortWithStoreError(c, err, "interaction not found")
		return
	}
	c.IndentedJSON(http.StatusOK, interactions)
}

// createInteraction logs an interaction with one of the user's contacts. Without 'occurred_at'
// the interaction is dated now.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/interactions --request "POST" --header "Content-Type: application/json" --data '{"contact_id": "0d1c55a1-7e1e-4b8e-9a59-4c1d7d2b6f01", "type": "call", "notes": "talked about the holidays"}'
func (s *service) createInteraction(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	var newInteraction model.Interaction
	if err := c.ShouldBindJSON(&newInteraction); err != nil {
		apierr.AbortInvalidBody(c, err)
		return
	}
	if !requireFields(c,
		requirement{"contact_id", present(newInteraction.ContactID)},
		requirement{"type", present(newInteraction.Type)},
	) {
		return
	}

	created, err := s.store.CreateInteraction(c.Request.Context(), user, newInteraction)
	if err != nil {
		abortWithStoreError(c, err, "interaction not found")
		return
	}
	c.IndentedJSON(http.StatusCreated, created)
}

// findInteractionByID responds with a single interaction.
func (s *service) findInteractionByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	interaction, err := s.store.GetInteraction(c.Request.Context(), user, id)
	if err != nil {
		abortWithStoreError(c, err, "interaction not found")
		return
	}
	c.IndentedJSON(http.StatusOK, interaction)
}

// updateInteractionByID changes type, occurred_at, location, duration_minutes and notes of an
// interaction. Fields absent from the JSON stay as they are. The contact cannot be changed.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/interactions/5e0f3c0e-8f3a-4c2b-a0a4-3f6c0b1d9e22 --request "PATCH" --header "Content-Type: application/json" --data '{"notes": "follow up next week"}'
func (s *service) updateInteractionByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var submitted model.Interaction
	if err := c.ShouldBindJSON(&submitted); err != nil {
		apierr.AbortInvalidBody(c, err)
		return
	}

	updated, err := s.store.UpdateInteraction(c.Request.Context(), user, id, submitted)
	if err != nil {
		abortWithStoreError(c, err, "interaction not found")
		return
	}
	c.IndentedJSON(http.StatusOK, updated)
}

// deleteInteractionByID deletes a single interaction.
func (s *service) deleteInteractionByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteInteraction(c.Request.Context(), user, id); err != nil {
		abortWithStoreError(c, err, "interaction not found")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "interaction deleted"})
}
