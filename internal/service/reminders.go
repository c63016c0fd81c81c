package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/relationship-service/internal/apierr"
	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

var reminderStatuses = []string{model.StatusActive, model.StatusDismissed, model.StatusCompleted}

// findReminders responds with the user's reminders, soonest first.
//
// With 'upcoming=true' only reminders are listed that are due now or later and that are neither
// dismissed nor completed. 'status' and 'contact_id' narrow the list, 'limit' and 'offset' page
// through it.
//
// REST API calls:
//
//	> curl "http://localhost:8080/api/reminders?upcoming=true"
//	> curl "http://localhost:8080/api/reminders?status=dismissed&limit=5"
func (s *service) findReminders(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	upcoming := false
	if value := c.Query("upcoming"); value != "" {
		var err error
		upcoming, err = strconv.ParseBool(value)
		if err != nil {
			apierr.Abort(c, http.StatusBadRequest, "invalid upcoming parameter")
			return
		}
	}
	status, ok := parseEnum(c, "status", reminderStatuses...)
	if !ok {
		return
	}
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}
	limit, offset, ok := parseLimitAndOffset(c)
	if !ok {
		return
	}

	reminders, err := s.store.ListReminders(c.Request.Context(), user, store.ReminderFilter{
		Upcoming:  upcoming,
		Status:    status,
		ContactID: contactID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		abortWithStoreError(c, err, "reminder not found")
		return
	}
	c.IndentedJSON(http.StatusOK, reminders)
}

// createReminder stores a reminder. 'contact_id' is optional; without 'status' the reminder is
// active.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/reminders --request "POST" --header "Content-Type: application/json" --data '{"type": "follow_up", "message": "Ask about the new job", "reminder_date": "2026-04-01T09:00:00Z"}'
func (s *service) createReminder(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	var newReminder model.Reminder
	if err := c.ShouldBindJSON(&newReminder); err != nil {
		apierr.AbortInvalidBody(c, err)
		return
	}
	if !requireFields(c,
		requirement{"type", present(newReminder.Type)},
		requirement{"message", present(newReminder.Message)},
		requirement{"reminder_date", newReminder.ReminderDate != nil},
	) {
		return
	}

	created, err := s.store.CreateReminder(c.Request.Context(), user, newReminder)
	if err != nil {
		abortWithStoreError(c, err, "reminder not found")
		return
	}
	c.IndentedJSON(http.StatusCreated, created)
}

// findReminderByID responds with a single reminder.
func (s *service) findReminderByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	reminder, err := s.store.GetReminder(c.Request.Context(), user, id)
	if err != nil {
		abortWithStoreError(c, err, "reminder not found")
		return
	}
	c.IndentedJSON(http.StatusOK, reminder)
}

// updateReminderByID changes type, message, reminder_date and status of a reminder. Dismissing
// or completing a reminder is a status update.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/reminders/5e0f3c0e-8f3a-4c2b-a0a4-3f6c0b1d9e22 --request "PATCH" --header "Content-Type: application/json" --data '{"status": "completed"}'
func (s *service) updateReminderByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var submitted model.Reminder
	if err := c.ShouldBindJSON(&submitted); err != nil {
		apierr.AbortInvalidBody(c, err)
		return
	}

	updated, err := s.store.UpdateReminder(c.Request.Context(), user, id, submitted)
	if err != nil {
		abortWithStoreError(c, err, "reminder not found")
		return
	}
	c.IndentedJSON(http.StatusOK, updated)
}

// deleteReminderByID deletes a single reminder.
func (s *service) deleteReminderByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteReminder(c.Request.Context(), user, id); err != nil {
		abortWithStoreError(c, err, "reminder not found")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "reminder deleted"})
}
