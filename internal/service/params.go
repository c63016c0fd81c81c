package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/relationship-service/internal/apierr"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

// allowedAscending are the allowed values for the 'ascending' URL parameter.
var allowedAscending = []string{"true", "false"}

// parseBirthday inspects the 'birthday' URL parameter. It consists of a month part and a day
// part, separated by '-'. Zero values mean that the parameter is absent.
func parseBirthday(c *gin.Context) (month int, day int, success bool) {
	birthday := c.Query("birthday")
	if birthday == "" {
		return 0, 0, true
	}
	before, after, found := strings.Cut(birthday, "-")
	if !found {
		apierr.Abort(c, http.StatusBadRequest, "invalid birthday URL parameter")
		return 0, 0, false
	}
	month, errMonth := strconv.Atoi(before)
	day, errDay := strconv.Atoi(after)
	if errMonth != nil || errDay != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		apierr.Abort(c, http.StatusBadRequest, "invalid birthday URL parameter")
		return 0, 0, false
	}
	return month, day, true
}

// parseLimitAndOffset inspects the URL parameters and determines values for limit and offset of
// the result set. Zero means no limit and no offset.
func parseLimitAndOffset(c *gin.Context) (limit int, offset int, success bool) {
	if value := c.Query("limit"); value != "" {
		var err error
		limit, err = strconv.Atoi(value)
		if err != nil || limit < 1 {
			apierr.Abort(c, http.StatusBadRequest, "invalid limit parameter")
			return 0, 0, false
		}
	}
	if value := c.Query("offset"); value != "" {
		var err error
		offset, err = strconv.Atoi(value)
		if err != nil || offset < 0 {
			apierr.Abort(c, http.StatusBadRequest, "invalid offset parameter")
			return 0, 0, false
		}
	}
	return limit, offset, true
}

// parseOrderbyAndAscending inspects the URL parameters and determines the sort column and
// direction of a contact list.
func parseOrderbyAndAscending(c *gin.Context) (orderby string, descending bool, success bool) {
	orderby = c.Query("orderby")
	if orderby == "" {
		orderby = "created_at"
	}
	if !contains(store.ContactOrderColumns, orderby) {
		apierr.Abort(c, http.StatusBadRequest, "invalid orderby parameter")
		return "", false, false
	}
	ascending := c.Query("ascending")
	if ascending == "" {
		ascending = "true"
	}
	if !contains(allowedAscending, ascending) {
		apierr.Abort(c, http.StatusBadRequest, "invalid ascending parameter")
		return orderby, false, false
	}
	return orderby, ascending == "false", true
}

// parseEnum reads an optional URL parameter that must be one of the allowed values.
func parseEnum(c *gin.Context, name string, allowed ...string) (string, bool) {
	value := c.Query(name)
	if value != "" && !contains(allowed, value) {
		apierr.Abort(c, http.StatusBadRequest, "invalid "+name+" parameter")
		return "", false
	}
	return value, true
}

// parseContactID reads the optional 'contact_id' URL parameter.
func parseContactID(c *gin.Context) (string, bool) {
	value := c.Query("contact_id")
	if value == "" {
		return "", true
	}
	id, err := uuid.Parse(value)
	if err != nil {
		apierr.Abort(c, http.StatusBadRequest, "invalid contact_id parameter")
		return "", false
	}
	return id.String(), true
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}
