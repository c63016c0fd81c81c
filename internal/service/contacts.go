package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/relationship-service/internal/apierr"
	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

var contactCategories = []string{"family", "friend", "colleague", "business", "acquaintance", "other"}

// findContacts responds with a list of the user's contacts as JSON.
//
// The URL parameter 'name' is interpreted as the beginning of the contact's name, 'category'
// selects one relationship category.
//
// The URL parameter 'birthday' consists of a month part and a day part, separated by '-'. The call
// returns all contacts that have their birthday on this month and day, regardless of the year.
//
// The URL parameter 'limit' specifies how many contacts matching the search criteria are returned.
// The URL parameter 'offset' specifies how many items from the sorted list of results are skipped
// in the beginning. Together with the 'limit' parameter, one can implement search result paging.
//
// The URL parameter 'orderby' specifies the contact property by which the results shall be sorted.
// Valid values are 'name', 'email', 'category', 'birthday', 'created_at' and 'updated_at'. If this
// URL parameter is not specified, the contacts will be sorted by creation time.
//
// If the URL parameter 'ascending' is set to 'false' then the sort order is reversed.
//
// REST API calls:
//
//	> curl "http://localhost:8080/api/contacts"
//	> curl "http://localhost:8080/api/contacts?name=Eri"
//	> curl "http://localhost:8080/api/contacts?category=family"
//	> curl "http://localhost:8080/api/contacts?birthday=11-29"
//	> curl "http://localhost:8080/api/contacts?limit=20&offset=60"
//	> curl "http://localhost:8080/api/contacts?orderby=birthday&ascending=false"
func (s *service) findContacts(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	category, ok := parseEnum(c, "category", contactCategories...)
	if !ok {
		return
	}
	month, day, ok := parseBirthday(c)
	if !ok {
		return
	}
	limit, offset, ok := parseLimitAndOffset(c)
	if !ok {
		return
	}
	orderby, descending, ok := parseOrderbyAndAscending(c)
	if !ok {
		return
	}

	contacts, err := s.store.ListContacts(c.Request.Context(), user, store.ContactFilter{
		Name:       c.Query("name"),
		Category:   category,
		BirthMonth: month,
		BirthDay:   day,
		Limit:      limit,
		Offset:     offset,
		OrderBy:    orderby,
		Descending: descending,
	})
	if err != nil {
		abortWithStoreError(c, err, "contact not found")
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// createContact inserts the contact specified in the request's JSON. It responds with the full
// contact data including the newly assigned id.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"name": "Erika Mustermann", "category": "friend", "birthday": "1969-03-02T00:00:00+00:00"}'
func (s *service) createContact(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	var newContact model.Contact
	if err := c.ShouldBindJSON(&newContact); err != nil {
		apierr.AbortInvalidBody(c, err)
		return
	}
	if !requireFields(c, requirement{"name", present(newContact.Name)}) {
		return
	}

	created, err := s.store.CreateContact(c.Request.Context(), user, newContact)
	if err != nil {
		abortWithStoreError(c, err, "contact not found")
		return
	}
	c.IndentedJSON(http.StatusCreated, created)
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/0d1c55a1-7e1e-4b8e-9a59-4c1d7d2b6f01
func (s *service) findContactByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := s.store.GetContact(c.Request.Context(), user, id)
	if err != nil {
		abortWithStoreError(c, err, "contact not found")
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// updateContactByID updates the values specified in the JSON (and only those) of the contact
// whose ID value matches the id parameter of the request URL, and finally responds with the new
// version of the contact.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/api/contacts/0d1c55a1-7e1e-4b8e-9a59-4c1d7d2b6f01 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone": "81970"}'
func (s *service) updateContactByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var submitted model.Contact
	if err := c.ShouldBindJSON(&submitted); err != nil {
		apierr.AbortInvalidBody(c, err)
		return
	}
	if submitted.Name != nil && !present(submitted.Name) {
		apierr.AbortWithDetails(c, http.StatusBadRequest, "validation failed",
			[]apierr.FieldError{{Field: "name", Rule: "required"}})
		return
	}

	updated, err := s.store.UpdateContact(c.Request.Context(), user, id, submitted)
	if err != nil {
		abortWithStoreError(c, err, "contact not found")
		return
	}
	c.IndentedJSON(http.StatusOK, updated)
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request
// URL. Interactions with the contact are deleted as well; reminders about the contact are kept
// without a contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/0d1c55a1-7e1e-4b8e-9a59-4c1d7d2b6f01 --request "DELETE"
func (s *service) deleteContactByID(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteContact(c.Request.Context(), user, id); err != nil {
		abortWithStoreError(c, err, "contact not found")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "contact deleted"})
}
