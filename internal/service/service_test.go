package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/relationship-service/internal/assistant"
	"gitlab.com/dirk.krummacker/relationship-service/internal/auth"
	"gitlab.com/dirk.krummacker/relationship-service/internal/insight"
	"gitlab.com/dirk.krummacker/relationship-service/internal/llm"
	"gitlab.com/dirk.krummacker/relationship-service/internal/prompt"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

// maxInt is the largest possible int value, the store's "no limit".
const maxInt = int(^uint(0) >> 1)

const (
	testCookieName  = "sb-access-token"
	validToken      = "valid-token"
	testUserID      = "9b2f6a86-2c55-4d84-9d0b-6a3f7f0f6d11"
	testContactID   = "0d1c55a1-7e1e-4b8e-9a59-4c1d7d2b6f01"
	testGeneratedID = "5e0f3c0e-8f3a-4c2b-a0a4-3f6c0b1d9e22"

	contactColumns     = "id, user_id, name, email, phone, category, birthday, notes, created_at, updated_at"
	interactionColumns = "id, user_id, contact_id, type, occurred_at, location, duration_minutes, notes, created_at, updated_at"
	reminderColumns    = "id, user_id, contact_id, type, message, reminder_date, status, created_at, updated_at"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// tokenVerifier knows exactly one valid token.
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (auth.Session, error) {
	if token != validToken {
		return auth.Session{}, auth.ErrUnauthenticated
	}
	return auth.Session{UserID: testUserID}, nil
}

// scriptedModel answers with the given completions in order.
type scriptedModel struct {
	completions []llm.Completion
}

func (m *scriptedModel) Complete(context.Context, []llm.Message, []llm.Tool) (llm.Completion, error) {
	next := m.completions[0]
	m.completions = m.completions[1:]
	return next, nil
}

func (m *scriptedModel) CompleteJSON(context.Context, []llm.Message, llm.ResponseSchema) (string, error) {
	return `{"insights": []}`, nil
}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// expectPreparedStatements instructs the mock object to expect that all statements of the store
// are being prepared.
func expectPreparedStatements(mock sqlmock.Sqlmock) {
	for _, table := range []string{"contacts", "interactions", "reminders"} {
		mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO " + table))
		mock.ExpectPrepare(regexp.QuoteMeta("FROM " + table + " WHERE id = ? AND user_id = ?"))
		mock.ExpectPrepare(regexp.QuoteMeta("DELETE FROM " + table + " WHERE id = ? AND user_id = ?"))
	}
}

// expectSingleContactSelect instructs the mock object to expect that a select statement for a
// single contact will be executed.
func expectSingleContactSelect(mock sqlmock.Sqlmock, id string, name string, phone string) {
	rows := mock.NewRows(columns(contactColumns)).
		AddRow(id, testUserID, name, nil, phone, "friend", nil, nil, fixedNow, fixedNow)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id = ? AND user_id = ?")).
		WithArgs(id, testUserID).
		WillReturnRows(rows)
}

// initializeService sets up the service with the mock database and returns a handle to the gin
// engine against which requests can be executed. A nil model means that no model is configured.
func initializeService(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, chatModel llm.ChatModel) *gin.Engine {
	expectPreparedStatements(mock)
	st, err := store.New(db,
		store.WithClock(func() time.Time { return fixedNow }),
		store.WithIDGenerator(func() string { return testGeneratedID }),
	)
	require.NoError(t, err)
	registry, err := assistant.NewRegistry(assistant.Tools(st)...)
	require.NoError(t, err)

	gin.SetMode(gin.ReleaseMode)
	return SetupHttpRouter(Options{
		Store:      st,
		Verifier:   tokenVerifier{},
		CookieName: testCookieName,
		Assistant:  assistant.New(chatModel, registry, prompt.MustLoad(), assistant.Config{}),
		Insights:   insight.New(st, chatModel, prompt.MustLoad()),
	})
}

// runTest executes the HTTP request with the specified arguments as the test user and returns
// the response.
func runTest(router *gin.Engine, method string, url string, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	request.AddCookie(&http.Cookie{Name: testCookieName, Value: validToken})
	router.ServeHTTP(recorder, request)
	return recorder
}

func columns(list string) []string {
	return strings.Split(list, ", ")
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func errorMessage(t *testing.T, recorder *httptest.ResponseRecorder) model.ErrorBody {
	var envelope model.ErrorEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Error
}

// TestHealth expects the health check to answer without authentication.
func TestHealth(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	expectMet(t, mock)
}

// TestUnauthenticated executes a request without a session. It expects 401 and no SQL.
func TestUnauthenticated(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/api/contacts", nil)
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.NotEmpty(t, errorMessage(t, recorder).Message)
	expectMet(t, mock)
}

// TestGetAll executes a GET request for all contacts of the user. It expects that the JSON for a
// list of contacts is returned.
func TestGetAll(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	// Define expectations on SQL statements
	rows := mock.NewRows(columns(contactColumns)).
		AddRow("c1", testUserID, "Aaron", nil, "+420 111", "family", time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), nil, fixedNow, fixedNow).
		AddRow("c2", testUserID, "Berta", nil, "+420 222", "friend", nil, nil, fixedNow, fixedNow).
		AddRow("c3", testUserID, "Carla", nil, "+420 333", nil, nil, nil, fixedNow, fixedNow)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE user_id = ? ORDER BY created_at ASC, id LIMIT ? OFFSET ?")).
		WithArgs(testUserID, int64(maxInt), int64(0)).
		WillReturnRows(rows)

	// Run test and compare results
	recorder := runTest(router, "GET", "/api/contacts", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	var contacts []map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	require.Len(t, contacts, 3)
	assert.Equal(t, "Aaron", contacts[0]["name"])
	assert.Equal(t, "1970-01-01T00:00:00Z", contacts[0]["birthday"])
	assert.Equal(t, "Berta", contacts[1]["name"])
	assert.Equal(t, "Carla", contacts[2]["name"])
	assert.NotContains(t, contacts[2], "category")
	expectMet(t, mock)
}

// TestGetAllWithParameters passes every URL parameter of the contact list to the query.
func TestGetAllWithParameters(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM contacts WHERE user_id = ? AND name LIKE ? AND category = ? AND MONTH(birthday) = ? AND DAY(birthday) = ? ORDER BY birthday DESC, id LIMIT ? OFFSET ?")).
		WithArgs(testUserID, "Er%", "friend", int64(11), int64(29), int64(20), int64(60)).
		WillReturnRows(mock.NewRows(columns(contactColumns)))

	recorder := runTest(router, "GET", "/api/contacts?name=Er&category=friend&birthday=11-29&limit=20&offset=60&orderby=birthday&ascending=false", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	expectMet(t, mock)
}

// TestGetAllEmpty expects an empty JSON list, not an error, if the user has no contacts.
func TestGetAllEmpty(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE user_id = ?")).
		WillReturnRows(mock.NewRows(columns(contactColumns)))

	recorder := runTest(router, "GET", "/api/contacts", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, "[]", recorder.Body.String())
	expectMet(t, mock)
}

// TestGetAllInvalidParameters expects BAD REQUEST for malformed URL parameters, without any
// query being sent to the database.
func TestGetAllInvalidParameters(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	for _, query := range []string{
		"birthday=1129",
		"birthday=13-01",
		"birthday=xx-yy",
		"limit=0",
		"limit=ten",
		"offset=-1",
		"orderby=password",
		"ascending=maybe",
		"category=enemy",
	} {
		recorder := runTest(router, "GET", "/api/contacts?"+query, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code, query)
	}
	expectMet(t, mock)
}

// TestCreate executes a POST request that creates a contact. The response must echo the input and
// carry the generated id and the timestamps.
func TestCreate(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	birthday := time.Date(1969, time.March, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contacts")).
		WithArgs(testGeneratedID, testUserID, "Erika Mustermann", "erika@example.com", "+49 0815 4711", "friend", birthday, "met in Berlin", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	input := `{"name": "Erika Mustermann", "email": "erika@example.com", "phone": "+49 0815 4711", "category": "friend", "birthday": "1969-03-02T00:00:00Z", "notes": "met in Berlin"}`
	recorder := runTest(router, "POST", "/api/contacts", input)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(input), &sent))
	for field, value := range sent {
		assert.Equal(t, value, body[field], field)
	}
	assert.Equal(t, testGeneratedID, body["id"])
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["created_at"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["updated_at"])
	expectMet(t, mock)
}

// TestCreateInvalid expects BAD REQUEST for request bodies that cannot be stored.
func TestCreateInvalid(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	cases := []struct {
		body    string
		message string
		field   string
	}{
		{`{"phone": "0815"}`, "validation failed", "name"},
		{`{"name": "  "}`, "validation failed", "name"},
		{`{"name": "Hans", "email": "not-an-address"}`, "validation failed", "email"},
		{`{"name": "Hans", "category": "enemy"}`, "validation failed", "category"},
		{`{"name": "Hans", "birthday": "yesterday"}`, "invalid JSON", ""},
		{`{"name": `, "invalid JSON", ""},
	}
	for _, tc := range cases {
		recorder := runTest(router, "POST", "/api/contacts", tc.body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, tc.body)
		body := errorMessage(t, recorder)
		assert.Equal(t, tc.message, body.Message, tc.body)
		if tc.field != "" {
			details, _ := body.Details.([]interface{})
			require.Len(t, details, 1, tc.body)
			assert.Equal(t, tc.field, details[0].(map[string]interface{})["field"], tc.body)
		}
	}
	expectMet(t, mock)
}

// TestGet executes a GET request for a single contact with a valid ID. It expects that the JSON
// for the contact is returned.
func TestGet(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	expectSingleContactSelect(mock, testContactID, "Erika Mustermann", "+49 0815 4711")

	recorder := runTest(router, "GET", "/api/contacts/"+testContactID, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, testContactID, body["id"])
	assert.Equal(t, "Erika Mustermann", body["name"])
	assert.Equal(t, "+49 0815 4711", body["phone"])
	expectMet(t, mock)
}

// TestGetUnknownID executes a GET request with a well-formed ID that does not exist for the user.
// It expects NOT FOUND.
func TestGetUnknownID(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id = ? AND user_id = ?")).
		WithArgs(testContactID, testUserID).
		WillReturnRows(mock.NewRows(columns(contactColumns)))

	recorder := runTest(router, "GET", "/api/contacts/"+testContactID, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "contact not found", errorMessage(t, recorder).Message)
	expectMet(t, mock)
}

// TestMalformedID executes requests with IDs that are no UUIDs. They must be answered with NOT
// FOUND without touching the database.
func TestMalformedID(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	for _, request := range []struct{ method, url string }{
		{"GET", "/api/contacts/29"},
		{"PUT", "/api/contacts/abc"},
		{"DELETE", "/api/contacts/1;DROP"},
		{"GET", "/api/interactions/42"},
		{"PATCH", "/api/interactions/x"},
		{"GET", "/api/reminders/0"},
		{"DELETE", "/api/reminders/-1"},
	} {
		recorder := runTest(router, request.method, request.url, `{"notes": "x"}`)
		assert.Equal(t, http.StatusNotFound, recorder.Code, request.url)
	}
	expectMet(t, mock)
}

// TestUpdate executes a PUT request that changes the phone number only.
func TestUpdate(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE contacts SET phone = ?, updated_at = ? WHERE id = ? AND user_id = ?")).
		WithArgs("81970", fixedNow, testContactID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectSingleContactSelect(mock, testContactID, "Erika Mustermann", "81970")

	recorder := runTest(router, "PUT", "/api/contacts/"+testContactID, `{"phone": "81970"}`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "81970", body["phone"])
	assert.Equal(t, "Erika Mustermann", body["name"])
	expectMet(t, mock)
}

// TestUpdateNothing executes a PUT request without values. It expects BAD REQUEST and no SQL.
func TestUpdateNothing(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	recorder := runTest(router, "PUT", "/api/contacts/"+testContactID, `{}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "no values to be updated", errorMessage(t, recorder).Message)

	recorder = runTest(router, "PUT", "/api/contacts/"+testContactID, ``)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	expectMet(t, mock)
}

// TestUpdateUnknownID expects NOT FOUND if the update touches no row.
func TestUpdateUnknownID(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE contacts SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	recorder := runTest(router, "PUT", "/api/contacts/"+testContactID, `{"name": "Hans"}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	expectMet(t, mock)
}

// TestDelete executes a DELETE request for an existing contact.
func TestDelete(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contacts WHERE id = ? AND user_id = ?")).
		WithArgs(testContactID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recorder := runTest(router, "DELETE", "/api/contacts/"+testContactID, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"message": "contact deleted"}`, recorder.Body.String())
	expectMet(t, mock)
}

// TestDeleteUnknownID executes a DELETE request for a contact that does not exist. It expects
// NOT FOUND, not OK.
func TestDeleteUnknownID(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contacts WHERE id = ? AND user_id = ?")).
		WithArgs(testContactID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	recorder := runTest(router, "DELETE", "/api/contacts/"+testContactID, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "contact not found", errorMessage(t, recorder).Message)
	expectMet(t, mock)
}

// TestDatabaseFailure expects INTERNAL SERVER ERROR, not a panic, if the database fails.
func TestDatabaseFailure(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeService(t, db, mock, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE user_id = ?")).
		WillReturnError(sql.ErrConnDone)

	recorder := runTest(router, "GET", "/api/contacts", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "internal server error", errorMessage(t, recorder).Message)
	expectMet(t, mock)
}
