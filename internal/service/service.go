package service

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/apierr"
	"gitlab.com/dirk.krummacker/relationship-service/internal/assistant"
	"gitlab.com/dirk.krummacker/relationship-service/internal/auth"
	"gitlab.com/dirk.krummacker/relationship-service/internal/insight"
	"gitlab.com/dirk.krummacker/relationship-service/internal/logx"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

// Options holds everything the router needs.
type Options struct {
	Store      *store.Store
	Verifier   auth.Verifier
	CookieName string
	Assistant  *assistant.Assistant
	Insights   *insight.Generator
	// RequestLogging turns the access log on. GIN_LOGGING=off turns it off.
	RequestLogging bool
}

// service carries the dependencies of the route handlers.
type service struct {
	store     *store.Store
	assistant *assistant.Assistant
	insights  *insight.Generator
}

var registerTagNameOnce sync.Once

// SetupHttpRouter initializes the REST API router and registers all endpoints. Everything below
// /api requires an authenticated session.
func SetupHttpRouter(o Options) *gin.Engine {
	registerTagNameOnce.Do(useJSONFieldNames)

	router := gin.New()
	if o.RequestLogging {
		router.Use(logx.AccessLog(log.Logger))
	} else {
		log.Info().Msg("Turning off HTTP request logging.")
	}
	router.Use(gin.Recovery())

	s := &service{store: o.Store, assistant: o.Assistant, insights: o.Insights}
	router.GET("/healthz", s.health)

	api := router.Group("/api", auth.Middleware(o.Verifier, o.CookieName))

	api.GET("/contacts", s.findContacts)
	api.POST("/contacts", s.createContact)
	api.GET("/contacts/:id", s.findContactByID)
	api.PUT("/contacts/:id", s.updateContactByID)
	api.DELETE("/contacts/:id", s.deleteContactByID)

	api.GET("/interactions", s.findInteractions)
	api.POST("/interactions", s.createInteraction)
	api.GET("/interactions/:id", s.findInteractionByID)
	api.PATCH("/interactions/:id", s.updateInteractionByID)
	api.DELETE("/interactions/:id", s.deleteInteractionByID)

	api.GET("/reminders", s.findReminders)
	api.POST("/reminders", s.createReminder)
	api.GET("/reminders/:id", s.findReminderByID)
	api.PATCH("/reminders/:id", s.updateReminderByID)
	api.DELETE("/reminders/:id", s.deleteReminderByID)

	api.POST("/ai/chat", s.chat)
	api.GET("/ai/insights", s.generateInsights)
	return router
}

// useJSONFieldNames makes validation errors report the JSON names of the fields.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// health answers 200 as long as the database is reachable.
//
// Example REST API call:
//
//	> curl http://localhost:8080/healthz
func (s *service) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("database ping failed")
		apierr.Abort(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

// userID returns the id of the authenticated user. The auth middleware guarantees a session
// below /api.
func userID(c *gin.Context) (string, bool) {
	session, ok := auth.FromContext(c.Request.Context())
	if !ok || session.UserID == "" {
		apierr.Abort(c, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return session.UserID, true
}

// parseID validates the id parameter of the request URL. Anything that is not a UUID cannot
// name a record, so the request is answered with NOT FOUND without asking the database.
func parseID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierr.Abort(c, http.StatusNotFound, "invalid id parameter")
		return "", false
	}
	return id.String(), true
}

// abortWithStoreError maps the errors of the store onto HTTP status codes.
func abortWithStoreError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		apierr.Abort(c, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrUnknownContact):
		apierr.Abort(c, http.StatusBadRequest, "unknown contact")
	case errors.Is(err, store.ErrNoChanges):
		apierr.Abort(c, http.StatusBadRequest, "no values to be updated")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("database operation failed")
		apierr.Abort(c, http.StatusInternalServerError, "internal server error")
	}
}

// requirement states whether a field that is mandatory on creation was supplied.
type requirement struct {
	field    string
	supplied bool
}

// requireFields answers 400 if one of the mandatory fields was not supplied. It returns false in
// that case.
func requireFields(c *gin.Context, requirements ...requirement) bool {
	var missing []apierr.FieldError
	for _, r := range requirements {
		if !r.supplied {
			missing = append(missing, apierr.FieldError{Field: r.field, Rule: "required"})
		}
	}
	if len(missing) > 0 {
		apierr.AbortWithDetails(c, http.StatusBadRequest, "validation failed", missing)
		return false
	}
	return true
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
