package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

const testCookie = "sb-access-token"

// staticVerifier accepts exactly the tokens in its map and counts the calls.
type staticVerifier struct {
	sessions map[string]Session
	err      error
	calls    int
}

func (v *staticVerifier) Verify(_ context.Context, token string) (Session, error) {
	v.calls++
	if v.err != nil {
		return Session{}, v.err
	}
	s, ok := v.sessions[token]
	if !ok {
		return Session{}, ErrUnauthenticated
	}
	return s, nil
}

// mapCache is an in-memory SessionCache.
type mapCache struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mapCache) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *mapCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

// newTestRouter protects a single endpoint that echoes the user id of the session.
func newTestRouter(v Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(v, testCookie))
	router.GET("/whoami", func(c *gin.Context) {
		session, _ := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": session.UserID})
	})
	return router
}

func TestMiddlewareAcceptsCookie(t *testing.T) {
	router := newTestRouter(&staticVerifier{sessions: map[string]Session{"good": {UserID: "u-1"}}})

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	request.AddCookie(&http.Cookie{Name: testCookie, Value: "good"})
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "u-1", body["user_id"])
}

func TestMiddlewareAcceptsBearerHeader(t *testing.T) {
	router := newTestRouter(&staticVerifier{sessions: map[string]Session{"good": {UserID: "u-2"}}})

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	request.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

// TestMiddlewareRejects covers a missing token, a rejected token and a failing auth service. All
// of them must end in 401 with the error envelope.
func TestMiddlewareRejects(t *testing.T) {
	cases := []struct {
		name     string
		verifier *staticVerifier
		token    string
	}{
		{"missing token", &staticVerifier{}, ""},
		{"rejected token", &staticVerifier{sessions: map[string]Session{}}, "bad"},
		{"service failure", &staticVerifier{err: errors.New("connection refused")}, "good"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(tc.verifier)
			recorder := httptest.NewRecorder()
			request, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.token != "" {
				request.AddCookie(&http.Cookie{Name: testCookie, Value: tc.token})
			}
			router.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			var envelope model.ErrorEnvelope
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
			assert.NotEmpty(t, envelope.Error.Message)
		})
	}
}

// TestRemoteVerifier runs the verifier against a fake auth service.
func TestRemoteVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": "u-42", "email": "erika@example.com", "role": "authenticated"}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	verifier := NewRemoteVerifier(Config{URL: server.URL + "/", APIKey: "anon-key"}, server.Client())

	session, err := verifier.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: "u-42", Email: "erika@example.com"}, session)

	_, err = verifier.Verify(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = verifier.Verify(context.Background(), "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

// TestCachedVerifier expects the second verification of a token to be served from the cache,
// and rejections never to be cached.
func TestCachedVerifier(t *testing.T) {
	next := &staticVerifier{sessions: map[string]Session{"good": {UserID: "u-7"}}}
	cache := newMapCache()
	verifier := NewCachedVerifier(next, cache, time.Minute)

	for i := 0; i < 2; i++ {
		session, err := verifier.Verify(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "u-7", session.UserID)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, time.Minute, cache.ttls[cacheKey("good")])
	assert.NotContains(t, cacheKey("good"), "good")

	_, err := verifier.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = verifier.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 3, next.calls)
	assert.Len(t, cache.values, 1)
}
