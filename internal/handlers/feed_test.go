package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"pairlink-server/internal/config"
	"pairlink-server/internal/models"
	"pairlink-server/internal/testutils"
	"pairlink-server/internal/utils"
	"pairlink-server/internal/ws"
)

const feedUserID = "f1e2e3d4-0000-0000-0000-0000000000aa"

func feedTestConfig(environment string) *config.Config {
	return &config.Config{
		Environment:               environment,
		Origin:                    "http://localhost:5173",
		JWTSecret:                 "feed-test-secret",
		JWTRefreshSecret:          "feed-test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
}

func feedToken(t *testing.T, cfg *config.Config, userID string) string {
	t.Helper()

	user := &models.User{BaseModel: models.BaseModel{ID: userID}}
	access, _, err := utils.GenerateTokens(user, cfg)
	if err != nil {
		t.Fatalf("failed to generate token: %s", err)
	}
	return access
}

// newFeedServer serves the feed route on a real listener so tests can dial a
// live websocket. When done is non-nil it is closed once the handler returns.
func newFeedServer(t *testing.T, cfg *config.Config, hub *ws.Hub, done chan struct{}) *httptest.Server {
	t.Helper()

	router := testutils.SetupTestRouter()
	handler := NewFeedHandler(hub, cfg)
	router.GET("/api/v1/ws", func(c *gin.Context) {
		handler.Handle(c)
		if done != nil {
			close(done)
		}
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func feedURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
}

func TestFeedHandle_MissingToken(t *testing.T) {
	cfg := feedTestConfig("development")
	srv := newFeedServer(t, cfg, ws.NewHub(), nil)

	resp, err := http.Get(srv.URL + "/api/v1/ws")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeedHandle_InvalidToken(t *testing.T) {
	cfg := feedTestConfig("development")
	srv := newFeedServer(t, cfg, ws.NewHub(), nil)

	resp, err := http.Get(srv.URL + "/api/v1/ws?token=not-a-jwt")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeedHandle_ProductionAcceptsConfiguredOrigin(t *testing.T) {
	cfg := feedTestConfig("production")
	hub := ws.NewHub()
	srv := newFeedServer(t, cfg, hub, nil)
	token := feedToken(t, cfg, feedUserID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A browser at the configured origin sends the full URL in the Origin
	// header; the upgrade must succeed.
	conn, resp, err := websocket.Dial(ctx, feedURL(srv, token), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{cfg.Origin}},
	})
	if err != nil {
		t.Fatalf("upgrade rejected for the configured origin: %s", err)
	}
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The connection is registered under the token's user id.
	hub.BroadcastToUsers([]string{feedUserID}, ws.Event{Type: ws.EventTypeClearRequest})

	var ev ws.Event
	err = wsjson.Read(ctx, conn, &ev)
	assert.NoError(t, err)
	assert.Equal(t, ws.EventTypeClearRequest, ev.Type)
}

func TestFeedHandle_ProductionRejectsUnknownOrigin(t *testing.T) {
	cfg := feedTestConfig("production")
	srv := newFeedServer(t, cfg, ws.NewHub(), nil)
	token := feedToken(t, cfg, feedUserID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(ctx, feedURL(srv, token), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://elsewhere.example.com"}},
	})
	assert.Error(t, err)
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	if assert.NotNil(t, resp) {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}

func TestFeedHandle_ReturnsOnClientDisconnect(t *testing.T) {
	cfg := feedTestConfig("development")
	hub := ws.NewHub()
	done := make(chan struct{})
	srv := newFeedServer(t, cfg, hub, done)
	token := feedToken(t, cfg, feedUserID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, feedURL(srv, token), nil)
	if err != nil {
		t.Fatalf("failed to dial feed: %s", err)
	}

	// Closing the client side must unblock the handler so the hub
	// registration is cleaned up rather than leaking.
	_ = conn.Close(websocket.StatusNormalClosure, "")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after client disconnect")
	}
}
