package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"pairlink-server/internal/config"
	"pairlink-server/internal/utils"
	"pairlink-server/internal/ws"
)

// FeedHandler upgrades connections onto the clear-request change feed.
type FeedHandler struct {
	Hub *ws.Hub
	Cfg *config.Config
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(hub *ws.Hub, cfg *config.Config) *FeedHandler {
	return &FeedHandler{Hub: hub, Cfg: cfg}
}

// Handle authenticates and registers a feed connection. Browser WebSocket
// clients cannot set an Authorization header, so the access token travels in
// the token query parameter instead.
func (h *FeedHandler) Handle(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}

	claims, err := utils.ValidateToken(tokenString, h.Cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.Cfg.Environment == "development" {
		// Dev frontends run on a different origin; skip origin verification
		// there only.
		opts.InsecureSkipVerify = true
	} else {
		// OriginPatterns matches against the Origin header's host, not the
		// full URL, so strip the scheme from the configured origin.
		pattern := h.Cfg.Origin
		if u, err := url.Parse(pattern); err == nil && u.Host != "" {
			pattern = u.Host
		}
		opts.OriginPatterns = []string{pattern}
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		return // Accept already wrote the error response
	}

	// The feed is push-only, but reads must continue so control frames are
	// processed. CloseRead's context is cancelled when the connection drops;
	// the request context is not, since the connection is hijacked.
	ctx := conn.CloseRead(c.Request.Context())

	client := h.Hub.AddClient(claims.UserID, conn)
	defer h.Hub.RemoveClient(client)

	// block until the client disconnects
	<-ctx.Done()
}
