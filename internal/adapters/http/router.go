// Package http is the local control plane: embedding apps drive the
// session over a small REST surface and observe it on an events
// websocket.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/config"
	"github.com/solivar/confab/internal/followme"
	"github.com/solivar/confab/internal/session"
)

// Controller binds the control surface to a live session.
type Controller struct {
	Session *session.Session
	Follow  *followme.Controller
	Hub     *EventHub
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctrl *Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ConfabSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Str("addr", cfg.ControlAddr).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/state", ctrl.handleState)
	api.POST("/chat", ctrl.handleChat)
	api.POST("/display-name", ctrl.handleDisplayName)
	api.POST("/email", ctrl.handleEmail)
	api.POST("/subject", ctrl.handleSubject)
	api.POST("/audio/mute", ctrl.handleAudioMute)
	api.POST("/video/mute", ctrl.handleVideoMute)
	api.POST("/screen-share", ctrl.handleScreenShare)
	api.POST("/raise-hand", ctrl.handleRaiseHand)
	api.POST("/kick", ctrl.handleKick)
	api.POST("/remote-mute", ctrl.handleRemoteMute)
	api.POST("/pin", ctrl.handlePin)
	api.POST("/recording", ctrl.handleRecording)
	api.POST("/dial", ctrl.handleDial)
	api.POST("/shared-video", ctrl.handleSharedVideo)
	api.POST("/follow-me", ctrl.handleFollowMe)
	api.POST("/hangup", ctrl.handleHangup)

	api.GET("/ws/events", func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("events ws upgrade")
			return
		}
		conn := ctrl.Hub.add(ws)
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("event consumer connected")
		// Reads are discarded; the socket exists for the outbound stream
		// and this loop only notices the disconnect.
		go func() {
			defer ctrl.Hub.remove(conn)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	return r
}
