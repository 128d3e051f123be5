package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campuslink/campuslink-backend/internal/handler"
	"github.com/campuslink/campuslink-backend/internal/middleware"
	"github.com/campuslink/campuslink-backend/pkg/jwt"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	channelHandler *handler.ChannelHandler,
	messageHandler *handler.MessageHandler,
	invitationHandler *handler.InvitationHandler,
	alertHandler *handler.AlertHandler,
	presenceHandler *handler.PresenceHandler,
	wsHandler *handler.WSHandler,
	jwtManager *jwt.Manager,
) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket upgrade carries the token in the query string or header;
	// auth happens before the upgrade.
	router.GET("/ws", middleware.JWTAuth(jwtManager), wsHandler.Connect)

	api := router.Group("/api/v1")

	// Channels
	channels := api.Group("/channels")
	{
		channels.GET("", middleware.OptionalJWTAuth(jwtManager), channelHandler.ListJoinable)
		channels.POST("", middleware.JWTAuth(jwtManager), channelHandler.Create)
		channels.POST("/direct", middleware.JWTAuth(jwtManager), channelHandler.CreateDirectMessage)
		channels.GET("/mine", middleware.JWTAuth(jwtManager), channelHandler.ListMine)
		channels.POST("/auto-join", middleware.JWTAuth(jwtManager), channelHandler.AutoJoin)

		one := channels.Group("/:id", middleware.JWTAuth(jwtManager))
		{
			one.GET("", channelHandler.Get)
			one.POST("/join", channelHandler.Join)
			one.POST("/leave", channelHandler.Leave)
			one.POST("/archive", channelHandler.Archive)
			one.PATCH("/preferences", channelHandler.UpdatePreferences)

			one.GET("/messages", messageHandler.History)
			one.GET("/pins", messageHandler.Pinned)
			one.POST("/read", messageHandler.MarkRead)

			one.POST("/typing", presenceHandler.SetTyping)
			one.GET("/typing", presenceHandler.TypingUsers)
		}
	}

	// Messages
	messages := api.Group("/messages", middleware.JWTAuth(jwtManager))
	{
		messages.POST("", messageHandler.Send)
		messages.PUT("/:id", messageHandler.Edit)
		messages.DELETE("/:id", messageHandler.Delete)
		messages.POST("/:id/pin", messageHandler.Pin)
		messages.DELETE("/:id/pin", messageHandler.Unpin)
		messages.POST("/:id/reactions", messageHandler.React)
		messages.DELETE("/:id/reactions/:emoji", messageHandler.Unreact)
	}

	// Invitations
	invitations := api.Group("/invitations", middleware.JWTAuth(jwtManager))
	{
		invitations.POST("", invitationHandler.Create)
		invitations.GET("/pending", invitationHandler.ListPending)
		invitations.GET("/sent", invitationHandler.ListSent)
		invitations.POST("/:id/accept", invitationHandler.Accept)
		invitations.POST("/:id/decline", invitationHandler.Decline)
		invitations.POST("/:id/cancel", invitationHandler.Cancel)
	}

	// Presence
	presence := api.Group("/presence", middleware.JWTAuth(jwtManager))
	{
		presence.PUT("/status", presenceHandler.SetStatus)
		presence.POST("/heartbeat", presenceHandler.Heartbeat)
		presence.GET("/online", presenceHandler.Online)
		presence.GET("/:user_id", presenceHandler.GetStatus)
	}

	// Alerts (reads + ack for everyone, issuance under /admin)
	alerts := api.Group("/alerts", middleware.JWTAuth(jwtManager))
	{
		alerts.GET("/active", alertHandler.ListActive)
		alerts.GET("/critical", alertHandler.ListCritical)
		alerts.POST("/:id/ack", alertHandler.Acknowledge)
	}

	admin := api.Group("/admin", middleware.JWTAuth(jwtManager))
	{
		admin.POST("/alerts", alertHandler.Create)
		admin.POST("/alerts/emergency", alertHandler.CreateEmergency)
		admin.POST("/alerts/urgent", alertHandler.CreateUrgent)
		admin.POST("/alerts/all-clear", alertHandler.AllClear)
		admin.POST("/alerts/:id/cancel", alertHandler.Cancel)
		admin.POST("/alerts/by-uuid/:uuid/cancel", alertHandler.CancelByUUID)
		admin.POST("/channels/:id/backfill", channelHandler.Backfill)
	}
}
