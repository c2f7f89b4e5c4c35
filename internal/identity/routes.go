package identity

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches the authentication surface to the router.
func RegisterRoutes(router *gin.Engine, h *Handler) {
	api := router.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/verify-challenge", h.VerifyChallenge)
		api.GET("/metrics", h.Metrics)

		authed := api.Group("")
		authed.Use(h.RequireAuth())
		{
			authed.GET("/user", h.CurrentUser)
			authed.POST("/logout", h.Logout)
			authed.POST("/apikeys", h.CreateAPIKey)
			authed.GET("/apikeys", h.ListAPIKeys)
			authed.GET("/user/history", h.LoginHistory)
		}
	}
}
