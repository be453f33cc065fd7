package api

import (
	"net/http"

	intakeHandler "intake-server/internal/intake/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router        *gin.RouterGroup
	intakeHandler intakeHandler.Handler
}

func New(router *gin.RouterGroup, intakeHandler intakeHandler.Handler) API {
	return API{
		router:        router,
		intakeHandler: intakeHandler,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api")
	{
		phoneGroup := apiGroup.Group("/phone")
		// Twilio posts call webhooks but GET is handy for manual checks
		phoneGroup.GET("/incoming-call", a.intakeHandler.HandleIncomingCall)
		phoneGroup.POST("/incoming-call", a.intakeHandler.HandleIncomingCall)
		phoneGroup.GET("/media-stream", a.intakeHandler.HandleMediaStream)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
