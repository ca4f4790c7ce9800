package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/config"
	"github.com/DphenomenalALU/class-mate/internal/escalation"
	"github.com/DphenomenalALU/class-mate/internal/httpapi/handlers"
	"github.com/DphenomenalALU/class-mate/internal/httpapi/middleware"
	"github.com/DphenomenalALU/class-mate/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, notifier escalation.Notifier) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, rds, notifier)

	r.GET("/ping", h.Ping)

	// captcha + accounts
	r.POST("/captcha", h.SendCaptcha)
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	// student-facing queue (keyed by an anonymous per-device client id)
	r.POST("/queue/request", h.RequestQueueAdmission)
	r.POST("/queue/complete", h.CompleteQueueEntry)
	r.POST("/queue/cancel", h.CancelQueueEntry)
	r.GET("/queue/status", h.GetQueueStatus)

	// sessions + escalation raise (reachable from the live session page)
	r.POST("/sessions", h.StartSession)
	r.POST("/sessions/:id/end", h.EndSession)
	r.GET("/sessions", h.ListSessions)
	r.POST("/escalations", h.CreateEscalation)

	// assistants are public to read
	r.GET("/assistants", h.ListAssistants)
	r.GET("/assistants/:id", h.GetAssistant)

	// facilitator dashboard (JWT required)
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	facGroup := authGroup.Group("/")
	facGroup.Use(middleware.FacilitatorOnly())
	facGroup.POST("/assistants", h.CreateAssistant)
	facGroup.GET("/escalations", h.ListEscalations)
	facGroup.PATCH("/escalations/:id/resolve", h.ResolveEscalation)

	return r
}
