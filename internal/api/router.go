// Package api is the admin HTTP surface over the NPC subsystem.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ambitious/internal/behavior"
	"ambitious/internal/content"
	"ambitious/internal/images"
	"ambitious/internal/metrics"
	"ambitious/internal/schedule"
	"ambitious/internal/store"
)

// Deps are the services the handlers call.
type Deps struct {
	Store      *store.DB
	Generator  *content.Generator
	Publisher  *content.Publisher
	Fleet      *behavior.Fleet
	Providers  content.ProviderFactory
	Images     *images.Pipeline
	Schedule   *schedule.Calculator
	Engagement behavior.Options

	JWTSecret    string
	CORSOrigins  []string
	PublishBatch int
	// LocalImagesDir is served under LocalImagesPath when set.
	LocalImagesDir  string
	LocalImagesPath string
}

type handlers struct {
	Deps
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Schedule == nil {
		d.Schedule = schedule.New(nil)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET("/health", func(c *gin.Context) {
		if err := d.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ambitious-npc"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if d.LocalImagesDir != "" && d.LocalImagesPath != "" {
		r.Static(d.LocalImagesPath, d.LocalImagesDir)
	}

	h := &handlers{Deps: d}
	admin := r.Group("/api/admin")
	admin.Use(AdminAuth(d.JWTSecret))
	{
		admin.GET("/npcs", h.listNPCs)
		admin.POST("/npcs", h.createNPC)
		admin.GET("/npcs/:id", h.getNPC)
		admin.PUT("/npcs/:id", h.updateNPC)
		admin.DELETE("/npcs/:id", h.deleteNPC)

		admin.POST("/npcs/:id/generate", h.generate)
		admin.POST("/npcs/:id/engage", h.engageOne)
		admin.GET("/npcs/:id/schedule", h.schedulePreview)
		admin.GET("/npcs/:id/engagement", h.engagementLog)
		admin.GET("/npcs/:id/engagement/stats", h.engagementStats)
		admin.POST("/npcs/:id/visual-persona", h.visualPersona)
		admin.POST("/npcs/:id/reference-image", h.referenceImage)

		admin.POST("/generate/batch", h.batch)
		admin.POST("/engagement/process", h.processEngagement)

		admin.GET("/queue", h.listQueue)
		admin.POST("/queue/refill", h.refill)
		admin.POST("/queue/publish", h.publish)
		admin.POST("/queue/:id/cancel", h.cancelQueueItem)
	}
	return r
}
