// Package api is the thin HTTP surface over the pipeline: it enqueues
// tasks and reads the store, never doing conversion or scoring inline.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/queue"
	"github.com/hothouse/hothouse/internal/store"
)

const (
	healthCheckTimeout   = 2 * time.Second
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// Enqueuer enqueues pipeline tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *queue.Task) (string, error)
}

// Router holds the API dependencies.
type Router struct {
	store    *store.Store
	enqueuer Enqueuer
	redis    redis.UniversalClient
	gatherer prometheus.Gatherer
	logger   logger.Logger
}

// NewRouter creates an API router.
func NewRouter(st *store.Store, enq Enqueuer, rdb redis.UniversalClient, gatherer prometheus.Gatherer, log logger.Logger) *Router {
	return &Router{
		store:    st,
		enqueuer: enq,
		redis:    rdb,
		gatherer: gatherer,
		logger:   log,
	}
}

// SetupRoutes builds the gin engine.
func (r *Router) SetupRoutes(debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", r.healthCheck)
	if r.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	jobs := v1.Group("/jobs/:job_id")
	jobs.POST("/download", r.downloadJob)
	jobs.POST("/rate", r.rateJob)
	jobs.GET("/candidates", r.listCandidates)
	jobs.DELETE("/candidates/:candidate_id", r.rejectCandidate)

	return router
}

// healthCheck reports service and Redis health.
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "hothouse",
	}

	connected := true
	if err := r.redis.Ping(ctx).Err(); err != nil {
		connected = false
		health["status"] = healthStatusDegraded
	}
	health["redis"] = gin.H{"connected": connected}

	c.JSON(200, health)
}
