package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyang/lead-router/internal/domain/identity"
	agentsvc "github.com/alanyang/lead-router/internal/service/agent"
	bulksvc "github.com/alanyang/lead-router/internal/service/bulk"
	leadsvc "github.com/alanyang/lead-router/internal/service/lead"

	agenthandler "github.com/alanyang/lead-router/internal/transport/agent"
	bulkhandler "github.com/alanyang/lead-router/internal/transport/bulk"
	leadhandler "github.com/alanyang/lead-router/internal/transport/lead"
)

// Pinger reports store reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	LeadSvc  *leadsvc.Service
	BulkSvc  *bulksvc.Service
	AgentSvc *agentsvc.Service

	Store    Pinger
	Gatherer prometheus.Gatherer
	MCP      http.Handler

	CORSAllowed    string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(cors.New(corsConfig(d.CORSAllowed)))
	r.Use(Identity())
	r.Use(Timeout(d.RequestTimeout))

	r.GET("/healthz", func(c *gin.Context) {
		if d.Store != nil {
			if err := d.Store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.MCP != nil {
		r.Any("/mcp", gin.WrapH(d.MCP))
	}

	api := r.Group("/api")

	leads := api.Group("/leads")
	bulkhandler.Register(leads.Group("/bulk"), d.BulkSvc)
	leadhandler.Register(leads, d.LeadSvc)
	agenthandler.Register(api.Group("/agents"), d.AgentSvc)

	return r
}

func corsConfig(allowed string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			RequestIDHeader, identity.HeaderUserID, identity.HeaderUserRole, bulkhandler.IdempotencyHeader,
			"Mcp-Session-Id",
		},
		ExposeHeaders:    []string{RequestIDHeader, "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if allowed == "" || allowed == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{allowed}
	}
	return cfg
}
