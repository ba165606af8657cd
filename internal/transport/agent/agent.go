package agent

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	agentsvc "github.com/alanyang/lead-router/internal/service/agent"
	"github.com/alanyang/lead-router/internal/transport/httperr"
)

func Register(rg *gin.RouterGroup, svc *agentsvc.Service) {
	rg.GET("", listAgents(svc))
	rg.GET("/:id/capacity", getCapacity(svc))
	rg.PATCH("/:id/capacity", updateCapacity(svc))
	rg.POST("/:id/recount", recount(svc))
}

func listAgents(svc *agentsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in agentsvc.ListInput
		if v := c.Query("include_capacity"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				httperr.BadRequest(c, "include_capacity", err)
				return
			}
			in.IncludeCapacity = b
		}
		in.Status = c.Query("status")

		res, err := svc.List(c.Request.Context(), in)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func getCapacity(svc *agentsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agent_id": a.ID, "capacity": a.Capacity})
	}
}

func updateCapacity(svc *agentsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentsvc.UpdateCapacityInput
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "body", err)
			return
		}

		a, err := svc.UpdateCapacity(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agent": a})
	}
}

func recount(svc *agentsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := svc.Recount(c.Request.Context(), c.Param("id"))
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agent": a})
	}
}
