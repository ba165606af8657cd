package lead

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/lead-router/internal/domain/identity"
	leadsvc "github.com/alanyang/lead-router/internal/service/lead"
	"github.com/alanyang/lead-router/internal/transport/httperr"
)

func Register(rg *gin.RouterGroup, svc *leadsvc.Service) {
	rg.GET("/:id", getLead(svc))
	rg.POST("/:id/assign", assignLead(svc))
	rg.POST("/:id/reassign", reassignLead(svc))
}

func getLead(svc *leadsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, l)
	}
}

func assignLead(svc *leadsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req leadsvc.AssignInput
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "body", err)
			return
		}

		ctx := c.Request.Context()
		res, err := svc.Assign(ctx, identity.FromContext(ctx).ID, c.Param("id"), req)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func reassignLead(svc *leadsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req leadsvc.ReassignInput
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "body", err)
			return
		}

		ctx := c.Request.Context()
		res, err := svc.Reassign(ctx, identity.FromContext(ctx).ID, c.Param("id"), req)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
