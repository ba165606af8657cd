package bulk

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/lead-router/internal/domain/identity"
	bulksvc "github.com/alanyang/lead-router/internal/service/bulk"
	"github.com/alanyang/lead-router/internal/transport/httperr"
)

// IdempotencyHeader lets clients retry a bulk call without applying it twice.
const IdempotencyHeader = "Idempotency-Key"

func Register(rg *gin.RouterGroup, svc *bulksvc.Service) {
	rg.POST("/update", bulkUpdate(svc))
	rg.POST("/assign", bulkAssign(svc))
}

func bulkUpdate(svc *bulksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulksvc.UpdateInput
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "body", err)
			return
		}
		req.IdempotencyKey = c.GetHeader(IdempotencyHeader)

		ctx := c.Request.Context()
		res, err := svc.Update(ctx, identity.FromContext(ctx).ID, req)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func bulkAssign(svc *bulksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulksvc.AssignInput
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "body", err)
			return
		}
		req.IdempotencyKey = c.GetHeader(IdempotencyHeader)

		ctx := c.Request.Context()
		res, err := svc.Assign(ctx, identity.FromContext(ctx).ID, req)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
