package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
)

// Status maps an error code from domainassignment.Code to an HTTP status.
func Status(code string) int {
	switch code {
	case "VALIDATION_ERROR", "CAPACITY_EXCEEDED", "NO_AGENTS_AVAILABLE":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "CONFLICT":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Write renders err as {"error", "code"} plus the capacity snapshot or the
// validation issues when the error carries them.
func Write(c *gin.Context, err error) {
	code := domainassignment.Code(err)
	status := Status(code)
	body := gin.H{"error": err.Error(), "code": code}

	var capErr *domainassignment.CapacityExceededError
	if errors.As(err, &capErr) {
		body["capacity"] = capErr.Capacity
	}
	var verr *domainassignment.ValidationError
	if errors.As(err, &verr) {
		body["issues"] = verr.Issues
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}

// BadRequest reports a body or query that could not be decoded.
func BadRequest(c *gin.Context, field string, err error) {
	verr := &domainassignment.ValidationError{}
	verr.Add(field, err.Error())
	Write(c, verr)
}
