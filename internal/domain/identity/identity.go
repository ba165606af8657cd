package identity

import (
	"context"
	"net/http"
	"strings"
)

// SystemCaller is used when no upstream identity is attached.
const SystemCaller = "system"

// Headers set by the authenticating proxy in front of the service.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Identity is the caller, already authenticated upstream.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok && id.ID != "" {
		return id
	}
	return Identity{ID: SystemCaller}
}

// FromHeaders reads the trusted identity headers. A missing id yields the
// system caller.
func FromHeaders(h http.Header) Identity {
	id := strings.TrimSpace(h.Get(HeaderUserID))
	if id == "" {
		return Identity{ID: SystemCaller, Role: strings.TrimSpace(h.Get(HeaderUserRole))}
	}
	return Identity{ID: id, Role: strings.TrimSpace(h.Get(HeaderUserRole))}
}
