package api

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dorm-occupancy-backend/internal/api/code"
	"dorm-occupancy-backend/internal/api/response"
	"dorm-occupancy-backend/internal/occupancy"
)

const actorKey = "actor"

// Actor headers set by the session layer in front of the service.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc *occupancy.Service
}

// NewHandler creates a new API handler.
func NewHandler(svc *occupancy.Service) *Handler {
	return &Handler{svc: svc}
}

// RequireActor resolves the calling actor from the session headers. Requests without an
// actor id or with an unknown role are rejected with 401. SYSTEM is reserved for
// in-process jobs and never accepted from a client.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		role := occupancy.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderActorRole))))
		if id == "" || !role.Valid() || role == occupancy.RoleSystem {
			response.Fail(c, code.ErrUnauthorized, nil)
			return
		}
		name := strings.TrimSpace(c.GetHeader(HeaderActorName))
		if name == "" {
			name = id
		}
		c.Set(actorKey, occupancy.Actor{ID: id, Name: name, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) occupancy.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(occupancy.Actor); ok {
			return a
		}
	}
	return occupancy.Actor{}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BindError(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	d, err := occupancy.ParseDate(raw)
	if err != nil {
		response.BindError(c, fmt.Sprintf("%s: %v", name, err))
		return nil, false
	}
	return &d, true
}

// queryInstant accepts RFC3339 or a plain date (UTC midnight).
func queryInstant(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	d, err := occupancy.ParseDate(raw)
	if err != nil {
		response.BindError(c, fmt.Sprintf("%s: expected RFC3339 or YYYY-MM-DD", name))
		return nil, false
	}
	return &d, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.BindError(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return n, true
}

// bindOptionalJSON binds the body when there is one; actions such as check-in have none.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.BindError(c, err.Error())
		return false
	}
	return true
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		msg := err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		response.BindError(c, msg)
		return false
	}
	return true
}
