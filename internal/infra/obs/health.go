package obs

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// HealthHandlers exposes liveness and readiness endpoints. Readiness fails when
// any named check fails.
type HealthHandlers struct {
	Checks map[string]Check
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	failed := gin.H{}
	for name, check := range h.Checks {
		if check == nil {
			continue
		}
		if err := check(c.Request.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// ErrDisconnected is returned by connection checks that are not yet up.
var ErrDisconnected = errors.New("not connected")

// Connected adapts a connection flag to a Check.
func Connected(up func() bool) Check {
	return func(context.Context) error {
		if !up() {
			return ErrDisconnected
		}
		return nil
	}
}
