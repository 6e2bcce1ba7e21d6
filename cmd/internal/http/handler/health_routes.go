package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"go.uber.org/atomic"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type DefaultHealthRoute struct {
	Store   Pinger
	isReady atomic.Bool
}

func NewHealthRoute(store Pinger) *DefaultHealthRoute {
	h := &DefaultHealthRoute{Store: store}
	h.isReady.Store(true)
	return h
}

// Health is kept for the Docker Compose healthcheck.
func (h *DefaultHealthRoute) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *DefaultHealthRoute) Livez(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "alive"})
}

func (h *DefaultHealthRoute) Readyz(c echo.Context) error {
	if !h.isReady.Load() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not ready"})
	}

	if err := h.Store.Ping(c.Request().Context()); err != nil {
		log.Warnf("readiness check failed, store unreachable: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "store unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

// Drain makes /readyz fail so load balancers stop routing here.
// Returns false if the route was already draining.
func (h *DefaultHealthRoute) Drain() bool {
	return h.isReady.Swap(false)
}
