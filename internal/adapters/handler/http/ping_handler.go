package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

type Pinger interface {
	Ping(ctx context.Context) domain.PingResult
	KeepAlive(ctx context.Context) domain.KeepAliveResult
}

type PingHandler struct {
	svc Pinger
}

func NewPingHandler(svc Pinger) *PingHandler {
	return &PingHandler{svc: svc}
}

func (h *PingHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ping", h.Ping)
	router.GET("/keep-alive", h.KeepAlive)
}

// Ping godoc
// @Summary  Check that the offer store answers
// @Tags     ops
// @Produce  json
// @Success  200  {object}  domain.PingResult
// @Failure  500  {object}  domain.PingResult
// @Router   /ping [get]
func (h *PingHandler) Ping(c *gin.Context) {
	res := h.svc.Ping(c.Request.Context())
	code := http.StatusOK
	if !res.Success {
		code = http.StatusInternalServerError
	}
	c.JSON(code, res)
}

// KeepAlive godoc
// @Summary  Touch the offer store so hosted databases stay awake
// @Tags     ops
// @Produce  json
// @Success  200  {object}  domain.KeepAliveResult
// @Failure  500  {object}  domain.KeepAliveResult
// @Router   /keep-alive [get]
func (h *PingHandler) KeepAlive(c *gin.Context) {
	res := h.svc.KeepAlive(c.Request.Context())
	code := http.StatusOK
	if !res.Success {
		code = http.StatusInternalServerError
	}
	c.JSON(code, res)
}
