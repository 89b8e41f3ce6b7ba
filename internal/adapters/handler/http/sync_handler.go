package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/livesync"
)

const feedWriteTimeout = 5 * time.Second

// SyncView is the read side of the sync controller.
type SyncView interface {
	State() *livesync.State
	Status() livesync.Status
}

type SyncHandler struct {
	sync    SyncView
	origins []string
	logger  *slog.Logger
}

func NewSyncHandler(sync SyncView, origins []string, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		sync:    sync,
		origins: origins,
		logger:  logger.With("component", "sync_handler"),
	}
}

type offersResponse struct {
	Offers    domain.OfferIndex `json:"offers"`
	Loading   bool              `json:"loading"`
	UpdatedAt time.Time         `json:"updated_at"`
	Sync      livesync.Status   `json:"sync"`
}

func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/offers", h.List)
	router.GET("/offers/feed", h.Feed)
	router.GET("/sync/status", h.Status)
}

// List godoc
// @Summary  Published offers of today and tomorrow
// @Tags     sync
// @Produce  json
// @Param    date  query     string  false  "Restrict to one day (YYYY-MM-DD)"
// @Success  200   {object}  offersResponse
// @Router   /offers [get]
func (h *SyncHandler) List(c *gin.Context) {
	snap := h.sync.State().Snapshot()

	offers := snap.Offers
	if date := c.Query("date"); date != "" {
		if err := domain.ValidateDate(date); err != nil {
			respondError(c, err)
			return
		}
		offers = domain.OfferIndex{}
		if g, ok := snap.Offers[date]; ok {
			offers[date] = g
		}
	}

	c.JSON(http.StatusOK, offersResponse{
		Offers:    offers,
		Loading:   snap.Loading,
		UpdatedAt: snap.UpdatedAt,
		Sync:      h.sync.Status(),
	})
}

// Status godoc
// @Summary  Sync controller status
// @Tags     sync
// @Produce  json
// @Success  200  {object}  livesync.Status
// @Router   /sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.Status())
}

// Feed streams every published snapshot over a websocket, starting with the
// current one. Slow clients skip to the newest snapshot.
func (h *SyncHandler) Feed(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	updates, stop := h.sync.State().Watch()
	defer stop()

	ctx := conn.CloseRead(c.Request.Context())
	h.logger.Debug("Feed client connected", "remote", c.ClientIP())

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Feed client disconnected", "remote", c.ClientIP())
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := h.write(ctx, conn, snap); err != nil {
				h.logger.Debug("Feed write failed", "error", err)
				return
			}
		}
	}
}

func (h *SyncHandler) write(ctx context.Context, conn *websocket.Conn, snap livesync.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, snap)
}
