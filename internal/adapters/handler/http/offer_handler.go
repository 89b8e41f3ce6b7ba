package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/services"
)

const maxUploadBytes = 10 << 20

type OfferHandler struct {
	svc *services.OfferService
}

func NewOfferHandler(svc *services.OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

type offerRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Supervisor  string `json:"supervisor"`
	ImageURL    string `json:"image_url"`
	Visible     *bool  `json:"visible"`
}

func (r offerRequest) input() services.OfferInput {
	return services.OfferInput{
		Title:       r.Title,
		Description: r.Description,
		Time:        r.Time,
		Location:    r.Location,
		Supervisor:  r.Supervisor,
		ImageURL:    r.ImageURL,
		Visible:     r.Visible,
	}
}

type createOfferRequest struct {
	Date string `json:"date" binding:"required"`
	offerRequest
}

type visibilityRequest struct {
	Current *bool `json:"current" binding:"required"`
}

type idResponse struct {
	ID string `json:"id"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// RegisterRoutes mounts the read routes on router and the mutating ones on
// writes, which usually carries the rate limiter.
func (h *OfferHandler) RegisterRoutes(router, writes *gin.RouterGroup) {
	router.GET("/offers/:id", h.Get)

	offers := writes.Group("/offers")
	{
		offers.POST("", h.Create)
		offers.PUT("/:id", h.Update)
		offers.DELETE("/:id", h.Delete)
		offers.POST("/:id/visibility", h.ToggleVisibility)
		offers.POST("/:id/image", h.UploadImage)
	}
}

// Create godoc
// @Summary  Add an offer
// @Tags     offers
// @Accept   json
// @Produce  json
// @Param    offer  body      createOfferRequest  true  "Offer"
// @Success  201    {object}  idResponse
// @Failure  400    {object}  errorResponse
// @Router   /offers [post]
func (h *OfferHandler) Create(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	id, err := h.svc.AddOffer(c.Request.Context(), req.Date, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, idResponse{ID: id})
}

// Get godoc
// @Summary  Get an offer
// @Tags     offers
// @Produce  json
// @Param    id   path      string  true  "Offer ID"
// @Success  200  {object}  domain.Offer
// @Failure  404  {object}  errorResponse
// @Router   /offers/{id} [get]
func (h *OfferHandler) Get(c *gin.Context) {
	offer, err := h.svc.GetOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// Update godoc
// @Summary  Replace the editable fields of an offer
// @Tags     offers
// @Accept   json
// @Param    id     path  string        true  "Offer ID"
// @Param    offer  body  offerRequest  true  "Offer"
// @Success  204
// @Failure  400  {object}  errorResponse
// @Failure  404  {object}  errorResponse
// @Router   /offers/{id} [put]
func (h *OfferHandler) Update(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.svc.UpdateOffer(c.Request.Context(), c.Param("id"), req.input()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete godoc
// @Summary  Delete an offer and its image
// @Tags     offers
// @Param    id  path  string  true  "Offer ID"
// @Success  204
// @Failure  404  {object}  errorResponse
// @Router   /offers/{id} [delete]
func (h *OfferHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteOffer(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleVisibility godoc
// @Summary  Flip the visibility of an offer
// @Tags     offers
// @Accept   json
// @Param    id    path  string             true  "Offer ID"
// @Param    body  body  visibilityRequest  true  "Visibility the client currently shows"
// @Success  204
// @Failure  404  {object}  errorResponse
// @Router   /offers/{id}/visibility [post]
func (h *OfferHandler) ToggleVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.svc.ToggleVisibility(c.Request.Context(), c.Param("id"), *req.Current); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImage godoc
// @Summary  Upload an image for an offer
// @Tags     offers
// @Accept   multipart/form-data
// @Produce  json
// @Param    id    path      string  true  "Offer ID"
// @Param    file  formData  file    true  "Image"
// @Success  201   {object}  urlResponse
// @Failure  400   {object}  errorResponse
// @Failure  409   {object}  errorResponse
// @Router   /offers/{id}/image [post]
func (h *OfferHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.svc.UploadImage(c.Request.Context(), c.Param("id"), fh.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, urlResponse{URL: url})
}
