package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-inventory-api/internal/service"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/response"
)

type imageService interface {
	VerifyToken(token, id string) (string, error)
	Open(ctx context.Context, id, variant string) (*service.ImageObject, error)
}

// ImageHandler streams stored equipment pictures behind signed links.
type ImageHandler struct {
	service imageService
}

// NewImageHandler constructs an ImageHandler.
func NewImageHandler(svc imageService) *ImageHandler {
	return &ImageHandler{service: svc}
}

// Serve godoc
// @Summary Download image
// @Description Streams an image addressed by a signed link; the token selects the original or the thumbnail
// @Tags Images
// @Produce image/jpeg,image/png,image/gif
// @Param id path string true "Image ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /images/{id} [get]
func (h *ImageHandler) Serve(c *gin.Context) {
	id := c.Param("id")
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "image token required"))
		return
	}

	variant, err := h.service.VerifyToken(token, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	obj, err := h.service.Open(c.Request.Context(), id, variant)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer obj.Body.Close()

	c.Header("Cache-Control", "private, max-age=300")
	c.Header("X-Content-Type-Options", "nosniff")
	if obj.Image != nil {
		c.Header("ETag", strconv.Quote(obj.Image.MD5Hash+"-"+variant))
	}
	c.DataFromReader(http.StatusOK, -1, obj.ContentType, obj.Body, nil)
}
