package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/followerscart/backend/internal/config"
	"github.com/followerscart/backend/internal/uploads"
	"github.com/gin-gonic/gin"
)

type UploadPresigner interface {
	PresignPut(ctx context.Context, filename, contentType string) (uploads.PresignedUpload, error)
}

type UploadsHandler struct {
	presigner UploadPresigner
}

func NewUploadsHandler(presigner UploadPresigner) *UploadsHandler {
	return &UploadsHandler{presigner: presigner}
}

type PresignUploadRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required"`
}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// Presign hands the admin a short-lived URL to upload a post image straight
// to the bucket; the API never proxies the bytes.
func (h *UploadsHandler) Presign(ctx *gin.Context) {
	var req PresignUploadRequest

	if !BindJSON(ctx, &req) {
		return
	}

	ct := strings.ToLower(strings.TrimSpace(req.ContentType))

	if _, ok := allowedImageTypes[ct]; !ok {
		RespondBadRequest(ctx, "Unsupported image type", gin.H{"contentType": ct})
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	up, err := h.presigner.PresignPut(cctx, req.Filename, ct)

	if err != nil {
		RespondInternal(ctx, "Could not create upload URL")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"upload": up})
}
