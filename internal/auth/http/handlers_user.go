package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firekit-dev/firekit/internal/auth"
	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/avatars"
	"github.com/firekit-dev/firekit/internal/logging"
)

// GetProfile returns the current user's profile and, when tracked, presence.
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	uid := auth.UserFirebaseUID(c)

	p, err := h.authService.GetProfile(ctx, uid)
	if err != nil {
		writeError(c, "auth.get_profile", err)
		return
	}

	resp := gin.H{"user": p}
	if h.opts.Presence != nil {
		status, err := h.opts.Presence.Get(ctx, uid)
		if err != nil {
			logging.NewLogger(ctx).LogWarnf("auth.get_presence", "uid=%s error=%v", uid, err)
		} else {
			resp["presence"] = status
		}
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateProfile changes display name and/or photo URL
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req domain.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrEmptyProfileUpdate.Error()})
		return
	}

	h.updateProfile(c, req)
}

// UploadPhoto stores the multipart "photo" file and makes it the profile photo.
func (h *Handler) UploadPhoto(c *gin.Context) {
	if h.avatars == nil {
		writeError(c, "auth.upload_photo", avatars.ErrStorageDisabled)
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing photo"})
		return
	}
	if fh.Size > avatars.MaxBytes {
		writeError(c, "auth.upload_photo", avatars.ErrTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable photo"})
		return
	}
	defer f.Close()

	url, err := h.avatars.Upload(c.Request.Context(), auth.UserFirebaseUID(c), fh.Header.Get("Content-Type"), f)
	if err != nil {
		writeError(c, "auth.upload_photo", err)
		return
	}

	h.updateProfile(c, domain.ProfileUpdate{PhotoURL: &url})
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := h.authService.UpdateUserPassword(c.Request.Context(), auth.CurrentUser(c), req.Password); err != nil {
		writeError(c, "auth.update_password", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) updateProfile(c *gin.Context, update domain.ProfileUpdate) {
	ctx := c.Request.Context()
	current := auth.CurrentUser(c)

	if err := h.authService.UpdateUserProfile(ctx, current, update); err != nil {
		writeError(c, "auth.update_profile", err)
		return
	}
	p, err := h.authService.GetProfile(ctx, current.UID)
	if err != nil {
		writeError(c, "auth.get_profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p})
}
