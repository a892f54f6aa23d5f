package delivery

import (
	"net/http"

	"crm-backend/internal/device/repository"
	"crm-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers browsers for push notifications
type DeviceHandler struct {
	deviceRepo repository.DeviceRepository
}

func NewDeviceHandler(deviceRepo repository.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{deviceRepo: deviceRepo}
}

type RegisterRequest struct {
	Token      string `json:"token" form:"token" binding:"required"`
	DeviceInfo string `json:"device_info" form:"device_info"`
}

// Register POST /fcm/register
func (h *DeviceHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, err.Error()))
		return
	}

	if err := h.deviceRepo.Save(req.Token, req.DeviceInfo); err != nil {
		apperrors.Respond(c, apperrors.Wrap(err, "failed to register device"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device registered"})
}

// Unregister DELETE /fcm/:token
func (h *DeviceHandler) Unregister(c *gin.Context) {
	if err := h.deviceRepo.Delete(c.Param("token")); err != nil {
		apperrors.Respond(c, apperrors.Wrap(err, "failed to unregister device"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device unregistered"})
}
