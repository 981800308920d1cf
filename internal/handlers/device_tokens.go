package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/middleware"
	"github.com/charlesng35/notifier/internal/services"
	"github.com/charlesng35/notifier/pkg/errors"
	"github.com/charlesng35/notifier/pkg/response"
)

// DeviceTokenHandler registers and removes push device tokens.
type DeviceTokenHandler struct {
	service *services.DeviceTokenService
}

// NewDeviceTokenHandler constructs a device token handler.
func NewDeviceTokenHandler(service *services.DeviceTokenService) *DeviceTokenHandler {
	return &DeviceTokenHandler{service: service}
}

// Register stores a device token for the caller.
func (h *DeviceTokenHandler) Register(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req services.RegisterDeviceInput
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.service.Register(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, token)
}

type unregisterDeviceRequest struct {
	DeviceToken string `json:"device_token" validate:"notblank"`
}

// Unregister removes a device token. Unknown tokens are not an error.
func (h *DeviceTokenHandler) Unregister(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req unregisterDeviceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	removed, err := h.service.Unregister(requestContext(c), userID, req.DeviceToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}
