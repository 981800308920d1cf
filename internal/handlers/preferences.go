package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/middleware"
	"github.com/charlesng35/notifier/internal/services"
	"github.com/charlesng35/notifier/pkg/errors"
	"github.com/charlesng35/notifier/pkg/response"
)

// PreferenceHandler reads and updates per-channel notification preferences.
type PreferenceHandler struct {
	service *services.PreferenceService
}

// NewPreferenceHandler constructs a preference handler.
func NewPreferenceHandler(service *services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// Get returns the caller's effective preference matrix.
func (h *PreferenceHandler) Get(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	prefs, err := h.service.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	Preferences []services.PreferenceUpdate `json:"preferences" validate:"required,min=1,dive"`
}

// Update upserts the supplied preferences and returns the resulting matrix.
func (h *PreferenceHandler) Update(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updatePreferencesRequest
	if !bindAndValidate(c, &req) {
		return
	}

	prefs, err := h.service.Update(requestContext(c), userID, req.Preferences)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, prefs)
}
