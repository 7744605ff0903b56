package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cybergutta/akademitrack-agent/internal/dto"
	"github.com/cybergutta/akademitrack-agent/internal/service"
	"github.com/cybergutta/akademitrack-agent/pkg/response"
)

type automationService interface {
	Start(ctx context.Context) error
	Stop() error
	Status() dto.AutomationStatus
}

type notificationReader interface {
	Recent() []service.Notification
}

// AutomationHandler exposes the monitoring loop on the control API.
type AutomationHandler struct {
	// baseCtx owns background runs so they outlive the HTTP request that
	// started them.
	baseCtx       context.Context
	service       automationService
	notifications notificationReader
}

// NewAutomationHandler builds the handler.
func NewAutomationHandler(baseCtx context.Context, svc automationService, notifications notificationReader) *AutomationHandler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &AutomationHandler{baseCtx: baseCtx, service: svc, notifications: notifications}
}

// Status reports the current loop snapshot.
func (h *AutomationHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status())
}

// Start launches a monitoring run.
func (h *AutomationHandler) Start(c *gin.Context) {
	if err := h.service.Start(h.baseCtx); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, h.service.Status())
}

// Stop cancels the running loop.
func (h *AutomationHandler) Stop(c *gin.Context) {
	if err := h.service.Stop(); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Notifications lists recently emitted notifications.
func (h *AutomationHandler) Notifications(c *gin.Context) {
	if h.notifications == nil {
		response.JSON(c, http.StatusOK, []service.Notification{})
		return
	}
	response.JSON(c, http.StatusOK, h.notifications.Recent())
}
