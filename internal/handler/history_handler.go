package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cybergutta/akademitrack-agent/internal/repository"
	"github.com/cybergutta/akademitrack-agent/pkg/response"
)

type historyService interface {
	List() []repository.HistoryEntry
}

type exportService interface {
	Render(format string) ([]byte, string, string, error)
}

// HistoryHandler exposes the registration history and its exports.
type HistoryHandler struct {
	history  historyService
	exporter exportService
}

// NewHistoryHandler builds the handler.
func NewHistoryHandler(history historyService, exporter exportService) *HistoryHandler {
	return &HistoryHandler{history: history, exporter: exporter}
}

// List returns all recorded registrations, newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	entries := h.history.List()
	if entries == nil {
		entries = []repository.HistoryEntry{}
	}
	response.JSON(c, http.StatusOK, entries)
}

// Export streams the history as a downloadable CSV or PDF document.
func (h *HistoryHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	data, contentType, filename, err := h.exporter.Render(format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
