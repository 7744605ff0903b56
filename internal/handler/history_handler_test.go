package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergutta/akademitrack-agent/internal/repository"
	appErrors "github.com/cybergutta/akademitrack-agent/pkg/errors"
)

type historyStub struct {
	entries []repository.HistoryEntry
}

func (s *historyStub) List() []repository.HistoryEntry { return s.entries }

type exporterStub struct {
	data        []byte
	contentType string
	filename    string
	err         error
	gotFormat   string
}

func (s *exporterStub) Render(format string) ([]byte, string, string, error) {
	s.gotFormat = format
	return s.data, s.contentType, s.filename, s.err
}

func newHistoryRouter(history *historyStub, exporter *exporterStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHistoryHandler(history, exporter)
	router := gin.New()
	router.GET("/history", h.List)
	router.GET("/history/export", h.Export)
	return router
}

func TestHistoryListEndpoint(t *testing.T) {
	history := &historyStub{entries: []repository.HistoryEntry{
		{SessionKey: "0815-0900", Date: "20250310", Subject: "STU", Start: "08:15", End: "09:00", RegisteredAt: time.Now()},
	}}
	router := newHistoryRouter(history, &exporterStub{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []repository.HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "0815-0900", body.Data[0].SessionKey)
}

func TestHistoryListEndpointEmpty(t *testing.T) {
	router := newHistoryRouter(&historyStub{}, &exporterStub{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))

	require.Equal(t, http.StatusOK, w.Code)
	// An empty history serialises as a JSON array, not null.
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestHistoryExportEndpoint(t *testing.T) {
	exporter := &exporterStub{
		data:        []byte("Date,Subject\n"),
		contentType: "text/csv",
		filename:    "registrations-2025-03-10.csv",
	}
	router := newHistoryRouter(&historyStub{}, exporter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/export?format=csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.gotFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "registrations-2025-03-10.csv")
	assert.Equal(t, "Date,Subject\n", w.Body.String())
}

func TestHistoryExportEndpointDefaultsToCSV(t *testing.T) {
	exporter := &exporterStub{data: []byte("x"), contentType: "text/csv", filename: "f.csv"}
	router := newHistoryRouter(&historyStub{}, exporter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.gotFormat)
}

func TestHistoryExportEndpointBadFormat(t *testing.T) {
	exporter := &exporterStub{err: appErrors.Clone(appErrors.ErrValidation, `unsupported export format "xml"`)}
	router := newHistoryRouter(&historyStub{}, exporter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/export?format=xml", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
