package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title:   "Attendance registrations",
		Headers: []string{"Date", "Subject", "Session"},
		Rows: [][]string{
			{"20250310", "STU", "08:15-09:00"},
			{"20250310", "STU", "10:00-10:45"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)

	expected := "Date,Subject,Session\n20250310,STU,08:15-09:00\n20250310,STU,10:00-10:45\n"
	assert.Equal(t, expected, string(data))
}

func TestCSVRenderPadsShortRows(t *testing.T) {
	report := sampleReport()
	report.Rows = [][]string{{"20250310"}}

	data, err := NewCSVExporter().Render(report)
	require.NoError(t, err)
	assert.Equal(t, "Date,Subject,Session\n20250310,,\n", string(data))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	data, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestPDFRenderRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Report{})
	assert.Error(t, err)
}
