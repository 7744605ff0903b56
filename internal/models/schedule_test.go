package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"08:15", 8*time.Hour + 15*time.Minute},
		{"0815", 8*time.Hour + 15*time.Minute},
		{"915", 9*time.Hour + 15*time.Minute},
		{"00:00", 0},
		{"23:59", 23*time.Hour + 59*time.Minute},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "x", "25:00", "08:75", "8", "ab:cd", "12345"} {
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}

func TestParseWindow(t *testing.T) {
	open, closeAt, err := ParseWindow("09:00 - 09:15")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour, open)
	assert.Equal(t, 9*time.Hour+15*time.Minute, closeAt)

	_, _, err = ParseWindow("09:00-09:15")
	assert.Error(t, err)

	_, _, err = ParseWindow("")
	assert.Error(t, err)
}

func TestSessionKeyNormalizesClockFormat(t *testing.T) {
	colon := ScheduleItem{Start: "08:15", End: "09:00"}
	plain := ScheduleItem{Start: "0815", End: "0900"}
	assert.Equal(t, "0815-0900", colon.SessionKey())
	assert.Equal(t, colon.SessionKey(), plain.SessionKey())
}

func TestIsStudySession(t *testing.T) {
	assert.True(t, ScheduleItem{SubjectCode: "STU"}.IsStudySession())
	assert.True(t, ScheduleItem{SubjectCode: "STU2"}.IsStudySession())
	assert.False(t, ScheduleItem{SubjectCode: "MAT"}.IsStudySession())
}

func TestClockOf(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 15, 30, 0, time.UTC)
	assert.Equal(t, 9*time.Hour+15*time.Minute+30*time.Second, ClockOf(at))
}

func TestDateString(t *testing.T) {
	assert.Equal(t, "20250310", DateString(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
}
