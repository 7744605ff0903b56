package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergutta/akademitrack-agent/internal/models"
)

const testDate = "20250310"

func study(id int, start, end, window string) models.ScheduleItem {
	return models.ScheduleItem{
		ID: id, SubjectCode: "STU", Date: testDate,
		Start: start, End: end, RegistrationWindow: window,
	}
}

func class(id int, subject, start, end string) models.ScheduleItem {
	return models.ScheduleItem{
		ID: id, SubjectCode: subject, Date: testDate,
		Start: start, End: end,
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	pairs := [][2]models.ScheduleItem{
		{study(1, "10:00", "10:45", ""), class(2, "MAT", "10:15", "11:00")},
		{study(1, "10:00", "10:45", ""), class(2, "MAT", "11:00", "12:00")},
		{study(1, "08:00", "09:00", ""), class(2, "NOR", "08:59", "09:30")},
	}
	for _, pair := range pairs {
		assert.Equal(t, Overlaps(pair[0], pair[1]), Overlaps(pair[1], pair[0]))
	}
}

func TestOverlapsBoundaryTouchIsNotOverlap(t *testing.T) {
	a := study(1, "08:00", "09:00", "")
	b := class(2, "MAT", "09:00", "10:00")
	assert.False(t, Overlaps(a, b))

	c := class(3, "NOR", "08:59", "09:30")
	assert.True(t, Overlaps(a, c))
}

func TestOverlapsFailsOpenOnUnparsableTimes(t *testing.T) {
	broken := models.ScheduleItem{ID: 1, SubjectCode: "STU", Date: testDate, Start: "banana", End: "10:00"}
	ok := class(2, "MAT", "08:00", "12:00")
	assert.False(t, Overlaps(broken, ok))
	assert.False(t, Overlaps(ok, broken))
}

func TestValidStudySessionsAllValid(t *testing.T) {
	resolver := NewOverlapResolver(nil)
	items := []models.ScheduleItem{
		study(1, "10:00", "10:45", "09:45 - 10:00"),
		study(2, "13:00", "13:45", "12:45 - 13:00"),
		class(3, "MAT", "11:00", "12:00"),
	}

	valid := resolver.ValidStudySessions(items, testDate)
	require.Len(t, valid, 2)
	assert.Equal(t, 1, valid[0].ID)
	assert.Equal(t, 2, valid[1].ID)
}

func TestValidStudySessionsExcludesConflicting(t *testing.T) {
	resolver := NewOverlapResolver(nil)
	items := []models.ScheduleItem{
		study(1, "10:00", "10:45", "09:45 - 10:00"),
		study(2, "13:00", "13:45", "12:45 - 13:00"),
		class(3, "MAT", "10:15", "10:45"),
	}

	valid := resolver.ValidStudySessions(items, testDate)
	require.Len(t, valid, 1)
	assert.Equal(t, 2, valid[0].ID)
}

func TestValidStudySessionsIgnoresOtherDates(t *testing.T) {
	resolver := NewOverlapResolver(nil)
	tomorrow := study(1, "10:00", "10:45", "")
	tomorrow.Date = "20250311"

	valid := resolver.ValidStudySessions([]models.ScheduleItem{tomorrow}, testDate)
	assert.Empty(t, valid)
	assert.Equal(t, 0, resolver.StudySessionCount([]models.ScheduleItem{tomorrow}, testDate))
}

func TestValidStudySessionsStableStartOrder(t *testing.T) {
	resolver := NewOverlapResolver(nil)
	items := []models.ScheduleItem{
		study(2, "13:00", "13:45", ""),
		study(1, "10:00", "10:45", ""),
		study(3, "08:15", "09:00", ""),
	}

	valid := resolver.ValidStudySessions(items, testDate)
	require.Len(t, valid, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{valid[0].ID, valid[1].ID, valid[2].ID})
}

func TestStudySessionCount(t *testing.T) {
	resolver := NewOverlapResolver(nil)
	items := []models.ScheduleItem{
		study(1, "10:00", "10:45", ""),
		study(2, "13:00", "13:45", ""),
		class(3, "MAT", "10:00", "10:45"),
	}
	assert.Equal(t, 2, resolver.StudySessionCount(items, testDate))
}
