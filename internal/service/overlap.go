package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cybergutta/akademitrack-agent/internal/models"
)

// OverlapResolver selects the flexible-study sessions that can actually be
// registered: those that do not time-overlap any regular class on the same
// date. A study period colliding with a taught class means the student is in
// that class, so self-registration would be fraudulent.
type OverlapResolver struct {
	logger *zap.Logger
}

// NewOverlapResolver builds a resolver.
func NewOverlapResolver(logger *zap.Logger) *OverlapResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverlapResolver{logger: logger}
}

// ValidStudySessions returns the study sessions for date that overlap no
// regular class, in stable start-time order. The classification happens in
// two passes: split the day into study and regular sessions, then test each
// candidate against the regular set.
func (r *OverlapResolver) ValidStudySessions(items []models.ScheduleItem, date string) []models.ScheduleItem {
	var study, regular []models.ScheduleItem
	for _, item := range items {
		if item.Date != date {
			continue
		}
		if item.IsStudySession() {
			study = append(study, item)
		} else {
			regular = append(regular, item)
		}
	}

	valid := make([]models.ScheduleItem, 0, len(study))
	for _, candidate := range study {
		if conflict, with := r.findConflict(candidate, regular); conflict {
			r.logger.Sugar().Infow("study session conflicts with class",
				"session", candidate.SessionKey(),
				"class", with.SubjectCode,
				"class_time", with.Start+"-"+with.End)
			continue
		}
		valid = append(valid, candidate)
	}

	sortByStart(valid)
	return valid
}

// StudySessionCount reports how many study sessions exist for date before
// conflict filtering, for completion bookkeeping.
func (r *OverlapResolver) StudySessionCount(items []models.ScheduleItem, date string) int {
	count := 0
	for _, item := range items {
		if item.Date == date && item.IsStudySession() {
			count++
		}
	}
	return count
}

func (r *OverlapResolver) findConflict(candidate models.ScheduleItem, regular []models.ScheduleItem) (bool, models.ScheduleItem) {
	for _, other := range regular {
		if other.ID == candidate.ID {
			continue
		}
		if Overlaps(candidate, other) {
			return true, other
		}
	}
	return false, models.ScheduleItem{}
}

// Overlaps reports whether two sessions' time ranges intersect as open
// intervals: ranges that merely touch at a boundary do not overlap. Sessions
// with unparsable times never overlap anything (fail open; such a session is
// excluded downstream by its own unusable window). The check is symmetric.
func Overlaps(a, b models.ScheduleItem) bool {
	aStart, aEnd, err := a.TimeRange()
	if err != nil {
		return false
	}
	bStart, bEnd, err := b.TimeRange()
	if err != nil {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}

func sortByStart(items []models.ScheduleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		si, erri := models.ParseClock(items[i].Start)
		sj, errj := models.ParseClock(items[j].Start)
		if erri != nil || errj != nil {
			return erri == nil && errj != nil
		}
		return si < sj
	})
}
