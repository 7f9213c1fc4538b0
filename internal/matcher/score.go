package matcher

import (
	"math"
	"sort"

	"davinci-allocation/internal/domain"
)

const (
	baseScore               = 100.0
	defaultSubjectExpertise = 3.0
	defaultAverageRating    = 4.0
)

// Score ranks candidates for allocation, best first. Candidates with equal scores keep
// their input order. Each result carries the full candidate record plus its score.
//
// Starting from 100 points:
//   - active students: >30 -20, 20-30 -10, <10 +10
//   - subject expertise (1-5, default 3): (expertise-3)*5
//   - schedule compatibility (0-1): compatibility*20
//   - average rating (1-5, default 4.0): (rating-4.0)*10
func Score(candidates []domain.TeacherInfo, allocation domain.Allocation, compat ScheduleCompatibility) []domain.ScoredTeacher {
	scored := make([]domain.ScoredTeacher, 0, len(candidates))
	for _, teacher := range candidates {
		c := compat.Compatibility(teacher.Availability, allocation.StudentAvailability)
		scored = append(scored, domain.ScoredTeacher{
			TeacherInfo: teacher.Clone(),
			Score:       scoreTeacher(teacher, c),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func scoreTeacher(teacher domain.TeacherInfo, compatibility float64) float64 {
	score := baseScore

	students := 0
	if teacher.ActiveStudents != nil {
		students = *teacher.ActiveStudents
	}
	switch {
	case students > 30:
		score -= 20
	case students >= 20:
		score -= 10
	case students < 10:
		score += 10
	}

	expertise := defaultSubjectExpertise
	if teacher.SubjectExpertise != nil {
		expertise = *teacher.SubjectExpertise
	}
	score += (expertise - 3) * 5

	score += clamp01(compatibility) * 20

	rating := defaultAverageRating
	if teacher.AverageRating != nil {
		rating = *teacher.AverageRating
	}
	score += (rating - 4.0) * 10

	return math.Round(score*100) / 100
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
