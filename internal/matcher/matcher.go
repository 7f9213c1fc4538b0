package matcher

import (
	"context"

	"davinci-allocation/internal/domain"

	"go.uber.org/zap"
)

// TeacherSource supplies candidate teachers for a subject.
type TeacherSource interface {
	GetAvailableTeachers(ctx context.Context, subject string) ([]domain.TeacherInfo, error)
}

// Matcher finds and ranks teachers for an allocation.
type Matcher struct {
	source TeacherSource
	compat ScheduleCompatibility
	logger *zap.Logger
}

func NewMatcher(source TeacherSource, compat ScheduleCompatibility, logger *zap.Logger) *Matcher {
	return &Matcher{source: source, compat: compat, logger: logger}
}

// FindMatchingTeachers scores the directory's candidates for the allocation's subject.
// An allocation without any subject yields no candidates and the directory is not asked.
func (m *Matcher) FindMatchingTeachers(ctx context.Context, allocation domain.Allocation) ([]domain.ScoredTeacher, error) {
	subject, ok := allocation.MatchSubject()
	if !ok {
		return []domain.ScoredTeacher{}, nil
	}

	candidates, err := m.source.GetAvailableTeachers(ctx, subject)
	if err != nil {
		return nil, err
	}

	scored := Score(candidates, allocation, m.compat)
	m.logger.Debug("Scored teacher candidates",
		zap.String("allocation_id", allocation.ID),
		zap.String("subject", subject),
		zap.Int("candidates", len(scored)),
	)
	return scored, nil
}
