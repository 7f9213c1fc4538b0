package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"davinci-allocation/internal/directory"
	"davinci-allocation/internal/domain"
	"davinci-allocation/internal/matcher"
	"davinci-allocation/internal/notify"

	"go.uber.org/zap"
)

// ErrTeacherNotFound the directory has no teacher with the requested id.
var ErrTeacherNotFound = errors.New("teacher not found")

// StartResult outcome of starting an allocation.
type StartResult struct {
	Allocation *domain.Allocation `json:"allocation"`
	ChildIDs   []string           `json:"child_ids"`
}

// MatchingService the staff workflow: start, match, invite, confirm.
type MatchingService struct {
	allocations *AllocationService
	matcher     *matcher.Matcher
	directory   directory.Directory
	notifier    notify.Notifier
	logger      *zap.Logger
}

func NewMatchingService(
	allocations *AllocationService,
	m *matcher.Matcher,
	dir directory.Directory,
	notifier notify.Notifier,
	logger *zap.Logger,
) *MatchingService {
	return &MatchingService{
		allocations: allocations,
		matcher:     m,
		directory:   dir,
		notifier:    notifier,
		logger:      logger,
	}
}

// Start assigns staff and splits a multi-subject allocation into per-subject children.
// Returns nil when the allocation does not exist.
func (s *MatchingService) Start(ctx context.Context, id, staffMember string) (*StartResult, error) {
	started, err := s.allocations.Start(ctx, id, staffMember)
	if err != nil || started == nil {
		return nil, err
	}
	childIDs, err := s.allocations.Split(ctx, id)
	if err != nil {
		return nil, err
	}
	current, err := s.allocations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StartResult{Allocation: current, ChildIDs: childIDs}, nil
}

// Match scores the directory's candidates and attaches them. When the directory cannot be
// reached an empty list is attached.
func (s *MatchingService) Match(ctx context.Context, id string) (*domain.Allocation, error) {
	a, err := s.allocations.Get(ctx, id)
	if err != nil || a == nil {
		return nil, err
	}

	matches, err := s.matcher.FindMatchingTeachers(ctx, *a)
	if err != nil {
		s.logger.Warn("Teacher matching failed, attaching no candidates",
			zap.String("allocation_id", id),
			zap.Error(err),
		)
		matches = []domain.ScoredTeacher{}
	}
	return s.allocations.AttachMatches(ctx, id, matches)
}

// Invite sends an invitation to each distinct teacher and records the ones the directory
// accepted. Returns the recorded teacher ids.
func (s *MatchingService) Invite(ctx context.Context, id string, teacherIDs []string) ([]string, error) {
	a, err := s.allocations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return []string{}, nil
	}

	recorded := []string{}
	for _, teacherID := range teacherIDs {
		if slices.Contains(recorded, teacherID) {
			continue
		}
		ok, err := s.directory.SendInvitation(ctx, *a, teacherID)
		if err != nil || !ok {
			s.logger.Warn("Invitation not sent",
				zap.String("allocation_id", id),
				zap.String("teacher_id", teacherID),
				zap.Error(err),
			)
			continue
		}
		if _, err := s.allocations.RecordInvite(ctx, id, teacherID); err != nil {
			return recorded, err
		}
		recorded = append(recorded, teacherID)
	}
	return recorded, nil
}

// Confirm fetches the teacher's snapshot, completes the allocation with it, then notifies.
// A notification failure is logged and does not undo the confirmation.
func (s *MatchingService) Confirm(ctx context.Context, id, teacherID string) (*domain.Allocation, error) {
	teacher, err := s.directory.GetTeacherInfo(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, fmt.Errorf("%w: %s", ErrTeacherNotFound, teacherID)
	}

	confirmed, err := s.allocations.ConfirmTeacher(ctx, id, *teacher)
	if err != nil || confirmed == nil {
		return confirmed, err
	}

	if err := s.notifier.NotifyConfirmed(ctx, *confirmed, *teacher); err != nil {
		s.logger.Error("Confirmation notification failed",
			zap.String("allocation_id", id),
			zap.String("teacher_id", teacherID),
			zap.Error(err),
		)
	}
	return confirmed, nil
}

// Workload returns nil when the directory does not know the teacher.
func (s *MatchingService) Workload(ctx context.Context, teacherID string) (*domain.WorkloadInfo, error) {
	return s.directory.GetTeacherWorkload(ctx, teacherID)
}

// Student returns nil when the directory does not know the student.
func (s *MatchingService) Student(ctx context.Context, studentID string) (*domain.StudentInfo, error) {
	return s.directory.GetStudentInfo(ctx, studentID)
}

// AddStudentSubject forwards a subject to the student's directory record.
func (s *MatchingService) AddStudentSubject(ctx context.Context, studentID string, subject map[string]any) (bool, error) {
	added, err := s.directory.AddSubject(ctx, studentID, subject)
	if err != nil {
		return false, err
	}
	s.logger.Info("Subject added to student", zap.String("student_id", studentID), zap.Bool("added", added))
	return added, nil
}
