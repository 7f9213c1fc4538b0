package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"davinci-allocation/internal/domain"
	"davinci-allocation/internal/ingest"
	"davinci-allocation/internal/repository"

	"go.uber.org/zap"
)

// ErrInvalidInput intake data failed validation.
var ErrInvalidInput = errors.New("invalid input")

// errUnchanged lets a mutation skip the save.
var errUnchanged = errors.New("unchanged")

// AllocationService allocation lifecycle over an AllocationStore.
// Every mutation holds one exclusive lock across load, mutate and save, so concurrent
// callers never lose each other's updates.
type AllocationService struct {
	store  repository.AllocationStore
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewAllocationService creates the lifecycle service.
func NewAllocationService(store repository.AllocationStore, logger *zap.Logger) *AllocationService {
	return &AllocationService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the intake and appends a new Pending allocation.
func (s *AllocationService) Create(ctx context.Context, in domain.AllocationInput) (*domain.Allocation, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	a := domain.NewAllocation(in, s.now())
	if err := s.store.SaveAll(ctx, append(all, a)); err != nil {
		return nil, err
	}
	s.logger.Info("Allocation created",
		zap.String("allocation_id", a.ID),
		zap.String("student_email", a.StudentEmail),
		zap.Strings("subjects", a.Subjects),
	)
	return &a, nil
}

// Get returns nil when no allocation has the id.
func (s *AllocationService) Get(ctx context.Context, id string) (*domain.Allocation, error) {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(all, id); i >= 0 {
		return &all[i], nil
	}
	return nil, nil
}

// List returns allocations in store order. An empty status lists everything.
func (s *AllocationService) List(ctx context.Context, status domain.Status) ([]domain.Allocation, error) {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := make([]domain.Allocation, 0, len(all))
	for _, a := range all {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

// Start assigns staffMember and moves the allocation to InProgress.
func (s *AllocationService) Start(ctx context.Context, id, staffMember string) (*domain.Allocation, error) {
	updated, _, err := s.mutate(ctx, id, func(a domain.Allocation) (domain.Allocation, []domain.Allocation, error) {
		next, err := a.Start(staffMember, s.now())
		return next, nil, err
	})
	if err == nil && updated != nil {
		s.logger.Info("Allocation started", zap.String("allocation_id", id), zap.String("staff_member", staffMember))
	}
	return updated, err
}

// Split breaks a multi-subject allocation into per-subject children and returns their ids in
// subject order. Missing or single-subject allocations yield an empty list and nothing is written.
func (s *AllocationService) Split(ctx context.Context, id string) ([]string, error) {
	_, children, err := s.mutate(ctx, id, func(a domain.Allocation) (domain.Allocation, []domain.Allocation, error) {
		parent, children := a.Split(s.now())
		if len(children) == 0 {
			return a, nil, errUnchanged
		}
		return parent, children, nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	if len(ids) > 0 {
		s.logger.Info("Allocation split", zap.String("allocation_id", id), zap.Strings("child_ids", ids))
	}
	return ids, nil
}

// AttachMatches replaces the allocation's candidate list.
func (s *AllocationService) AttachMatches(ctx context.Context, id string, matches []domain.ScoredTeacher) (*domain.Allocation, error) {
	updated, _, err := s.mutate(ctx, id, func(a domain.Allocation) (domain.Allocation, []domain.Allocation, error) {
		return a.WithMatches(matches), nil, nil
	})
	return updated, err
}

// RecordInvite adds teacherID to the invited list unless already present.
func (s *AllocationService) RecordInvite(ctx context.Context, id, teacherID string) (*domain.Allocation, error) {
	updated, _, err := s.mutate(ctx, id, func(a domain.Allocation) (domain.Allocation, []domain.Allocation, error) {
		next, added := a.WithInvite(teacherID)
		if !added {
			return a, nil, errUnchanged
		}
		return next, nil, nil
	})
	return updated, err
}

// ConfirmTeacher stores the teacher snapshot and completes the allocation in one write.
func (s *AllocationService) ConfirmTeacher(ctx context.Context, id string, teacher domain.TeacherInfo) (*domain.Allocation, error) {
	updated, _, err := s.mutate(ctx, id, func(a domain.Allocation) (domain.Allocation, []domain.Allocation, error) {
		return a.Confirm(teacher, s.now()), nil, nil
	})
	if err == nil && updated != nil {
		s.logger.Info("Teacher confirmed", zap.String("allocation_id", id), zap.String("teacher_id", teacher.ID))
	}
	return updated, err
}

// Complete marks the allocation Completed.
func (s *AllocationService) Complete(ctx context.Context, id string) (*domain.Allocation, error) {
	updated, _, err := s.mutate(ctx, id, func(a domain.Allocation) (domain.Allocation, []domain.Allocation, error) {
		return a.Complete(s.now()), nil, nil
	})
	return updated, err
}

// SyncFromSpreadsheet imports job forms from an xlsx file. Rows whose student email is already
// stored, or appeared earlier in the file, are skipped, as are rows that fail validation.
// Returns the number of allocations added.
func (s *AllocationService) SyncFromSpreadsheet(ctx context.Context, path string) (int, error) {
	forms, err := ingest.ReadJobFormsFile(path)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(all))
	for _, a := range all {
		seen[strings.ToLower(a.StudentEmail)] = struct{}{}
	}

	added := 0
	now := s.now()
	for _, form := range forms {
		if form.Err != nil {
			s.logger.Warn("Skipping job form row", zap.Int("row", form.Row), zap.Error(form.Err))
			continue
		}
		key := strings.ToLower(form.Input.StudentEmail)
		if _, dup := seen[key]; dup {
			continue
		}
		if err := form.Input.Validate(); err != nil {
			s.logger.Warn("Skipping invalid job form row", zap.Int("row", form.Row), zap.Error(err))
			continue
		}
		seen[key] = struct{}{}
		all = append(all, domain.NewAllocation(form.Input, now))
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := s.store.SaveAll(ctx, all); err != nil {
		return 0, err
	}
	s.logger.Info("Synced job forms", zap.String("path", path), zap.Int("new_allocations", added))
	return added, nil
}

// Statistics summarises the whole allocation set.
func (s *AllocationService) Statistics(ctx context.Context) (Statistics, error) {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(all), nil
}

// mutate applies fn to the allocation with id and saves the set, appending any returned
// allocations. A missing id returns nils and writes nothing.
func (s *AllocationService) mutate(
	ctx context.Context,
	id string,
	fn func(domain.Allocation) (domain.Allocation, []domain.Allocation, error),
) (*domain.Allocation, []domain.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	i := indexOf(all, id)
	if i < 0 {
		s.logger.Debug("Allocation not found", zap.String("allocation_id", id))
		return nil, nil, nil
	}

	next, added, err := fn(all[i])
	if errors.Is(err, errUnchanged) {
		current := all[i]
		return &current, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	all[i] = next
	all = append(all, added...)
	if err := s.store.SaveAll(ctx, all); err != nil {
		return nil, nil, err
	}
	return &next, added, nil
}

func indexOf(all []domain.Allocation, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}
