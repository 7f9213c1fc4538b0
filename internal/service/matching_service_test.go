package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"davinci-allocation/internal/directory"
	"davinci-allocation/internal/domain"
	"davinci-allocation/internal/matcher"
	"davinci-allocation/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockNotifier struct {
	mock.Mock
}

func (n *mockNotifier) NotifyConfirmed(ctx context.Context, a domain.Allocation, teacher domain.TeacherInfo) error {
	args := n.Called(ctx, a, teacher)
	return args.Error(0)
}

// flakyDirectory wraps a directory, failing selected calls.
type flakyDirectory struct {
	directory.Directory
	failAvailable bool
	rejectInvites map[string]bool
}

func (d *flakyDirectory) GetAvailableTeachers(ctx context.Context, subject string) ([]domain.TeacherInfo, error) {
	if d.failAvailable {
		return nil, fmt.Errorf("%w: connection refused", directory.ErrDirectoryUnavailable)
	}
	return d.Directory.GetAvailableTeachers(ctx, subject)
}

func (d *flakyDirectory) SendInvitation(ctx context.Context, a domain.Allocation, teacherID string) (bool, error) {
	if d.rejectInvites[teacherID] {
		return false, fmt.Errorf("%w: status 500", directory.ErrDirectoryUnavailable)
	}
	return d.Directory.SendInvitation(ctx, a, teacherID)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func newTestMatchingService(t *testing.T) (*MatchingService, *AllocationService, *flakyDirectory, *mockNotifier) {
	t.Helper()
	allocations, _ := newTestAllocationService(t)
	roster := []domain.TeacherInfo{
		{ID: "t001", Name: "Li Wei", Subjects: []string{"Biology"}, ActiveStudents: intPtr(35), SubjectExpertise: floatPtr(5), AverageRating: floatPtr(5)},
		{ID: "t999", Name: "Carrie Cambear", Email: "carrie.cambear@cga.edu", Subjects: []string{"Biology", "Algebra"}, ActiveStudents: intPtr(14)},
	}
	dir := &flakyDirectory{Directory: directory.NewMockDirectory(roster, zap.NewNop()), rejectInvites: map[string]bool{}}
	m := matcher.NewMatcher(dir, matcher.ConstantCompatibility(1.0), zap.NewNop())
	n := &mockNotifier{}
	return NewMatchingService(allocations, m, dir, n, zap.NewNop()), allocations, dir, n
}

func TestMatchingService_StartSplitsMultiSubject(t *testing.T) {
	ctx := context.Background()
	svc, allocations, _, _ := newTestMatchingService(t)

	a, err := allocations.Create(ctx, testInput("s@example.com", "Biology", "Algebra"))
	require.NoError(t, err)

	res, err := svc.Start(ctx, a.ID, "Ms Frizzle")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.ChildIDs, 2)
	assert.Equal(t, domain.StatusCompleted, res.Allocation.Status)
	assert.Equal(t, "Ms Frizzle", res.Allocation.StaffMember)

	missing, err := svc.Start(ctx, "missing", "Ms Frizzle")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMatchingService_Match(t *testing.T) {
	ctx := context.Background()
	svc, allocations, _, _ := newTestMatchingService(t)

	a, err := allocations.Create(ctx, testInput("s@example.com", "Biology"))
	require.NoError(t, err)

	matched, err := svc.Match(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, matched.MatchingTeachers, 2)
	// t001: 100 - 20 + 10 + 20 + 10; t999: 100 + 0 + 0 + 20 + 0
	assert.Equal(t, "t001", matched.MatchingTeachers[0].ID)
	assert.Equal(t, 120.0, matched.MatchingTeachers[0].Score)
	assert.Equal(t, "t999", matched.MatchingTeachers[1].ID)
	assert.Equal(t, 120.0, matched.MatchingTeachers[1].Score)
}

func TestMatchingService_MatchDirectoryDownAttachesEmpty(t *testing.T) {
	ctx := context.Background()
	svc, allocations, dir, _ := newTestMatchingService(t)

	a, err := allocations.Create(ctx, testInput("s@example.com", "Biology"))
	require.NoError(t, err)
	_, err = svc.Match(ctx, a.ID)
	require.NoError(t, err)

	dir.failAvailable = true
	matched, err := svc.Match(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, matched.MatchingTeachers)
}

func TestMatchingService_InviteRecordsOnlySuccesses(t *testing.T) {
	ctx := context.Background()
	svc, allocations, dir, _ := newTestMatchingService(t)
	dir.rejectInvites["t001"] = true

	a, err := allocations.Create(ctx, testInput("s@example.com", "Biology"))
	require.NoError(t, err)

	recorded, err := svc.Invite(ctx, a.ID, []string{"t001", "t999", "t999"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t999"}, recorded)

	got, err := allocations.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t999"}, got.InvitedTeachers)
}

func TestMatchingService_Confirm(t *testing.T) {
	ctx := context.Background()
	svc, allocations, _, n := newTestMatchingService(t)

	a, err := allocations.Create(ctx, testInput("s@example.com", "Biology"))
	require.NoError(t, err)

	n.On("NotifyConfirmed", mock.Anything,
		mock.MatchedBy(func(c domain.Allocation) bool { return c.ID == a.ID && c.Status == domain.StatusCompleted }),
		mock.MatchedBy(func(teacher domain.TeacherInfo) bool { return teacher.ID == "t999" }),
	).Return(nil).Once()

	confirmed, err := svc.Confirm(ctx, a.ID, "t999")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, confirmed.Status)
	assert.Equal(t, "Carrie Cambear", confirmed.ConfirmedTeacher.Name)
	n.AssertExpectations(t)

	_, err = svc.Confirm(ctx, a.ID, "t404")
	assert.ErrorIs(t, err, ErrTeacherNotFound)
}

func TestMatchingService_ConfirmSurvivesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	svc, allocations, _, n := newTestMatchingService(t)
	n.On("NotifyConfirmed", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: smtp down", notify.ErrNotificationFailed))

	a, err := allocations.Create(ctx, testInput("s@example.com", "Biology"))
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, a.ID, "t999")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, confirmed.Status)

	stored, err := allocations.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "t999", stored.ConfirmedTeacher.ID)
}

func TestMatchingService_Workload(t *testing.T) {
	svc, _, _, _ := newTestMatchingService(t)

	w, err := svc.Workload(context.Background(), "t999")
	require.NoError(t, err)
	assert.Equal(t, 21.0, w.HoursPerWeek)

	w, err = svc.Workload(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestMatchingService_MissingAllocation(t *testing.T) {
	svc, _, _, n := newTestMatchingService(t)
	ctx := context.Background()

	matched, err := svc.Match(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, matched)

	recorded, err := svc.Invite(ctx, "missing", []string{"t999"})
	require.NoError(t, err)
	assert.Empty(t, recorded)

	confirmed, err := svc.Confirm(ctx, "missing", "t999")
	require.NoError(t, err)
	assert.Nil(t, confirmed)
	n.AssertNotCalled(t, "NotifyConfirmed", mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, errors.Is(err, ErrTeacherNotFound))
}
