package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"davinci-allocation/internal/domain"
	"davinci-allocation/internal/ingest"
	"davinci-allocation/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)

func newTestAllocationService(t *testing.T) (*AllocationService, *repository.MemoryAllocationStore) {
	t.Helper()
	store := repository.NewMemoryAllocationStore()
	svc := NewAllocationService(store, zap.NewNop())
	tick := baseTime
	var mu sync.Mutex
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Minute)
		return tick
	}
	return svc, store
}

func testInput(email string, subjects ...string) domain.AllocationInput {
	return domain.AllocationInput{
		StudentName:     "Britney Blue Cheese",
		StudentEmail:    email,
		GuardianEmail:   "parent.bluecheese@example.com",
		RequestEmail:    "ao.bluecheese@cga.edu",
		Subjects:        subjects,
		StartDate:       "2024-09-01",
		PackageHours:    20,
		AdditionalNotes: "Prefers female teachers for English.\nSchedule must be consistent.\nAhead in math.",
	}
}

func TestAllocationService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	created, err := svc.Create(ctx, testInput("b@example.com", "English 7", "Math 8"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, []string{"English 7", "Math 8"}, created.AllSubjects)
	require.NotNil(t, created.DateCreated)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	missing, err := svc.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAllocationService_CreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestAllocationService(t)

	_, err := svc.Create(context.Background(), domain.AllocationInput{StudentName: "A", StudentEmail: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAllocationService_StartSplitAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	parent, err := svc.Create(ctx, testInput("b@example.com", "English 7", "Math 8"))
	require.NoError(t, err)

	started, err := svc.Start(ctx, parent.ID, "Ms Frizzle")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, started.Status)

	childIDs, err := svc.Split(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, childIDs, 2)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, parent.ID, all[0].ID)
	assert.Equal(t, domain.StatusCompleted, all[0].Status)
	assert.Equal(t, childIDs, all[0].ChildAllocationIDs)

	for i, id := range childIDs {
		child := all[i+1]
		assert.Equal(t, id, child.ID)
		assert.Equal(t, parent.ID, child.ParentAllocationID)
		assert.Equal(t, domain.StatusInProgress, child.Status)
		assert.Equal(t, "Ms Frizzle", child.StaffMember)
		assert.Len(t, child.Subjects, 1)
	}
	assert.Equal(t, "Prefers female teachers for English.\nSchedule must be consistent.", all[1].AdditionalNotes)
	assert.Equal(t, "Schedule must be consistent.\nAhead in math.", all[2].AdditionalNotes)

	inProgress, err := svc.List(ctx, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Len(t, inProgress, 2)
}

func TestAllocationService_SplitNoOps(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestAllocationService(t)

	single, err := svc.Create(ctx, testInput("c@example.com", "Biology"))
	require.NoError(t, err)
	before, err := store.LoadAll(ctx)
	require.NoError(t, err)

	ids, err := svc.Split(ctx, single.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = svc.Split(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, ids)

	after, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAllocationService_StartCompletedIsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	a, err := svc.Create(ctx, testInput("d@example.com", "Biology"))
	require.NoError(t, err)
	_, err = svc.Complete(ctx, a.ID)
	require.NoError(t, err)

	_, err = svc.Start(ctx, a.ID, "Ms Frizzle")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	missing, err := svc.Start(ctx, "missing", "Ms Frizzle")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAllocationService_RecordInviteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	a, err := svc.Create(ctx, testInput("e@example.com", "Biology"))
	require.NoError(t, err)

	_, err = svc.RecordInvite(ctx, a.ID, "t001")
	require.NoError(t, err)
	updated, err := svc.RecordInvite(ctx, a.ID, "t001")
	require.NoError(t, err)
	assert.Equal(t, []string{"t001"}, updated.InvitedTeachers)
}

func TestAllocationService_AttachMatchesOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	a, err := svc.Create(ctx, testInput("f@example.com", "Biology"))
	require.NoError(t, err)

	_, err = svc.AttachMatches(ctx, a.ID, []domain.ScoredTeacher{{TeacherInfo: domain.TeacherInfo{ID: "t1"}, Score: 90}})
	require.NoError(t, err)
	updated, err := svc.AttachMatches(ctx, a.ID, []domain.ScoredTeacher{{TeacherInfo: domain.TeacherInfo{ID: "t2"}, Score: 80}})
	require.NoError(t, err)
	require.Len(t, updated.MatchingTeachers, 1)
	assert.Equal(t, "t2", updated.MatchingTeachers[0].ID)
}

func TestAllocationService_ConfirmTeacher(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	a, err := svc.Create(ctx, testInput("g@example.com", "Biology"))
	require.NoError(t, err)

	confirmed, err := svc.ConfirmTeacher(ctx, a.ID, domain.TeacherInfo{ID: "t999", Name: "Carrie Cambear"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedTeacher)
	assert.Equal(t, "t999", confirmed.ConfirmedTeacher.ID)
	require.NotNil(t, confirmed.DateCompleted)
}

func TestAllocationService_ConcurrentWritersLoseNothing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	a, err := svc.Create(ctx, testInput("h@example.com", "Biology"))
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers + 2)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordInvite(ctx, a.ID, fmt.Sprintf("t%03d", i))
			assert.NoError(t, err)
		}(i)
	}
	go func() {
		defer wg.Done()
		_, err := svc.Start(ctx, a.ID, "Ms Frizzle")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.AttachMatches(ctx, a.ID, []domain.ScoredTeacher{{TeacherInfo: domain.TeacherInfo{ID: "t1"}, Score: 100}})
		assert.NoError(t, err)
	}()
	wg.Wait()

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.InvitedTeachers, writers)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Equal(t, "Ms Frizzle", got.StaffMember)
	assert.Len(t, got.MatchingTeachers, 1)
}

func TestAllocationService_SyncFromSpreadsheet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAllocationService(t)

	_, err := svc.Create(ctx, testInput("existing@example.com", "Biology"))
	require.NoError(t, err)

	data, err := ingest.WriteJobForms([]domain.AllocationInput{
		testInput("existing@example.com", "Math 7"),
		testInput("new@example.com", "Math 7", "English 7"),
		testInput("NEW@example.com", "Physics"),
		{StudentName: "No Email", Subjects: []string{"Math 7"}},
		testInput("other@example.com", "Chemistry"),
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "job_forms.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	added, err := svc.SyncFromSpreadsheet(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	all, err := svc.List(ctx, domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Math 7", "English 7"}, all[1].Subjects)
	assert.Equal(t, "other@example.com", all[2].StudentEmail)

	added, err = svc.SyncFromSpreadsheet(ctx, path)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestAllocationService_StoreErrorsPropagate(t *testing.T) {
	svc := NewAllocationService(repository.NewFileAllocationStore(t.TempDir(), zap.NewNop()), zap.NewNop())
	store := svc.store.(*repository.FileAllocationStore)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{"), 0o644))

	_, err := svc.Start(context.Background(), "a1", "x")
	assert.ErrorIs(t, err, repository.ErrStoreCorrupt)

	_, err = svc.Statistics(context.Background())
	assert.ErrorIs(t, err, repository.ErrStoreCorrupt)
}
