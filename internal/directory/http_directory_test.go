package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"davinci-allocation/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDirectory(t *testing.T, handler http.HandlerFunc) *HTTPDirectory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPDirectory(srv.URL, "secret", 2*time.Second, zap.NewNop())
}

func TestHTTPDirectory_GetAvailableTeachers(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teachers/available", r.URL.Path)
		assert.Equal(t, "Algebra", r.URL.Query().Get("subject"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"t001","name":"Li Wei","active_students":12,"timezone":"EST"}]`))
	})

	teachers, err := dir.GetAvailableTeachers(context.Background(), "Algebra")
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "t001", teachers[0].ID)
	require.NotNil(t, teachers[0].ActiveStudents)
	assert.Equal(t, 12, *teachers[0].ActiveStudents)
	assert.JSONEq(t, `"EST"`, string(teachers[0].Extra["timezone"]))
}

func TestHTTPDirectory_ServerErrorIsUnavailable(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := dir.GetAvailableTeachers(context.Background(), "Algebra")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)

	ok, err := dir.SendInvitation(context.Background(), domain.Allocation{ID: "a1"}, "t001")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.False(t, ok)
}

func TestHTTPDirectory_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	dir := NewHTTPDirectory(srv.URL, "secret", time.Second, zap.NewNop())

	_, err := dir.GetTeacherInfo(context.Background(), "t001")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestHTTPDirectory_LookupsTreat404AsAbsent(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	teacher, err := dir.GetTeacherInfo(context.Background(), "t404")
	require.NoError(t, err)
	assert.Nil(t, teacher)

	workload, err := dir.GetTeacherWorkload(context.Background(), "t404")
	require.NoError(t, err)
	assert.Nil(t, workload)
}

func TestHTTPDirectory_GetTeacherWorkload(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teachers/t999/workload", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active_students":14,"hours_per_week":21,"available_capacity":29}`))
	})

	workload, err := dir.GetTeacherWorkload(context.Background(), "t999")
	require.NoError(t, err)
	assert.Equal(t, &domain.WorkloadInfo{ActiveStudents: 14, HoursPerWeek: 21, AvailableCapacity: 29}, workload)
}

func TestHTTPDirectory_SendInvitationPayload(t *testing.T) {
	var got Invitation
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invitations", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	alloc := domain.Allocation{
		ID:                  "a1",
		StudentEmail:        "sam@example.com",
		Subjects:            []string{"Biology"},
		StartDate:           "2024-09-01",
		PackageHours:        20,
		SessionFrequency:    "Weekly",
		StudentAvailability: "Mon pm",
		HolidaySchedule:     "None",
		AdditionalNotes:     "Prefers labs",
	}
	ok, err := dir.SendInvitation(context.Background(), alloc, "t002")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "t002", got.TeacherID)
	assert.Equal(t, "a1", got.AllocationID)
	assert.Equal(t, "Biology", got.Subject)
	assert.Equal(t, 20.0, got.TotalHours)
	assert.Equal(t, "Student Availability: Mon pm\nHoliday Schedule: None\nNotes: Prefers labs", got.AdditionalNotes)
}

func TestHTTPDirectory_Students(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/students/s1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"s1","name":"Alex Appleton","email":"alex@example.com"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/students/s1/subjects":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Algebra", body["subject"])
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	student, err := dir.GetStudentInfo(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "Alex Appleton", student.Name)
	assert.Equal(t, []string{}, student.Subjects)

	missing, err := dir.GetStudentInfo(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	ok, err := dir.AddSubject(ctx, "s1", map[string]any{"subject": "Algebra"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.AddSubject(ctx, "s2", map[string]any{"subject": "Algebra"})
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.False(t, ok)
}
