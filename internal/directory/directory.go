package directory

import (
	"context"
	"errors"
	"fmt"

	"davinci-allocation/internal/domain"
)

// ErrDirectoryUnavailable the teacher directory could not be reached or returned an error.
var ErrDirectoryUnavailable = errors.New("teacher directory unavailable")

// Directory the external teacher/student directory.
type Directory interface {
	// GetAvailableTeachers lists teachers able to take the subject.
	GetAvailableTeachers(ctx context.Context, subject string) ([]domain.TeacherInfo, error)
	// GetTeacherInfo returns nil when the teacher does not exist.
	GetTeacherInfo(ctx context.Context, teacherID string) (*domain.TeacherInfo, error)
	// SendInvitation offers the allocation to a teacher; false means it was not delivered.
	SendInvitation(ctx context.Context, allocation domain.Allocation, teacherID string) (bool, error)
	// GetTeacherWorkload returns nil when the teacher does not exist.
	GetTeacherWorkload(ctx context.Context, teacherID string) (*domain.WorkloadInfo, error)
	// GetStudentInfo returns nil when the student does not exist.
	GetStudentInfo(ctx context.Context, studentID string) (*domain.StudentInfo, error)
	// AddSubject adds a subject to the student's list; subject is passed through as sent.
	AddSubject(ctx context.Context, studentID string, subject map[string]any) (bool, error)
}

// Invitation the payload sent to the directory when inviting a teacher.
type Invitation struct {
	TeacherID        string  `json:"teacher_id"`
	AllocationID     string  `json:"allocation_id"`
	StudentEmail     string  `json:"student_email"`
	Subject          string  `json:"subject"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date,omitempty"`
	TotalHours       float64 `json:"total_hours"`
	SessionFrequency string  `json:"session_frequency"`
	AdditionalNotes  string  `json:"additional_notes"`
}

// NewInvitation builds the invitation for teacherID.
func NewInvitation(a domain.Allocation, teacherID string) Invitation {
	subject, _ := a.MatchSubject()
	return Invitation{
		TeacherID:        teacherID,
		AllocationID:     a.ID,
		StudentEmail:     a.StudentEmail,
		Subject:          subject,
		StartDate:        a.StartDate,
		EndDate:          a.EndDate,
		TotalHours:       a.PackageHours,
		SessionFrequency: a.SessionFrequency,
		AdditionalNotes: fmt.Sprintf("Student Availability: %s\nHoliday Schedule: %s\nNotes: %s",
			a.StudentAvailability, a.HolidaySchedule, a.AdditionalNotes),
	}
}
