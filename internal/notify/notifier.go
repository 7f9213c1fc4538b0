package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"davinci-allocation/internal/domain"
)

// ErrNotificationFailed a confirmation could not be delivered to a sink.
var ErrNotificationFailed = errors.New("notification failed")

// Notifier delivers teacher confirmations.
type Notifier interface {
	NotifyConfirmed(ctx context.Context, allocation domain.Allocation, teacher domain.TeacherInfo) error
}

// Confirmation the event published when a teacher is confirmed for an allocation.
type Confirmation struct {
	AllocationID string    `json:"allocation_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	Subject      string    `json:"subject"`
	TeacherID    string    `json:"teacher_id"`
	TeacherName  string    `json:"teacher_name"`
	TeacherEmail string    `json:"teacher_email"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

// NewConfirmation builds the event. ConfirmedAt falls back to now when the allocation has no completion time.
func NewConfirmation(a domain.Allocation, teacher domain.TeacherInfo, now time.Time) Confirmation {
	subject, _ := a.MatchSubject()
	at := now.UTC()
	if a.DateCompleted != nil {
		at = *a.DateCompleted
	}
	return Confirmation{
		AllocationID: a.ID,
		StudentName:  a.StudentName,
		StudentEmail: a.StudentEmail,
		Subject:      subject,
		TeacherID:    teacher.ID,
		TeacherName:  teacherName(teacher),
		TeacherEmail: teacherEmail(teacher),
		ConfirmedAt:  at,
	}
}

func teacherName(t domain.TeacherInfo) string {
	if t.Name == "" {
		return "Your Teacher"
	}
	return t.Name
}

func teacherEmail(t domain.TeacherInfo) string {
	if t.Email == "" {
		return "teacher@cga.edu"
	}
	return t.Email
}

// MultiNotifier fans a confirmation out to every sink. All sinks are attempted.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyConfirmed(ctx context.Context, allocation domain.Allocation, teacher domain.TeacherInfo) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyConfirmed(ctx, allocation, teacher); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func failed(sink string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrNotificationFailed, sink, err)
}
