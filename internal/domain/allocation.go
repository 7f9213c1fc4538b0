package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrUnknownStatus is returned when a persisted status token is not one of the known values.
	ErrUnknownStatus = errors.New("unknown allocation status")
	// ErrInvalidTransition is returned when a lifecycle step is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid allocation transition")
)

// Status allocation lifecycle status
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus maps a lowercase token to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "null" || raw == "" {
		// records written before status existed are treated as new intake
		*s = StatusPending
		return nil
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// subjectAreas are the top-level areas used to decide whether a note line is subject specific.
var subjectAreas = []string{"english", "math", "science"}

// Allocation a student's request for a teacher in one or more subjects.
// Values are treated as immutable: the transition methods return an updated copy.
type Allocation struct {
	ID string `json:"id"`

	// party info
	StudentName   string `json:"student_name"`
	StudentEmail  string `json:"student_email"`
	GuardianEmail string `json:"guardian_email"`
	RequestEmail  string `json:"request_email"`

	// subjects: full request, frozen request copy, and the single subject of a split child
	Subjects       []string `json:"subjects"`
	AllSubjects    []string `json:"all_subjects"`
	CurrentSubject string   `json:"current_subject,omitempty"`

	// scheduling inputs
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date,omitempty"` // reserved, never populated
	PackageHours        float64 `json:"package_hours"`
	SessionFrequency    string  `json:"session_frequency"`
	StudentAvailability string  `json:"student_availability"`
	HolidaySchedule     string  `json:"holiday_schedule"`
	AdditionalNotes     string  `json:"additional_notes"`

	// lifecycle
	Status        Status     `json:"status"`
	StaffMember   string     `json:"staff_member,omitempty"`
	DateCreated   *time.Time `json:"date_created,omitempty"`
	DateStarted   *time.Time `json:"date_started,omitempty"`
	DateCompleted *time.Time `json:"date_completed,omitempty"`

	// matching
	MatchingTeachers []ScoredTeacher `json:"matching_teachers"`
	InvitedTeachers  []string        `json:"invited_teachers"`
	ConfirmedTeacher *TeacherInfo    `json:"confirmed_teacher,omitempty"`

	// hierarchy
	ParentAllocationID string   `json:"parent_allocation_id,omitempty"`
	ChildAllocationIDs []string `json:"child_allocation_ids"`
}

// timestampLayouts accepted when decoding lifecycle dates. Offset-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 date-time with or without a UTC offset.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// isoTime decodes any layout ParseTimestamp accepts. Encoding stays RFC 3339 via time.Time.
type isoTime time.Time

func (t *isoTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = isoTime(parsed)
	return nil
}

func (a *Allocation) UnmarshalJSON(b []byte) error {
	type fields Allocation
	aux := struct {
		*fields
		DateCreated   *isoTime `json:"date_created"`
		DateStarted   *isoTime `json:"date_started"`
		DateCompleted *isoTime `json:"date_completed"`
	}{fields: (*fields)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.DateCreated = (*time.Time)(aux.DateCreated)
	a.DateStarted = (*time.Time)(aux.DateStarted)
	a.DateCompleted = (*time.Time)(aux.DateCompleted)
	return nil
}

// AllocationInput intake fields supplied when an allocation is created.
type AllocationInput struct {
	StudentName         string   `json:"student_name" validate:"required"`
	StudentEmail        string   `json:"student_email" validate:"required,email"`
	GuardianEmail       string   `json:"guardian_email" validate:"omitempty,email"`
	RequestEmail        string   `json:"request_email" validate:"omitempty,email"`
	Subjects            []string `json:"subjects" validate:"dive,required"`
	StartDate           string   `json:"start_date"`
	PackageHours        float64  `json:"package_hours" validate:"gte=0"`
	SessionFrequency    string   `json:"session_frequency"`
	StudentAvailability string   `json:"student_availability"`
	HolidaySchedule     string   `json:"holiday_schedule"`
	AdditionalNotes     string   `json:"additional_notes"`
}

var validate = validator.New()

// Validate checks the intake fields.
func (in AllocationInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("invalid allocation input: %w", err)
	}
	return nil
}

// NewAllocation builds a Pending allocation with a fresh ID.
func NewAllocation(in AllocationInput, now time.Time) Allocation {
	created := now
	a := Allocation{
		ID:                  uuid.NewString(),
		StudentName:         in.StudentName,
		StudentEmail:        in.StudentEmail,
		GuardianEmail:       in.GuardianEmail,
		RequestEmail:        in.RequestEmail,
		Subjects:            cloneStrings(in.Subjects),
		AllSubjects:         cloneStrings(in.Subjects),
		StartDate:           in.StartDate,
		PackageHours:        in.PackageHours,
		SessionFrequency:    in.SessionFrequency,
		StudentAvailability: in.StudentAvailability,
		HolidaySchedule:     in.HolidaySchedule,
		AdditionalNotes:     in.AdditionalNotes,
		Status:              StatusPending,
		DateCreated:         &created,
		MatchingTeachers:    []ScoredTeacher{},
		InvitedTeachers:     []string{},
		ChildAllocationIDs:  []string{},
	}
	return a.Normalize()
}

// Normalize fills the defaults a decoded record may be missing.
func (a Allocation) Normalize() Allocation {
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Subjects == nil {
		a.Subjects = []string{}
	}
	if a.AllSubjects == nil {
		a.AllSubjects = cloneStrings(a.Subjects)
	}
	if a.MatchingTeachers == nil {
		a.MatchingTeachers = []ScoredTeacher{}
	}
	if a.InvitedTeachers == nil {
		a.InvitedTeachers = []string{}
	}
	if a.ChildAllocationIDs == nil {
		a.ChildAllocationIDs = []string{}
	}
	return a
}

// Clone returns a copy sharing no mutable state with a.
func (a Allocation) Clone() Allocation {
	c := a
	c.Subjects = cloneStrings(a.Subjects)
	c.AllSubjects = cloneStrings(a.AllSubjects)
	c.InvitedTeachers = cloneStrings(a.InvitedTeachers)
	c.ChildAllocationIDs = cloneStrings(a.ChildAllocationIDs)
	c.DateCreated = cloneTime(a.DateCreated)
	c.DateStarted = cloneTime(a.DateStarted)
	c.DateCompleted = cloneTime(a.DateCompleted)
	if a.MatchingTeachers != nil {
		c.MatchingTeachers = make([]ScoredTeacher, len(a.MatchingTeachers))
		for i, t := range a.MatchingTeachers {
			c.MatchingTeachers[i] = ScoredTeacher{TeacherInfo: t.TeacherInfo.Clone(), Score: t.Score}
		}
	}
	if a.ConfirmedTeacher != nil {
		t := a.ConfirmedTeacher.Clone()
		c.ConfirmedTeacher = &t
	}
	return c
}

// IsSplitParent reports whether the allocation was retired by splitting.
func (a Allocation) IsSplitParent() bool { return len(a.ChildAllocationIDs) > 0 }

// MatchSubject returns the subject teachers are matched against: the child's own subject,
// otherwise the first requested one.
func (a Allocation) MatchSubject() (string, bool) {
	if a.CurrentSubject != "" {
		return a.CurrentSubject, true
	}
	if len(a.Subjects) > 0 && a.Subjects[0] != "" {
		return a.Subjects[0], true
	}
	return "", false
}

// Start moves the allocation to InProgress under staffMember. Re-starting an InProgress
// allocation reassigns staff and start time; a Completed one cannot be started.
func (a Allocation) Start(staffMember string, at time.Time) (Allocation, error) {
	if a.Status == StatusCompleted {
		return a, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, a.ID, a.Status)
	}
	c := a.Clone()
	c.Status = StatusInProgress
	c.StaffMember = staffMember
	c.DateStarted = &at
	return c, nil
}

// Split breaks a multi-subject allocation into one InProgress child per subject and retires
// the parent. Allocations with one subject or none are returned unchanged with no children.
// Children are created at the given time and inherit the parent's staff member and start time.
func (a Allocation) Split(at time.Time) (Allocation, []Allocation) {
	if len(a.Subjects) <= 1 {
		return a, nil
	}
	children := make([]Allocation, 0, len(a.Subjects))
	childIDs := make([]string, 0, len(a.Subjects))
	for _, subject := range a.Subjects {
		created := at
		child := Allocation{
			ID:                  uuid.NewString(),
			StudentName:         a.StudentName,
			StudentEmail:        a.StudentEmail,
			GuardianEmail:       a.GuardianEmail,
			RequestEmail:        a.RequestEmail,
			Subjects:            []string{subject},
			AllSubjects:         []string{subject},
			CurrentSubject:      subject,
			StartDate:           a.StartDate,
			PackageHours:        a.PackageHours,
			SessionFrequency:    a.SessionFrequency,
			StudentAvailability: a.StudentAvailability,
			HolidaySchedule:     a.HolidaySchedule,
			AdditionalNotes:     FilterNotesForSubject(a.AdditionalNotes, subject),
			Status:              StatusInProgress,
			StaffMember:         a.StaffMember,
			DateCreated:         &created,
			DateStarted:         cloneTime(a.DateStarted),
			MatchingTeachers:    []ScoredTeacher{},
			InvitedTeachers:     []string{},
			ParentAllocationID:  a.ID,
			ChildAllocationIDs:  []string{},
		}
		children = append(children, child)
		childIDs = append(childIDs, child.ID)
	}
	parent := a.Clone()
	parent.ChildAllocationIDs = childIDs
	parent.Status = StatusCompleted
	return parent, children
}

// WithMatches replaces the candidate list; earlier results are discarded.
func (a Allocation) WithMatches(matches []ScoredTeacher) Allocation {
	c := a.Clone()
	c.MatchingTeachers = make([]ScoredTeacher, len(matches))
	for i, m := range matches {
		c.MatchingTeachers[i] = ScoredTeacher{TeacherInfo: m.TeacherInfo.Clone(), Score: m.Score}
	}
	return c
}

// WithInvite records teacherID as invited. The second result is false if it already was.
func (a Allocation) WithInvite(teacherID string) (Allocation, bool) {
	for _, id := range a.InvitedTeachers {
		if id == teacherID {
			return a, false
		}
	}
	c := a.Clone()
	c.InvitedTeachers = append(c.InvitedTeachers, teacherID)
	return c, true
}

// WithConfirmedTeacher stores a snapshot of the accepting teacher.
func (a Allocation) WithConfirmedTeacher(teacher TeacherInfo) Allocation {
	c := a.Clone()
	t := teacher.Clone()
	c.ConfirmedTeacher = &t
	return c
}

// Complete marks the allocation Completed at the given time.
func (a Allocation) Complete(at time.Time) Allocation {
	c := a.Clone()
	c.Status = StatusCompleted
	c.DateCompleted = &at
	return c
}

// Confirm attaches the teacher snapshot and completes the allocation in one step.
func (a Allocation) Confirm(teacher TeacherInfo, at time.Time) Allocation {
	return a.WithConfirmedTeacher(teacher).Complete(at)
}

// FilterNotesForSubject keeps the note lines relevant to subject: lines mentioning any word of
// the subject name, plus lines that mention no subject area at all.
func FilterNotesForSubject(notes, subject string) string {
	if notes == "" {
		return ""
	}
	keywords := strings.Fields(strings.ToLower(subject))
	lines := strings.Split(notes, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(line)
		if containsAny(lower, keywords) || !containsAny(lower, subjectAreas) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
