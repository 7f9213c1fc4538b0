package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"
	"sync"

	"davinci-allocation/internal/domain"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"go.uber.org/zap"
)

var mockTeacherNames = []string{
	"John Smith", "Maria Garcia", "Li Wei", "Alex Johnson",
	"Sophia Williams", "Raj Patel", "Emma Brown", "Carlos Rodriguez",
	"Aisha Khan", "Olivia Davis", "David Wilson", "Carrie Cambear",
}

var mockSubjectAreas = []struct {
	area     string
	subjects []string
}{
	{"English", []string{"English 7", "English 8", "English 9"}},
	{"Math", []string{"Math 7", "Math 8", "Algebra", "Geometry"}},
	{"Science", []string{"Earth and Space Science 7", "Biology", "Chemistry", "Physics"}},
}

type mockAvailability struct {
	Weekdays  []string `json:"weekdays"`
	TimeSlots []string `json:"time_slots"`
}

// MockDirectory an in-process roster used when the directory API key is the test key.
// Invitations always succeed. Every student ID resolves to a placeholder student whose
// subjects are the ones added through AddSubject.
type MockDirectory struct {
	mu       sync.RWMutex
	teachers []domain.TeacherInfo
	subjects map[string][]string
	logger   *zap.Logger
}

func NewMockDirectory(teachers []domain.TeacherInfo, logger *zap.Logger) *MockDirectory {
	roster := make([]domain.TeacherInfo, len(teachers))
	for i, t := range teachers {
		roster[i] = t.Clone()
	}
	return &MockDirectory{teachers: roster, subjects: map[string][]string{}, logger: logger}
}

// GenerateMockTeachers builds the twelve-teacher roster. The same seed yields the same roster.
func GenerateMockTeachers(seed int64) []domain.TeacherInfo {
	rng := rand.New(rand.NewSource(seed))
	teachers := make([]domain.TeacherInfo, 0, len(mockTeacherNames))

	for i, name := range mockTeacherNames {
		var subjects []string
		areas := rng.Perm(len(mockSubjectAreas))[:1+rng.Intn(2)]
		for _, ai := range areas {
			pool := mockSubjectAreas[ai].subjects
			for _, si := range rng.Perm(len(pool))[:1+rng.Intn(len(pool))] {
				subjects = append(subjects, pool[si])
			}
		}

		weekdays := []string{"Tuesday", "Thursday"}
		if i%2 == 0 {
			weekdays = []string{"Monday", "Wednesday", "Friday"}
		}
		availability, _ := json.Marshal(mockAvailability{
			Weekdays:  weekdays,
			TimeSlots: []string{"8:00-10:00", "13:00-15:00", "16:00-18:00"},
		})

		active := 5 + rng.Intn(36)
		expertise := float64(3 + rng.Intn(3))
		rating := math.Round((3.5+rng.Float64()*1.5)*10) / 10

		id := fmt.Sprintf("t%03d", i+1)
		if strings.Contains(name, "Carrie") {
			id = "t999"
			active = 14
		}

		teachers = append(teachers, domain.TeacherInfo{
			ID:               id,
			Name:             name,
			Email:            strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@cga.edu",
			Subjects:         subjects,
			ActiveStudents:   &active,
			SubjectExpertise: &expertise,
			AverageRating:    &rating,
			Availability:     availability,
		})
	}
	return teachers
}

// LoadMockTeachers reads a roster file. A missing file is generated from seed and written back.
func LoadMockTeachers(ctx context.Context, path string, seed int64, logger *zap.Logger) ([]domain.TeacherInfo, error) {
	fs := afs.New()
	exists, err := fs.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("check mock roster %s: %w", path, err)
	}
	if !exists {
		teachers := GenerateMockTeachers(seed)
		if err := SaveMockTeachers(ctx, path, teachers); err != nil {
			return nil, err
		}
		logger.Info("Generated mock teacher roster", zap.String("path", path), zap.Int("teachers", len(teachers)))
		return teachers, nil
	}

	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read mock roster %s: %w", path, err)
	}
	var teachers []domain.TeacherInfo
	if err := json.Unmarshal(data, &teachers); err != nil {
		return nil, fmt.Errorf("decode mock roster %s: %w", path, err)
	}
	return teachers, nil
}

// SaveMockTeachers writes the roster as indented JSON.
func SaveMockTeachers(ctx context.Context, path string, teachers []domain.TeacherInfo) error {
	data, err := json.MarshalIndent(teachers, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mock roster: %w", err)
	}
	if err := afs.New().Upload(ctx, path, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write mock roster %s: %w", path, err)
	}
	return nil
}

func (d *MockDirectory) GetAvailableTeachers(_ context.Context, subject string) ([]domain.TeacherInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	available := []domain.TeacherInfo{}
	for _, t := range d.teachers {
		if slices.Contains(t.Subjects, subject) {
			available = append(available, t.Clone())
		}
	}
	return available, nil
}

func (d *MockDirectory) GetTeacherInfo(_ context.Context, teacherID string) (*domain.TeacherInfo, error) {
	return d.find(teacherID), nil
}

func (d *MockDirectory) SendInvitation(_ context.Context, allocation domain.Allocation, teacherID string) (bool, error) {
	inv := NewInvitation(allocation, teacherID)
	d.logger.Info("Mock invitation sent",
		zap.String("teacher_id", inv.TeacherID),
		zap.String("allocation_id", inv.AllocationID),
		zap.String("subject", inv.Subject),
	)
	return true, nil
}

func (d *MockDirectory) GetTeacherWorkload(_ context.Context, teacherID string) (*domain.WorkloadInfo, error) {
	t := d.find(teacherID)
	if t == nil {
		return nil, nil
	}
	students := 0
	if t.ActiveStudents != nil {
		students = *t.ActiveStudents
	}
	load := float64(students) * 1.5
	return &domain.WorkloadInfo{
		ActiveStudents:    students,
		HoursPerWeek:      math.Round(load*10) / 10,
		AvailableCapacity: math.Max(0, 50-load),
	}, nil
}

func (d *MockDirectory) GetStudentInfo(_ context.Context, studentID string) (*domain.StudentInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &domain.StudentInfo{
		ID:       studentID,
		Name:     "Test Student",
		Email:    "student@example.com",
		Subjects: append([]string{}, d.subjects[studentID]...),
	}, nil
}

func (d *MockDirectory) AddSubject(_ context.Context, studentID string, subject map[string]any) (bool, error) {
	name, _ := subject["subject"].(string)
	d.mu.Lock()
	if name != "" && !slices.Contains(d.subjects[studentID], name) {
		d.subjects[studentID] = append(d.subjects[studentID], name)
	}
	d.mu.Unlock()
	d.logger.Info("Mock subject added", zap.String("student_id", studentID), zap.String("subject", name))
	return true, nil
}

func (d *MockDirectory) find(teacherID string) *domain.TeacherInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.teachers {
		if t.ID == teacherID {
			c := t.Clone()
			return &c
		}
	}
	return nil
}
