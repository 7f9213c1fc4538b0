package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TeacherInfo a teacher record as returned by the directory.
// Fields the directory sends that are not modelled here are kept in Extra and written back
// unchanged, so snapshots and scored candidates never lose directory data. Modelled fields whose
// typed value would not encode back to the same JSON (empty strings and lists, explicit nulls,
// fractional student counts) are kept in Extra too and take precedence when encoding.
type TeacherInfo struct {
	ID               string          `json:"id"`
	Name             string          `json:"name,omitempty"`
	Email            string          `json:"email,omitempty"`
	Subjects         []string        `json:"subjects,omitempty"`
	ActiveStudents   *int            `json:"active_students,omitempty"`
	SubjectExpertise *float64        `json:"subject_expertise,omitempty"` // 1-5
	AverageRating    *float64        `json:"average_rating,omitempty"`    // 1-5
	Availability     json.RawMessage `json:"availability,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var teacherInfoKeys = []string{
	"id", "name", "email", "subjects", "active_students",
	"subject_expertise", "average_rating", "availability",
}

type teacherInfoFields TeacherInfo

func (t TeacherInfo) MarshalJSON() ([]byte, error) {
	fields, err := t.fieldMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func (t TeacherInfo) fieldMap() (map[string]json.RawMessage, error) {
	known, err := json.Marshal(teacherInfoFields(t))
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage, len(teacherInfoKeys)+len(t.Extra))
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range t.Extra {
		fields[k] = v
	}
	return fields, nil
}

func (t *TeacherInfo) UnmarshalJSON(b []byte) error {
	var f teacherInfoFields
	// directories may report fractional student counts; they are truncated for scoring
	aux := struct {
		*teacherInfoFields
		ActiveStudents *float64 `json:"active_students"`
	}{teacherInfoFields: &f}
	if err := json.Unmarshal(b, &aux); err != nil {
		return fmt.Errorf("decode teacher: %w", err)
	}
	if aux.ActiveStudents != nil {
		n := int(*aux.ActiveStudents)
		f.ActiveStudents = &n
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return fmt.Errorf("decode teacher: %w", err)
	}
	f.Extra = nil

	known, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("decode teacher: %w", err)
	}
	var encoded map[string]json.RawMessage
	if err := json.Unmarshal(known, &encoded); err != nil {
		return fmt.Errorf("decode teacher: %w", err)
	}
	for _, k := range teacherInfoKeys {
		raw, ok := all[k]
		if !ok {
			continue
		}
		if sameJSON(raw, encoded[k]) {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		f.Extra = all
	}
	*t = TeacherInfo(f)
	return nil
}

func sameJSON(raw, encoded json.RawMessage) bool {
	if encoded == nil {
		return false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return false
	}
	return bytes.Equal(buf.Bytes(), encoded)
}

// Clone returns a deep copy.
func (t TeacherInfo) Clone() TeacherInfo {
	c := t
	c.Subjects = cloneStrings(t.Subjects)
	if t.ActiveStudents != nil {
		v := *t.ActiveStudents
		c.ActiveStudents = &v
	}
	if t.SubjectExpertise != nil {
		v := *t.SubjectExpertise
		c.SubjectExpertise = &v
	}
	if t.AverageRating != nil {
		v := *t.AverageRating
		c.AverageRating = &v
	}
	if t.Availability != nil {
		c.Availability = append(json.RawMessage(nil), t.Availability...)
	}
	if t.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// ScoredTeacher a candidate teacher with its ranking score for one allocation.
// It serialises as the teacher record plus a "score" field.
type ScoredTeacher struct {
	TeacherInfo
	Score float64
}

func (s ScoredTeacher) MarshalJSON() ([]byte, error) {
	fields, err := s.TeacherInfo.fieldMap()
	if err != nil {
		return nil, err
	}
	score, err := json.Marshal(s.Score)
	if err != nil {
		return nil, err
	}
	fields["score"] = score
	return json.Marshal(fields)
}

func (s *ScoredTeacher) UnmarshalJSON(b []byte) error {
	var info TeacherInfo
	if err := info.UnmarshalJSON(b); err != nil {
		return err
	}
	var score float64
	if raw, ok := info.Extra["score"]; ok {
		if err := json.Unmarshal(raw, &score); err != nil {
			return fmt.Errorf("decode score: %w", err)
		}
		delete(info.Extra, "score")
		if len(info.Extra) == 0 {
			info.Extra = nil
		}
	}
	s.TeacherInfo = info
	s.Score = score
	return nil
}

// WorkloadInfo a teacher's current load as reported by the directory.
type WorkloadInfo struct {
	ActiveStudents    int     `json:"active_students"`
	HoursPerWeek      float64 `json:"hours_per_week"`
	AvailableCapacity float64 `json:"available_capacity"`
}

// StudentInfo a student record as returned by the directory.
type StudentInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Subjects []string `json:"subjects"`
}
