package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeacherInfo_PreservesUnknownFields(t *testing.T) {
	raw := `{"id":"t001","name":"John Smith","active_students":12,"timezone":"EST","availability":{"weekdays":["Monday"]}}`

	var info TeacherInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &info))
	assert.Equal(t, "t001", info.ID)
	require.NotNil(t, info.ActiveStudents)
	assert.Equal(t, 12, *info.ActiveStudents)
	assert.JSONEq(t, `"EST"`, string(info.Extra["timezone"]))
	assert.NotContains(t, info.Extra, "name")

	out, err := json.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestTeacherInfo_KeepsEmptyAndNullFields(t *testing.T) {
	raw := `{"id":"t003","name":"","subjects":[],"active_students":null,"average_rating":4.5}`

	var info TeacherInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &info))
	assert.Nil(t, info.ActiveStudents)
	assert.NotContains(t, info.Extra, "average_rating")

	out, err := json.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))

	snapshot := info.Clone()
	out, err = json.Marshal(snapshot)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestTeacherInfo_FractionalActiveStudents(t *testing.T) {
	raw := `{"id":"t004","active_students":12.5,"score":101}`

	var s ScoredTeacher
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	require.NotNil(t, s.ActiveStudents)
	assert.Equal(t, 12, *s.ActiveStudents)
	assert.Equal(t, 101.0, s.Score)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestScoredTeacher_JSON(t *testing.T) {
	raw := `{"id":"t002","email":"maria.garcia@cga.edu","badge":"gold","score":117.5}`

	var s ScoredTeacher
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, 117.5, s.Score)
	assert.Equal(t, "t002", s.ID)
	assert.NotContains(t, s.Extra, "score")
	assert.Contains(t, s.Extra, "badge")

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}
