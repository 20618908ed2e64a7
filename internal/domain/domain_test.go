package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/learnquest/internal/domain"
)

func TestLesson_Content(t *testing.T) {
	tests := map[string]struct {
		lesson  domain.Lesson
		want    domain.Content
		wantErr bool
	}{
		"video": {
			lesson: domain.Lesson{
				Type:       domain.LessonVideo,
				RawContent: `{"videoId":"abc123","description":"An intro."}`,
			},
			want: domain.VideoContent{VideoID: "abc123", Description: "An intro."},
		},
		"text": {
			lesson: domain.Lesson{
				Type:       domain.LessonText,
				RawContent: `{"text":"Read this."}`,
			},
			want: domain.TextContent{Text: "Read this."},
		},
		"quiz": {
			lesson: domain.Lesson{
				Type:       domain.LessonQuiz,
				RawContent: `{"questions":[{"question":"?","options":["a","b"]}]}`,
			},
			want: domain.QuizContent{
				Questions: []domain.Question{{Prompt: "?", Options: []string{"a", "b"}}},
			},
		},
		"unknown variant": {
			lesson:  domain.Lesson{Type: "podcast", RawContent: `{}`},
			wantErr: true,
		},
		"malformed payload": {
			lesson:  domain.Lesson{Type: domain.LessonText, RawContent: `not json`},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			got, err := tt.lesson.Content()
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.lesson.Type, got.Variant())
		})
	}
}

func TestAnswerSet_NullsAreKept(t *testing.T) {
	opt := func(s string) *string { return &s }
	set := domain.AnswerSet{opt("a"), nil, opt("c"), opt("d")}

	b, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["a",null,"c","d"]`, string(b))
}

func TestLesson_WireNames(t *testing.T) {
	raw := `{
		"id": 3,
		"title": "Intro",
		"description": "d",
		"progress": 40,
		"Lessons": [
			{"id": 7, "title": "Hello", "lessonType": "text", "content": "{\"text\":\"hi\"}", "isCompleted": true}
		]
	}`

	var course domain.Course
	require.NoError(t, json.Unmarshal([]byte(raw), &course))

	require.Len(t, course.Lessons, 1)
	assert.Equal(t, domain.LessonText, course.Lessons[0].Type)
	assert.True(t, course.Lessons[0].Completed)
	assert.Equal(t, "40", course.Progress.String())
}
