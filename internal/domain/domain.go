package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LessonType tags the lesson content variant.
type LessonType string

const (
	LessonVideo LessonType = "video"
	LessonText  LessonType = "text"
	LessonQuiz  LessonType = "quiz"
)

// Course as returned by the backend. Lessons is only populated by the
// course-detail endpoint; the association key is capitalized on the wire.
type Course struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Progress    decimal.Decimal `json:"progress"`
	Lessons     []Lesson        `json:"Lessons"`
}

// Lesson carries its content as an opaque JSON-encoded string; the shape
// depends on Type and is decoded on demand via Content.
type Lesson struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"`
	Type       LessonType `json:"lessonType"`
	RawContent string     `json:"content"`
	Completed  bool       `json:"isCompleted"`
}

// Content is the sum type over lesson content variants.
type Content interface {
	Variant() LessonType
}

type VideoContent struct {
	VideoID     string `json:"videoId"`
	Description string `json:"description"`
}

func (VideoContent) Variant() LessonType { return LessonVideo }

type TextContent struct {
	Text string `json:"text"`
}

func (TextContent) Variant() LessonType { return LessonText }

type QuizContent struct {
	Questions []Question `json:"questions"`
}

func (QuizContent) Variant() LessonType { return LessonQuiz }

type Question struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// Content decodes the lesson payload according to its variant tag.
func (l Lesson) Content() (Content, error) {
	decode := func(dst Content) (Content, error) {
		if err := json.Unmarshal([]byte(l.RawContent), dst); err != nil {
			return nil, fmt.Errorf("decode %s content of lesson %d: %w", l.Type, l.ID, err)
		}
		return dst, nil
	}

	switch l.Type {
	case LessonVideo:
		c, err := decode(&VideoContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*VideoContent), nil
	case LessonText:
		c, err := decode(&TextContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*TextContent), nil
	case LessonQuiz:
		c, err := decode(&QuizContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*QuizContent), nil
	default:
		return nil, fmt.Errorf("unknown lesson type %q", l.Type)
	}
}

// AnswerSet is the positional list of selected options for a quiz,
// aligned to question order. Unanswered positions stay nil and are
// serialized as null, never omitted.
type AnswerSet []*string

// QuizResult is the server's verdict on a submitted quiz. The client never
// scores answers itself.
type QuizResult struct {
	Passed  bool   `json:"passed"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Identity is the read-only projection decoded from the credential.
type Identity struct {
	Username string
	Email    string
}

type Dashboard struct {
	TotalPoints      int             `json:"totalPoints"`
	LessonsCompleted int             `json:"lessonsCompleted"`
	BadgesEarned     int             `json:"badgesEarned"`
	Courses          []CourseSummary `json:"courses"`
}

type CourseSummary struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Progress    decimal.Decimal `json:"progress"`
}

type Profile struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Points   int     `json:"points"`
	Badges   []Badge `json:"Badges"`
}

type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}
