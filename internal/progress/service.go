package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/learnquest/learnquest/internal/api"
	"github.com/learnquest/learnquest/internal/domain"
	apperrors "github.com/learnquest/learnquest/internal/errors"
	"github.com/learnquest/learnquest/internal/event"
)

// noticeTTL is how long a transient confirmation stays visible.
const noticeTTL = 4 * time.Second

// ErrSubmissionInFlight is returned while an earlier submission is still
// outstanding. The triggering control is disabled rather than racing two
// requests for the same completion flag.
var ErrSubmissionInFlight = errors.New("progress: a submission is already in flight")

type Config struct {
	API      *api.Client
	EventBus *event.Bus

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Service posts lesson completions and quiz submissions to the backend.
// It never mutates completion flags locally: it publishes an event on
// success so views re-derive state from a fresh fetch.
type Service struct {
	api *api.Client
	eb  *event.Bus
	now func() time.Time

	mu          sync.Mutex
	busy        bool
	notice      string
	noticeUntil time.Time
}

func NewService(c Config) *Service {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		api: c.API,
		eb:  c.EventBus,
		now: now,
	}
}

// CompleteLesson marks a video or text lesson complete. The payload
// carries no answers: the backend distinguishes it from a quiz by the
// null answers field.
func (s *Service) CompleteLesson(ctx context.Context, lessonID int) (*api.SubmitProgressResponse, error) {
	return s.submit(ctx, api.SubmitProgressRequest{LessonID: lessonID})
}

// CompleteQuiz submits the positional answer set for a quiz lesson.
func (s *Service) CompleteQuiz(ctx context.Context, lessonID int, answers domain.AnswerSet) (*api.SubmitProgressResponse, error) {
	return s.submit(ctx, api.SubmitProgressRequest{LessonID: lessonID, Answers: answers})
}

func (s *Service) submit(ctx context.Context, req api.SubmitProgressRequest) (*api.SubmitProgressResponse, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	resp, err := s.api.SubmitProgress(ctx, req)
	if err != nil {
		s.setNotice(apperrors.Convert(err).Message)
		return nil, err
	}

	s.setNotice("Lesson completed! You earned points!")

	// Refresh on every accepted submission, points or not, so completion
	// flags and aggregate progress track the backend.
	s.eb.Publish(ctx, domain.EventProgressSubmitted{
		LessonID:      req.LessonID,
		PointsAwarded: resp.PointsAwarded,
		QuizResult:    resp.QuizResult,
	})

	return resp, nil
}

// Notice returns the current transient message, which expires on its own
// after a fixed delay.
func (s *Service) Notice() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notice == "" || s.now().After(s.noticeUntil) {
		return "", false
	}

	return s.notice, true
}

func (s *Service) setNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notice = msg
	s.noticeUntil = s.now().Add(noticeTTL)
}
