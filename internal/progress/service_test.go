package progress_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/learnquest/internal/api"
	"github.com/learnquest/learnquest/internal/apitest"
	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/event"
	"github.com/learnquest/learnquest/internal/progress"
	"github.com/learnquest/learnquest/internal/token"
)

type fixture struct {
	backend *apitest.Server
	eb      *event.Bus
	events  *[]domain.EventProgressSubmitted
	now     *time.Time
	service *progress.Service
}

func makeFixture(t *testing.T) *fixture {
	t.Helper()

	backend := apitest.NewServer(t)

	tokens := token.NewMemStore()
	require.NoError(t, tokens.Save(apitest.MintToken(t, "alice", "a@b.com", time.Hour)))

	eb := event.NewBus()
	var events []domain.EventProgressSubmitted
	eb.Subscribe(domain.EventNameProgressSubmitted, func(ctx context.Context, e event.Event) error {
		events = append(events, e.(domain.EventProgressSubmitted))
		return nil
	})

	now := time.Now()

	s := progress.NewService(progress.Config{
		API: api.NewClient(api.Config{
			BaseURL: backend.URL,
			Tokens:  tokens,
		}),
		EventBus: eb,
		Now:      func() time.Time { return now },
	})

	return &fixture{
		backend: backend,
		eb:      eb,
		events:  &events,
		now:     &now,
		service: s,
	}
}

func TestService_CompleteLesson(t *testing.T) {
	fx := makeFixture(t)
	fx.backend.PointsAwarded = 10

	resp, err := fx.service.CompleteLesson(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.PointsAwarded)
	assert.Nil(t, resp.QuizResult)

	calls := fx.backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].LessonID)
	assert.False(t, calls[0].HasAnswers, "mark-complete must not carry answers")

	require.Len(t, *fx.events, 1)
	assert.Equal(t, 7, (*fx.events)[0].LessonID)
	assert.Equal(t, 10, (*fx.events)[0].PointsAwarded)
}

func TestService_CompleteQuiz(t *testing.T) {
	fx := makeFixture(t)
	fx.backend.PointsAwarded = 50
	fx.backend.QuizResult = &domain.QuizResult{
		Passed:  true,
		Correct: 3,
		Total:   4,
		Message: "Quiz passed!",
	}

	opt := func(s string) *string { return &s }
	answers := domain.AnswerSet{opt("a"), opt("b"), nil, opt("d")}

	resp, err := fx.service.CompleteQuiz(context.Background(), 8, answers)
	require.NoError(t, err)
	require.NotNil(t, resp.QuizResult)
	assert.True(t, resp.QuizResult.Passed)

	calls := fx.backend.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].HasAnswers)
	assert.JSONEq(t, `{"lessonId":8,"answers":["a","b",null,"d"]}`, string(calls[0].RawBody))
}

func TestService_ZeroPointSubmissionStillRefreshes(t *testing.T) {
	fx := makeFixture(t)
	fx.backend.PointsAwarded = 0
	fx.backend.QuizResult = &domain.QuizResult{Passed: false, Correct: 1, Total: 4, Message: "Quiz failed"}

	opt := func(s string) *string { return &s }
	_, err := fx.service.CompleteQuiz(context.Background(), 8, domain.AnswerSet{opt("a")})
	require.NoError(t, err)

	require.Len(t, *fx.events, 1, "a failed quiz still triggers a refresh")
	assert.Equal(t, 0, (*fx.events)[0].PointsAwarded)
}

func TestService_FailureReportsWithoutEvent(t *testing.T) {
	fx := makeFixture(t)
	fx.backend.ProgressStatus = http.StatusBadRequest
	fx.backend.ProgressMessage = "Lesson already completed"

	_, err := fx.service.CompleteLesson(context.Background(), 7)
	require.Error(t, err)

	assert.Empty(t, *fx.events, "no refresh on a rejected submission")

	notice, ok := fx.service.Notice()
	require.True(t, ok)
	assert.Equal(t, "Lesson already completed", notice)
}

func TestService_NoticeExpires(t *testing.T) {
	fx := makeFixture(t)

	_, err := fx.service.CompleteLesson(context.Background(), 7)
	require.NoError(t, err)

	notice, ok := fx.service.Notice()
	require.True(t, ok)
	assert.Equal(t, "Lesson completed! You earned points!", notice)

	*fx.now = fx.now.Add(3 * time.Second)
	_, ok = fx.service.Notice()
	assert.True(t, ok, "notice still visible before the delay elapses")

	*fx.now = fx.now.Add(2 * time.Second)
	_, ok = fx.service.Notice()
	assert.False(t, ok, "notice auto-clears after the fixed delay")
}

func TestService_BusyGuard(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first.Do(func() {
			close(inFlight)
			<-release
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pointsAwarded":10}`))
	}))
	defer ts.Close()

	tokens := token.NewMemStore()
	require.NoError(t, tokens.Save("tok"))

	s := progress.NewService(progress.Config{
		API: api.NewClient(api.Config{
			BaseURL: ts.URL,
			Tokens:  tokens,
		}),
		EventBus: event.NewBus(),
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.CompleteLesson(context.Background(), 7)
		done <- err
	}()

	// Wait until the first submission is on the wire, then try a second
	// click before the response returns.
	<-inFlight
	_, err := s.CompleteLesson(context.Background(), 7)
	assert.ErrorIs(t, err, progress.ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)

	// Once the response landed, the guard is lifted.
	_, err = s.CompleteLesson(context.Background(), 7)
	require.NoError(t, err)
}
