package domain

const (
	EventNameProgressSubmitted = "progress.submitted"
	EventNameSessionChanged    = "session.changed"
)

// EventProgressSubmitted is published after the backend accepted a lesson
// completion or quiz submission. Views refetch course data on it.
type EventProgressSubmitted struct {
	LessonID      int
	PointsAwarded int
	QuizResult    *QuizResult
}

func (EventProgressSubmitted) Name() string { return EventNameProgressSubmitted }

// EventSessionChanged is published whenever the session transitions between
// logged-in and logged-out.
type EventSessionChanged struct {
	LoggedIn bool
	Identity *Identity
}

func (EventSessionChanged) Name() string { return EventNameSessionChanged }
