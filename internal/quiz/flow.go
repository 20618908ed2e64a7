// Package quiz implements the client-side quiz flow: sequential answer
// collection over an ordered question list, ending in a single atomic
// submission. Scoring stays server-side; the flow never grades anything.
package quiz

import (
	"errors"
	"fmt"

	"github.com/learnquest/learnquest/internal/domain"
)

type State int

const (
	// StateInProgress accepts SelectOption, Advance and Submit.
	StateInProgress State = iota

	// StateSubmitted is terminal. It is entered by Submit regardless of
	// whether the backend has acknowledged the submission yet.
	StateSubmitted

	// StateAlreadyCompleted is terminal from construction: the lesson was
	// completed earlier and the flow is bypassed entirely.
	StateAlreadyCompleted
)

var (
	ErrNoQuestions   = errors.New("quiz: no questions")
	ErrNotInProgress = errors.New("quiz: flow is not in progress")
	ErrUnanswered    = errors.New("quiz: current question has no answer")
	ErrNotLast       = errors.New("quiz: submit is only available on the last question")
	ErrUnknownOption = errors.New("quiz: option does not belong to the current question")
)

// Flow is the quiz state machine for one lesson.
type Flow struct {
	questions []domain.Question
	state     State
	current   int
	answers   map[int]string
}

// NewFlow starts a flow over the quiz content. When the lesson is already
// flagged complete the flow starts terminal and rejects all transitions.
func NewFlow(content domain.QuizContent, completed bool) (*Flow, error) {
	if len(content.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	f := &Flow{
		questions: content.Questions,
		answers:   make(map[int]string),
	}
	if completed {
		f.state = StateAlreadyCompleted
	}

	return f, nil
}

func (f *Flow) State() State { return f.state }

func (f *Flow) Total() int { return len(f.questions) }

// CurrentIndex is the zero-based position of the question on screen.
func (f *Flow) CurrentIndex() int { return f.current }

func (f *Flow) CurrentQuestion() domain.Question {
	return f.questions[f.current]
}

func (f *Flow) IsLast() bool {
	return f.current == len(f.questions)-1
}

// Selected returns the answer for the current question, if any.
func (f *Flow) Selected() (string, bool) {
	a, ok := f.answers[f.current]
	return a, ok
}

// SelectOption records the answer for the current question. Reselecting
// overwrites: last write wins, there is no multi-select.
func (f *Flow) SelectOption(option string) error {
	if f.state != StateInProgress {
		return ErrNotInProgress
	}

	q := f.questions[f.current]
	found := false
	for _, o := range q.Options {
		if o == option {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}

	f.answers[f.current] = option
	return nil
}

// Advance moves to the next question. It requires an answer for the
// current question and has no effect on the last one.
func (f *Flow) Advance() error {
	if f.state != StateInProgress {
		return ErrNotInProgress
	}

	if _, ok := f.answers[f.current]; !ok {
		return ErrUnanswered
	}

	if !f.IsLast() {
		f.current++
	}

	return nil
}

// Submit closes the flow and returns the answer set for the backend. It is
// only permitted on the last question with an answer present. The state
// becomes Submitted immediately, before any network call: a failed
// submission is reported as a message but never reopens the flow.
func (f *Flow) Submit() (domain.AnswerSet, error) {
	if f.state != StateInProgress {
		return nil, ErrNotInProgress
	}

	if !f.IsLast() {
		return nil, ErrNotLast
	}

	if _, ok := f.answers[f.current]; !ok {
		return nil, ErrUnanswered
	}

	f.state = StateSubmitted
	return f.AnswerSet(), nil
}

// AnswerSet builds the positional answer list. Its length always equals
// the question count; unanswered positions are nil so the backend can
// score by position.
func (f *Flow) AnswerSet() domain.AnswerSet {
	set := make(domain.AnswerSet, len(f.questions))
	for i := range f.questions {
		if a, ok := f.answers[i]; ok {
			a := a
			set[i] = &a
		}
	}

	return set
}
