package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/quiz"
)

// courseView is the course detail screen: the lesson list on the left of
// the web client becomes a numbered list here, with the selected lesson
// rendered below it. Lesson selection survives the refetch that follows a
// completion; only an explicit re-selection changes it.
func (a *App) courseView(ctx context.Context, courseID int) error {
	course, err := a.infra.api.GetCourse(ctx, courseID)
	if err != nil {
		a.errorf("Could not load course %d.", courseID)
		a.reportAPIError(err)
		return nil
	}

	selectedID := 0
	if len(course.Lessons) > 0 {
		selectedID = course.Lessons[0].ID
	}

	for {
		if a.courseDataStale() {
			fresh, err := a.infra.api.GetCourse(ctx, courseID)
			if err != nil {
				a.reportAPIError(err)
			} else {
				course = fresh
			}
		}

		a.renderCourse(course, selectedID)

		if msg, ok := a.service.progress.Notice(); ok {
			a.printf("%s", accent(msg))
		}

		line, err := a.readLine(ctx, fmt.Sprintf("course:%s> ", course.Title))
		if err != nil {
			return err
		}

		switch line {
		case "back", "":
			return nil
		case "quit", "exit":
			return errQuit
		case "complete", "start":
			lesson, ok := findLesson(course, selectedID)
			if !ok {
				a.errorf("Select a lesson first.")
				continue
			}
			a.runLessonAction(ctx, lesson)
		default:
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(course.Lessons) {
				a.errorf("Pick a lesson number, or: complete | start | back")
				continue
			}
			selectedID = course.Lessons[n-1].ID
		}
	}
}

func (a *App) renderCourse(course *domain.Course, selectedID int) {
	a.printf("%s", headline(course.Title))

	for i, l := range course.Lessons {
		marker := " "
		if l.Completed {
			marker = accent("✓")
		}
		cursor := "  "
		if l.ID == selectedID {
			cursor = accent("->")
		}
		a.printf("%s %s [%d] %s %s", cursor, marker, i+1, l.Title, muted(string(l.Type)))
	}

	if lesson, ok := findLesson(course, selectedID); ok {
		a.printf("")
		a.renderLesson(lesson)
	} else {
		a.printf("%s", muted("Select a lesson to begin."))
	}
}

// renderLesson dispatches on the content variant. A completed lesson
// never shows a completion hint, whatever its variant.
func (a *App) renderLesson(lesson domain.Lesson) {
	a.printf("%s", headline(lesson.Title))

	content, err := lesson.Content()
	if err != nil {
		a.errorf("This lesson could not be displayed.")
		a.reportAPIError(err)
		return
	}

	switch c := content.(type) {
	case domain.VideoContent:
		a.printf("%s", muted("https://www.youtube.com/watch?v="+c.VideoID))
		a.printf("%s", c.Description)
		if !lesson.Completed {
			a.printf("%s", muted("Type complete to mark this lesson as complete."))
		}
	case domain.TextContent:
		a.printf("%s", c.Text)
		if !lesson.Completed {
			a.printf("%s", muted("Type complete to mark this lesson as complete."))
		}
	case domain.QuizContent:
		a.printf("%s", muted(fmt.Sprintf("Quiz with %d questions.", len(c.Questions))))
		if lesson.Completed {
			a.printf("%s", accent("You have already completed this quiz."))
		} else {
			a.printf("%s", muted("Type start to begin the quiz."))
		}
	}
}

// runLessonAction performs the selected lesson's primary action: mark
// complete for video and text, the interactive flow for a quiz.
func (a *App) runLessonAction(ctx context.Context, lesson domain.Lesson) {
	if lesson.Type == domain.LessonQuiz {
		a.runQuiz(ctx, lesson)
		return
	}

	if lesson.Completed {
		a.printf("%s", muted("This lesson is already completed."))
		return
	}

	if _, err := a.service.progress.CompleteLesson(ctx, lesson.ID); err != nil {
		a.reportAPIError(err)
	}
}

// runQuiz drives the quiz flow for one lesson: one question at a time,
// answers collected by option number, submission only from the last
// question. The flow is marked submitted before the network call returns;
// a failed submission is reported but the quiz does not reopen.
func (a *App) runQuiz(ctx context.Context, lesson domain.Lesson) {
	content, err := lesson.Content()
	if err != nil {
		a.reportAPIError(err)
		return
	}

	qc, ok := content.(domain.QuizContent)
	if !ok {
		a.errorf("Lesson %d is not a quiz.", lesson.ID)
		return
	}

	flow, err := quiz.NewFlow(qc, lesson.Completed)
	if err != nil {
		a.errorf("This quiz has no questions.")
		return
	}

	if flow.State() == quiz.StateAlreadyCompleted {
		a.printf("%s", accent("You have already completed this quiz."))
		return
	}

	for flow.State() == quiz.StateInProgress {
		a.renderQuestion(flow)

		line, err := a.readLine(ctx, "quiz> ")
		if err != nil {
			return
		}

		switch line {
		case "back":
			return
		case "next":
			if err := flow.Advance(); err != nil {
				a.errorf("Pick an answer first.")
			}
		case "submit":
			answers, err := flow.Submit()
			switch err {
			case nil:
			case quiz.ErrNotLast:
				a.errorf("Answer every question before submitting.")
				continue
			case quiz.ErrUnanswered:
				a.errorf("Pick an answer first.")
				continue
			default:
				a.errorf("%v", err)
				continue
			}

			a.printf("%s", accent("Quiz submitted! Your results are being calculated."))

			resp, err := a.service.progress.CompleteQuiz(ctx, lesson.ID, answers)
			if err != nil {
				a.reportAPIError(err)
				return
			}

			if r := resp.QuizResult; r != nil {
				verdict := alert("Failed")
				if r.Passed {
					verdict = accent("Passed")
				}
				a.printf("%s: %d/%d correct. %s", verdict, r.Correct, r.Total, r.Message)
			}
			if resp.PointsAwarded > 0 {
				a.printf("%s", accent(fmt.Sprintf("You earned %d points!", resp.PointsAwarded)))
			}
			return
		default:
			n, err := strconv.Atoi(line)
			opts := flow.CurrentQuestion().Options
			if err != nil || n < 1 || n > len(opts) {
				a.errorf("Pick an option number, or: next | submit | back")
				continue
			}
			if err := flow.SelectOption(opts[n-1]); err != nil {
				a.errorf("%v", err)
			}
		}
	}
}

func (a *App) renderQuestion(flow *quiz.Flow) {
	q := flow.CurrentQuestion()
	a.printf("%s", muted(fmt.Sprintf("Question %d of %d", flow.CurrentIndex()+1, flow.Total())))
	a.printf("%s", headline(q.Prompt))

	selected, _ := flow.Selected()
	for i, o := range q.Options {
		mark := " "
		if o == selected {
			mark = accent("*")
		}
		a.printf(" %s %d) %s", mark, i+1, o)
	}

	if flow.IsLast() {
		a.printf("%s", muted("Type an option number, or submit."))
	} else {
		a.printf("%s", muted("Type an option number, or next."))
	}
}

func findLesson(course *domain.Course, id int) (domain.Lesson, bool) {
	for _, l := range course.Lessons {
		if l.ID == id {
			return l, true
		}
	}

	return domain.Lesson{}, false
}
