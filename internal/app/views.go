package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/learnquest/learnquest/internal/errors"
)

var (
	headline = color.New(color.FgHiWhite, color.Bold).SprintFunc()
	accent   = color.New(color.FgGreen).SprintFunc()
	muted    = color.New(color.FgHiBlack).SprintFunc()
	alert    = color.New(color.FgRed).SprintFunc()
)

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// errorf reports a failure as a transient message. Errors never terminate
// the shell; the user re-triggers the action instead.
func (a *App) errorf(format string, args ...any) {
	fmt.Fprintln(a.out, alert(fmt.Sprintf(format, args...)))
}

func (a *App) reportAPIError(err error) {
	a.errorf("%s", errors.Convert(err).Message)
}

func (a *App) helpView() {
	a.printf("%s", headline("Commands"))
	a.printf("  dashboard       your points, completed lessons and courses")
	a.printf("  courses         list all available courses")
	a.printf("  course <id>     open a course and its lessons")
	a.printf("  leaderboard     see how you stack up against other learners")
	a.printf("  profile         your account and badges")
	a.printf("  logout          log out")
	a.printf("  quit            leave")
}

// loginView is the only view reachable while logged out. Registration
// never authenticates: after a successful sign-up the learner is sent
// back here to log in.
func (a *App) loginView(ctx context.Context) error {
	a.printf("%s", headline("Welcome to LearnQuest"))
	a.printf("%s", muted("login | register | quit"))

	choice, err := a.readLine(ctx, "> ")
	if err != nil {
		return err
	}

	switch choice {
	case "login", "":
		email, err := a.readLine(ctx, "Email: ")
		if err != nil {
			return err
		}
		password, err := a.readLine(ctx, "Password: ")
		if err != nil {
			return err
		}

		if err := a.service.session.Login(ctx, email, password); err != nil {
			a.reportAPIError(err)
			return nil
		}

		a.printf("%s", accent(fmt.Sprintf("Welcome back, %s!", a.service.session.Identity().Username)))

	case "register":
		username, err := a.readLine(ctx, "Username: ")
		if err != nil {
			return err
		}
		email, err := a.readLine(ctx, "Email: ")
		if err != nil {
			return err
		}
		password, err := a.readLine(ctx, "Password: ")
		if err != nil {
			return err
		}

		if _, err := a.service.session.Register(ctx, username, email, password); err != nil {
			a.reportAPIError(err)
			return nil
		}

		a.printf("%s", accent("Registration successful! Please log in."))

	case "quit", "exit":
		return errQuit

	default:
		a.errorf("Unknown choice %q.", choice)
	}

	return nil
}

func (a *App) dashboardView(ctx context.Context) {
	d, err := a.infra.api.GetDashboard(ctx)
	if err != nil {
		a.errorf("Could not load dashboard data.")
		a.reportAPIError(err)
		return
	}

	id := a.service.session.Identity()
	if id != nil {
		a.printf("%s", headline(fmt.Sprintf("Welcome back, %s!", id.Username)))
		a.printf("%s", muted("Let's continue your learning journey."))
	}

	a.printf("")
	a.printf("  %s  Total Points", accent(fmt.Sprintf("%5d", d.TotalPoints)))
	a.printf("  %s  Lessons Completed", accent(fmt.Sprintf("%5d", d.LessonsCompleted)))
	a.printf("  %s  Badges Earned", accent(fmt.Sprintf("%5d", d.BadgesEarned)))
	a.printf("")

	a.printf("%s", headline("Continue Learning"))
	if len(d.Courses) == 0 {
		a.printf("%s", muted("No courses available yet. Check back soon!"))
		return
	}

	for _, c := range d.Courses {
		a.printf("  [%d] %s %s", c.ID, c.Title, progressBar(c.Progress))
		a.printf("      %s", muted(c.Description))
	}
}

func (a *App) coursesView(ctx context.Context) {
	courses, err := a.infra.api.ListCourses(ctx)
	if err != nil {
		a.errorf("Could not load courses.")
		a.reportAPIError(err)
		return
	}

	a.printf("%s", headline("Available Courses"))
	if len(courses) == 0 {
		a.printf("%s", muted("No courses available yet. Check back soon!"))
		return
	}

	for _, c := range courses {
		a.printf("  [%d] %s", c.ID, c.Title)
		a.printf("      %s", muted(c.Description))
	}
	a.printf("%s", muted("Type course <id> to open one."))
}

func (a *App) leaderboardView(ctx context.Context) {
	entries, err := a.infra.api.GetLeaderboard(ctx)
	if err != nil {
		a.errorf("Could not load leaderboard.")
		a.reportAPIError(err)
		return
	}

	a.printf("%s", headline("Leaderboard"))
	a.printf("%s", muted("See how you stack up against other learners!"))
	a.printf("  %-6s %-20s %s", "Rank", "Username", "Points")
	for i, e := range entries {
		a.printf("  %-6d %-20s %s", i+1, e.Username, accent(fmt.Sprintf("%d", e.Points)))
	}
}

var badgeGlyphs = map[string]string{
	"react": "⚛",
	"node":  "🚀",
	"quiz":  "💡",
}

func (a *App) profileView(ctx context.Context) {
	p, err := a.infra.api.GetProfile(ctx)
	if err != nil {
		a.errorf("Could not load profile data.")
		a.reportAPIError(err)
		return
	}

	a.printf("%s", headline(p.Username))
	a.printf("%s", muted(p.Email))
	a.printf("  %s Total Points", accent(fmt.Sprintf("%d", p.Points)))
	a.printf("  %s Badges Earned", accent(fmt.Sprintf("%d", len(p.Badges))))

	a.printf("%s", headline("Your Badges"))
	if len(p.Badges) == 0 {
		a.printf("%s", muted("You haven't earned any badges yet. Keep learning to unlock them!"))
		return
	}

	for _, b := range p.Badges {
		glyph, ok := badgeGlyphs[b.Icon]
		if !ok {
			glyph = "•"
		}
		a.printf("  %s %s: %s", glyph, b.Name, muted(b.Description))
	}
}

// progressBar renders a ten-segment bar for a 0-100 percentage.
func progressBar(pct decimal.Decimal) string {
	filled := int(pct.IntPart()) / 10
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}

	bar := strings.Repeat("#", filled) + strings.Repeat("-", 10-filled)
	return fmt.Sprintf("[%s] %s%%", accent(bar), pct.StringFixed(0))
}
