package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/learnquest/learnquest/internal/api"
	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/event"
	"github.com/learnquest/learnquest/internal/progress"
	"github.com/learnquest/learnquest/internal/session"
	"github.com/learnquest/learnquest/internal/token"
)

type Config struct {
	API struct {
		BaseURL string
		Timeout time.Duration
	}

	Token struct {
		Dir string
	}

	Log struct {
		Level string
	}
}

// DefaultConfig points at a local backend, like a dev build of the web
// client would.
func DefaultConfig() Config {
	var c Config
	c.API.BaseURL = "http://localhost:5000"
	c.API.Timeout = 10 * time.Second
	c.Log.Level = "info"
	return c
}

// App is the interactive shell: it owns the infra (token store, API
// client), the services (session, progress) and the view router. Every
// view re-fetches on entry; nothing is cached client-side.
type App struct {
	c Config

	eb *event.Bus

	infra struct {
		tokens token.Store
		api    *api.Client
	}

	service struct {
		session  *session.Service
		progress *progress.Service
	}

	in    io.Reader
	out   io.Writer
	lines chan string

	mu          sync.Mutex
	courseStale bool
}

func Init(c Config, in io.Reader, out io.Writer) (*App, error) {
	a := &App{c: c, in: in, out: out}

	a.eb = event.NewBus()

	if err := a.initInfra(); err != nil {
		return nil, fmt.Errorf("app: init infra: %w", err)
	}

	a.initService()

	// Completion events mark course data stale; the course view refetches
	// before its next render. Keeping the flag on the app means a slow
	// response cannot touch a view that is no longer on screen.
	a.eb.Subscribe(domain.EventNameProgressSubmitted, func(ctx context.Context, e event.Event) error {
		a.mu.Lock()
		a.courseStale = true
		a.mu.Unlock()
		return nil
	})

	return a, nil
}

func (a *App) initInfra() error {
	dir := a.c.Token.Dir
	if dir == "" {
		var err error
		dir, err = token.DefaultDir()
		if err != nil {
			return err
		}
	}
	a.infra.tokens = token.NewFileStore(dir)

	a.infra.api = api.NewClient(api.Config{
		BaseURL: a.c.API.BaseURL,
		Tokens:  a.infra.tokens,
		Timeout: a.c.API.Timeout,
	})

	return nil
}

func (a *App) initService() {
	a.service.session = session.NewService(session.Config{
		API:      a.infra.api,
		Tokens:   a.infra.tokens,
		EventBus: a.eb,
	})

	a.service.progress = progress.NewService(progress.Config{
		API:      a.infra.api,
		EventBus: a.eb,
	})
}

// Run drives the shell until the input ends, the user quits or the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.service.session.Init(ctx)

	a.lines = make(chan string)

	eg, ctx := errgroup.WithContext(ctx)

	// The reader stays outside the group: Scan cannot be interrupted, so
	// waiting on it would keep Run blocked on an open terminal after quit.
	// When the loop returns, the group context cancels and the reader
	// drops out on its next line; a line typed after that is discarded.
	go func() {
		defer close(a.lines)

		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case a.lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	eg.Go(func() error {
		return a.loop(ctx)
	})

	err := eg.Wait()
	switch {
	case err == nil,
		errors.Is(err, errQuit),
		errors.Is(err, io.EOF),
		errors.Is(err, context.Canceled):
		return nil
	}

	slog.Error("app: shell stopped", "error", err)
	return err
}

var errQuit = errors.New("quit")

func (a *App) loop(ctx context.Context) error {
	for {
		if !a.service.session.LoggedIn() {
			if err := a.loginView(ctx); err != nil {
				return err
			}
			continue
		}

		if err := a.route(ctx); err != nil {
			return err
		}
	}
}

// route reads one command and dispatches the matching view. All routes
// here sit behind the session gate in loop.
func (a *App) route(ctx context.Context) error {
	line, err := a.readLine(ctx, a.prompt())
	if err != nil {
		return err
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "", "dashboard", "home":
		a.dashboardView(ctx)
	case "courses":
		a.coursesView(ctx)
	case "course", "open":
		id, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			a.errorf("Usage: course <id>")
			return nil
		}
		return a.courseView(ctx, id)
	case "leaderboard":
		a.leaderboardView(ctx)
	case "profile":
		a.profileView(ctx)
	case "logout":
		a.service.session.Logout(ctx)
		a.printf("Logged out.")
	case "help":
		a.helpView()
	case "quit", "exit":
		return errQuit
	default:
		a.errorf("Unknown command %q. Type help for a list.", cmd)
	}

	return nil
}

func (a *App) prompt() string {
	id := a.service.session.Identity()
	if id == nil {
		return "learnquest> "
	}

	return fmt.Sprintf("learnquest(%s)> ", id.Username)
}

// readLine prints the prompt and waits for the next input line. It
// returns io.EOF when the input is exhausted and the context error on
// cancellation, so a pending read never outlives the shell.
func (a *App) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-a.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

func (a *App) courseDataStale() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	stale := a.courseStale
	a.courseStale = false
	return stale
}
