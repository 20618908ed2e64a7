package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/errors"
	"github.com/learnquest/learnquest/internal/token"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	// BaseURL of the LearnQuest backend, without trailing slash.
	BaseURL string

	// Tokens is read at call time for every authenticated request. The
	// client never caches the credential.
	Tokens token.Store

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Timeout per request. Zero means the default.
	Timeout time.Duration
}

// Client issues requests against the LearnQuest REST API. Every call is
// fire-and-report: errors are classified and returned, never retried.
type Client struct {
	baseURL string
	tokens  token.Store
	http    *http.Client
	timeout time.Duration
}

func NewClient(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		tokens:  c.Tokens,
		http:    hc,
		timeout: timeout,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}

	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, false, &resp); err != nil {
		return "", err
	}

	return resp.Token, nil
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. It returns the backend's confirmation
// message and never yields a token: registration does not authenticate.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}

	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, false, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}

// ListCourses returns the public course summaries.
func (c *Client) ListCourses(ctx context.Context) ([]domain.Course, error) {
	var courses []domain.Course
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, false, &courses); err != nil {
		return nil, err
	}

	return courses, nil
}

// GetCourse returns a course with its full lesson list.
func (c *Client) GetCourse(ctx context.Context, id int) (*domain.Course, error) {
	var course domain.Course
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/courses/%d", id), nil, true, &course); err != nil {
		return nil, err
	}

	return &course, nil
}

type SubmitProgressRequest struct {
	LessonID int `json:"lessonId"`

	// Answers is null for video/text completion and a positional array for
	// quiz submission; the backend distinguishes the two by its presence.
	Answers domain.AnswerSet `json:"answers"`
}

type SubmitProgressResponse struct {
	PointsAwarded int                `json:"pointsAwarded"`
	QuizResult    *domain.QuizResult `json:"quizResult,omitempty"`
}

// SubmitProgress records a lesson completion or quiz submission.
func (c *Client) SubmitProgress(ctx context.Context, req SubmitProgressRequest) (*SubmitProgressResponse, error) {
	var resp SubmitProgressResponse
	if err := c.do(ctx, http.MethodPost, "/api/users/progress", req, true, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetDashboard returns the learner's aggregate progress.
func (c *Client) GetDashboard(ctx context.Context) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/users/dashboard", nil, true, &d); err != nil {
		return nil, err
	}

	return &d, nil
}

// GetProfile returns the learner's profile with badges.
func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", nil, true, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// GetLeaderboard returns all users ranked by points. The endpoint is
// public; no credential is attached.
func (c *Client) GetLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, false, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// do sends one request. Authenticated calls read the credential from the
// token store at call time and attach it as a bearer header; a missing
// credential fails before any network traffic.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		tok, err := c.tokens.Load()
		if err != nil {
			return errors.New(errors.CodeUnauthenticated,
				errors.WithMessagef("not logged in"),
				errors.WithCause(err),
			)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("could not reach the server"),
			errors.WithCause(err),
		)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("could not read the server response"),
			errors.WithCause(err),
		)
	}

	slog.Debug("api: request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.FromHTTPStatus(resp.StatusCode,
			errors.WithMessagef("%s", errorMessage(data)),
		)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s %s response: %w", method, path, err)
	}

	return nil
}

// errorMessage extracts the backend's {"message": ...} envelope, falling
// back to a generic text when absent.
func errorMessage(data []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}

	return "request failed"
}
