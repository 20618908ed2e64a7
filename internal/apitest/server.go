// Package apitest runs a scripted LearnQuest backend for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/learnquest/learnquest/internal/domain"
)

// Secret signs the tokens minted by the fake backend. The client decodes
// claims without verifying, so the value only matters server-side.
const Secret = "apitest-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// User is a login fixture.
type User struct {
	Username string
	Password string
}

// ProgressCall captures one POST to the progress endpoint.
type ProgressCall struct {
	Token    string
	RawBody  []byte
	LessonID int
	Answers  domain.AnswerSet
	// HasAnswers distinguishes an explicit null payload from an array.
	HasAnswers bool
}

// Server is a fake LearnQuest backend. Fixture fields may be mutated
// between requests; they are guarded by mu.
type Server struct {
	URL string

	mu sync.Mutex

	// Fixtures served by the read endpoints.
	Users       map[string]User // keyed by email
	Courses     []domain.Course
	Dashboard   domain.Dashboard
	Profile     domain.Profile
	Leaderboard []domain.LeaderboardEntry

	// Progress endpoint behavior and capture.
	ProgressStatus   int // 0 means 200
	ProgressMessage  string
	PointsAwarded    int
	QuizResult       *domain.QuizResult
	ProgressCalls    []ProgressCall
	RegisterMessage  string
	RegisteredBodies [][]byte

	ts *httptest.Server
}

// NewServer starts the fake backend and closes it when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		Users:           make(map[string]User),
		RegisterMessage: "User registered successfully",
	}

	s.ts = httptest.NewServer(s.router())
	s.URL = s.ts.URL
	t.Cleanup(s.ts.Close)

	return s
}

// MintToken issues an HS256 token carrying the username and email claims.
func MintToken(t *testing.T, username, email string, ttl time.Duration) string {
	t.Helper()

	claims := jwt.MapClaims{
		"username": username,
		"email":    email,
		"exp":      time.Now().Add(ttl).Unix(),
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	return tok
}

func (s *Server) router() *gin.Engine {
	e := gin.New()

	e.POST("/api/auth/login", s.handleLogin)
	e.POST("/api/auth/register", s.handleRegister)
	e.GET("/api/courses", s.handleListCourses)
	e.GET("/api/users", s.handleLeaderboard)

	authed := e.Group("/", s.requireAuth)
	authed.GET("/api/courses/:id", s.handleGetCourse)
	authed.POST("/api/users/progress", s.handleProgress)
	authed.GET("/api/users/dashboard", s.handleDashboard)
	authed.GET("/api/users/profile", s.handleProfile)

	return e
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if len(header) < len("Bearer ") || header[:len("Bearer ")] != "Bearer " {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
		return
	}

	raw := header[len("Bearer "):]
	_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte(Secret), nil
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return
	}

	c.Set("token", raw)
	c.Next()
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	s.mu.Lock()
	u, ok := s.Users[req.Email]
	s.mu.Unlock()

	if !ok || u.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	claims := jwt.MapClaims{
		"username": u.Username,
		"email":    req.Email,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tok})
}

func (s *Server) handleRegister(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	s.mu.Lock()
	s.RegisteredBodies = append(s.RegisteredBodies, body)
	msg := s.RegisterMessage
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (s *Server) handleListCourses(c *gin.Context) {
	s.mu.Lock()
	courses := make([]domain.Course, len(s.Courses))
	copy(courses, s.Courses)
	s.mu.Unlock()

	// Summaries never include lessons.
	for i := range courses {
		courses[i].Lessons = nil
	}

	c.JSON(http.StatusOK, courses)
}

func (s *Server) handleGetCourse(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid course id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, course := range s.Courses {
		if course.ID == id {
			c.JSON(http.StatusOK, course)
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
}

func (s *Server) handleProgress(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	var req struct {
		LessonID int              `json:"lessonId"`
		Answers  domain.AnswerSet `json:"answers"`
	}
	var probe map[string]any
	_ = json.Unmarshal(body, &req)
	_ = json.Unmarshal(body, &probe)

	_, hasAnswers := probe["answers"]
	if v, ok := probe["answers"]; ok && v == nil {
		hasAnswers = false
	}

	s.mu.Lock()
	s.ProgressCalls = append(s.ProgressCalls, ProgressCall{
		Token:      c.GetString("token"),
		RawBody:    body,
		LessonID:   req.LessonID,
		Answers:    req.Answers,
		HasAnswers: hasAnswers,
	})
	status := s.ProgressStatus
	msg := s.ProgressMessage
	points := s.PointsAwarded
	result := s.QuizResult
	s.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		c.JSON(status, gin.H{"message": msg})
		return
	}

	resp := gin.H{"pointsAwarded": points}
	if result != nil {
		resp["quizResult"] = result
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDashboard(c *gin.Context) {
	s.mu.Lock()
	d := s.Dashboard
	s.mu.Unlock()

	c.JSON(http.StatusOK, d)
}

func (s *Server) handleProfile(c *gin.Context) {
	s.mu.Lock()
	p := s.Profile
	s.mu.Unlock()

	c.JSON(http.StatusOK, p)
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	s.mu.Lock()
	l := make([]domain.LeaderboardEntry, len(s.Leaderboard))
	copy(l, s.Leaderboard)
	s.mu.Unlock()

	c.JSON(http.StatusOK, l)
}

// Calls returns a snapshot of captured progress submissions.
func (s *Server) Calls() []ProgressCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]ProgressCall, len(s.ProgressCalls))
	copy(calls, s.ProgressCalls)
	return calls
}
